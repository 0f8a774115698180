package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxIDLength     = 128
	MaxPromptLength = 4096
	MaxPathLength   = 4096
)

// ErrInvalidInput marks every validation failure
var ErrInvalidInput = errors.New("invalid input")

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidInput, fieldName)
	}
	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidInput, fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalidInput, fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%w: %s contains invalid characters", ErrInvalidInput, fieldName)
	}

	return nil
}

// ValidateID validates a file identifier
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", ErrInvalidInput, fieldName)
	}

	return nil
}

// ValidatePrompt validates a colorization prompt. Empty means the default.
func ValidatePrompt(prompt string) error {
	return ValidateString(prompt, "prompt", 1, MaxPromptLength, false)
}

// ValidatePath validates a local file path handed to upload
func ValidatePath(path string) error {
	return ValidateString(path, "path", 1, MaxPathLength, true)
}
