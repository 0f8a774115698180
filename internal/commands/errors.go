package commands

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

var (
	// ErrNoFileSelected is returned when a command needs a selected file and there is none
	ErrNoFileSelected = errors.New("no file selected")
	// ErrInvalidStepSize is returned when start is asked for a step size the backend rejects
	ErrInvalidStepSize = errors.New("invalid step size")
)

// Error is a command the backend answered with success false
type Error struct {
	Command types.Command
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Command, e.Message)
}
