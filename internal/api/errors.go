package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
)

// ErrNotPDF is returned when an upload is not a PDF document
var ErrNotPDF = errors.New("only PDF files are allowed")

// Error is a non-2xx backend reply
type Error struct {
	Op     string
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Detail)
}

// Temporary reports whether the failure lies with the backend rather than the request
func (e *Error) Temporary() bool {
	return e.Status >= http.StatusInternalServerError
}

// errorBody is the FastAPI error envelope. detail is a string for
// HTTPException and a list for validation failures.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (b *errorBody) text(status int) string {
	if len(b.Detail) == 0 {
		return http.StatusText(status)
	}
	var s string
	if err := sonic.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	return string(b.Detail)
}

// countsAgainstBackend decides which errors trip the breaker
func countsAgainstBackend(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, ErrNotPDF) && !errors.Is(err, context.Canceled)
}
