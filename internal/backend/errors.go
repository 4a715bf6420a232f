package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("backend: transport failure")

// Error is returned for every non-2xx response.
type Error struct {
	Status     int
	StatusText string
	Message    string
	// Data is the decoded body: a JSON value or map{"raw": text}.
	Data any
}

func (e *Error) Error() string { return e.Message }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// newError picks the first of non_field_errors[0], detail, message, error,
// falling back to "HTTP <status>: <text>".
func newError(status int, data any) *Error {
	text := http.StatusText(status)
	return &Error{
		Status:     status,
		StatusText: text,
		Message:    MessageFrom(data, fmt.Sprintf("HTTP %d: %s", status, text)),
		Data:       data,
	}
}

// MessageFrom extracts a human readable message from a decoded error body.
func MessageFrom(data any, fallback string) string {
	m, ok := data.(map[string]any)
	if !ok {
		return fallback
	}
	if list, ok := m["non_field_errors"].([]any); ok && len(list) > 0 {
		if s, ok := list[0].(string); ok && s != "" {
			return s
		}
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
