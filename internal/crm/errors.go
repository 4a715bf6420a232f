package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"timepay.uz/crm/internal/backend"
)

var (
	ErrForbidden      = errors.New("crm: superadmin role required")
	ErrNoToken        = errors.New("crm: login response carried no token")
	ErrNoRefreshToken = errors.New("crm: no refresh token stored")
	ErrInvalidInput   = errors.New("crm: invalid input")
	ErrEmptyFile      = errors.New("crm: empty file in response")
)

// Error is a translated failure ready to be shown to the user.
type Error struct {
	Op      string
	Status  int
	Message string
	// Fields holds the first message per field from a 400 body.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

var envelopeKeys = map[string]bool{
	"detail": true, "message": true, "error": true, "non_field_errors": true,
	"success": true, "status": true, "code": true, "raw": true,
}

// translate turns a backend failure into *Error. Context errors pass through.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	out := &Error{Op: op, Message: err.Error(), Err: err}
	if errors.Is(err, backend.ErrTransport) {
		out.Message = msgNoConnection
		return out
	}
	var be *backend.Error
	if !errors.As(err, &be) {
		return out
	}
	out.Status = be.Status
	out.Message = be.Message
	generic := be.Message == fmt.Sprintf("HTTP %d: %s", be.Status, be.StatusText)

	switch {
	case be.Status == http.StatusBadRequest:
		out.Fields = fieldErrors(be.Data)
		if _, ok := out.Fields["user_id"]; ok {
			out.Message = msgUserRequired
		} else if generic && len(out.Fields) > 0 {
			out.Message = firstField(out.Fields)
		} else if generic {
			out.Message = msgValidation
		}
	case be.Status == http.StatusUnauthorized:
		out.Message = msgSessionExpired
	case be.Status == http.StatusForbidden:
		if generic {
			out.Message = msgForbidden
		}
	case be.Status == http.StatusNotFound:
		if generic {
			out.Message = msgNotFound
		}
	case be.Status >= 500:
		out.Message = msgServerError
	}
	return out
}

func fieldErrors(data any) map[string]string {
	m := asMap(data)
	if m == nil {
		return nil
	}
	if inner := asMap(m["errors"]); inner != nil {
		m = inner
	}
	out := map[string]string{}
	for k, v := range m {
		if envelopeKeys[k] {
			continue
		}
		switch t := v.(type) {
		case string:
			out[k] = t
		case []any:
			if len(t) > 0 {
				if s, ok := t[0].(string); ok {
					out[k] = s
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstField(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0] + ": " + fields[keys[0]]
}

func translateLogin(err error) error {
	var be *backend.Error
	if errors.As(err, &be) {
		lower := strings.ToLower(be.Message)
		for _, m := range loginMessages {
			if strings.Contains(lower, m.substr) {
				return &Error{Op: "auth.login", Status: be.Status, Message: m.text, Err: err}
			}
		}
		if be.Status == http.StatusUnauthorized {
			return &Error{Op: "auth.login", Status: be.Status, Message: msgBadCredentials, Err: err}
		}
	}
	return translate("auth.login", err)
}

// UserMessage is the text to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	switch {
	case errors.As(err, &ce):
		return ce.Message
	case errors.Is(err, ErrForbidden):
		return msgForbidden
	case errors.Is(err, ErrInvalidInput):
		return msgValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCanceled
	}
	return err.Error()
}
