package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/resource"
	"timepay.uz/crm/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":      msg,
		"request_id": requestIDFrom(r.Context()),
	})
}

// fail is writeErr for signed-in routes: a rejected session is dropped first
// so the next request lands on the login page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.sess.Expire(r.Context(), err)
	writeErr(w, r, err)
}

// writeErr maps a domain failure onto a status and the user-facing message.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errStatus(err)
	body := map[string]any{
		"error":      crm.UserMessage(err),
		"request_id": requestIDFrom(r.Context()),
	}
	var ce *crm.Error
	if errors.As(err, &ce) && len(ce.Fields) > 0 {
		body["fields"] = ce.Fields
	}
	if code >= http.StatusInternalServerError {
		obs.Warn("console_request_failed", map[string]any{
			"path":       r.URL.Path,
			"status":     code,
			"error":      err.Error(),
			"request_id": requestIDFrom(r.Context()),
		})
	}
	writeJSON(w, code, body)
}

func errStatus(err error) int {
	var ce *crm.Error
	switch {
	case errors.Is(err, resource.ErrNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, resource.ErrUnsupported):
		return http.StatusMethodNotAllowed
	case errors.Is(err, crm.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNoSession), errors.Is(err, crm.ErrNoToken):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ce) && ce.Status >= 400 && ce.Status < 500:
		return ce.Status
	case errors.Is(err, crm.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
