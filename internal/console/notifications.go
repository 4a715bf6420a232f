package console

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timepay.uz/crm/internal/crm"
)

// notifications lists the feed; POST /notifications/{id}/read marks one read.
func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notifications"), "/")
	svc := s.sess.Service()
	switch {
	case rest == "" && r.Method == http.MethodGet:
	case strings.HasSuffix(rest, "/read") && r.Method == http.MethodPost:
		id, err := strconv.Atoi(strings.TrimSuffix(rest, "/read"))
		if err != nil || id <= 0 {
			http.Redirect(w, r, dashboardPath, http.StatusFound)
			return
		}
		if err := svc.MarkNotificationRead(r.Context(), id); err != nil {
			s.fail(w, r, err)
			return
		}
		_, _ = s.feed.Poll(r.Context())
	case rest == "":
		methodNotAllowed(w, r, http.MethodGet)
		return
	default:
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}

	items, err := svc.Notifications(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "unread": crm.UnreadCount(items)})
}

// notificationStream pushes feed updates as server-sent events.
func (s *Server) notificationStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(": stream started\n\n")); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	for u := range s.feed.Subscribe(r.Context()) {
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("event: notifications\ndata: " + string(payload) + "\n\n")); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
