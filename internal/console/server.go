// Package console is the operator-facing HTTP surface: one JSON route per
// CRM page, guarded by the workstation session.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/resource"
	"timepay.uz/crm/internal/session"
	"timepay.uz/crm/internal/stream"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"

	maxBody = 1 << 20
)

// Server routes console requests. Pages are shared by every request: the
// console serves one signed-in operator.
type Server struct {
	sess    *session.Manager
	pages   map[string]resource.Page
	feed    *stream.Stream
	mux     *http.ServeMux
	version string

	ratePerSec float64
	rateBurst  int
}

// Option configures Server.
type Option func(*Server)

// WithRateLimit sets the per-IP token bucket. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.ratePerSec = perSecond
		s.rateBurst = burst
	}
}

func New(sess *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		sess:       sess,
		pages:      resource.Pages(sess.Service),
		feed:       stream.New(notificationSource(sess)),
		mux:        http.NewServeMux(),
		version:    version,
		ratePerSec: 20,
		rateBurst:  40,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("/healthz", s.healthz)
	s.mux.Handle("/metrics", obs.Handler())
	s.mux.HandleFunc(loginPath, s.login)
	s.mux.Handle("/logout", s.private(http.HandlerFunc(s.logout)))
	s.mux.Handle(dashboardPath, s.private(http.HandlerFunc(s.dashboard)))
	s.mux.Handle(dashboardPath+"/excel", s.private(http.HandlerFunc(s.dailyExcel)))
	s.mux.Handle("/profile", s.private(http.HandlerFunc(s.profile)))
	s.mux.Handle("/plans", s.private(http.HandlerFunc(s.plans)))
	s.mux.Handle("/plans/", s.private(http.HandlerFunc(s.plans)))
	s.mux.Handle("/absence", s.private(http.HandlerFunc(s.absence)))
	s.mux.Handle("/notifications", s.private(http.HandlerFunc(s.notifications)))
	s.mux.Handle("/notifications/", s.private(http.HandlerFunc(s.notifications)))
	s.mux.Handle("/notifications/stream", s.private(http.HandlerFunc(s.notificationStream)))
	s.mux.HandleFunc("/", s.fallthroughRoute)
	return s
}

func notificationSource(sess *session.Manager) func() stream.Source {
	return func() stream.Source {
		if !sess.IsAuthenticated() {
			return nil
		}
		return sess.Service()
	}
}

// StartFeed polls notifications for the stream endpoint until stop is called.
func (s *Server) StartFeed(ctx context.Context, interval time.Duration) (stop func()) {
	return s.feed.Start(ctx, interval)
}

// Handler returns the routed mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = obs.Instrument(h)
	h = RateLimit(h, s.rateBurst, s.ratePerSec)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, maxBody)
	h = LoggingJSON(h)
	return RequestID(h)
}

// private redirects to the login page until a session exists. While the
// stored session is still being restored it answers 503.
func (s *Server) private(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sess.IsLoading() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
			return
		}
		u, ok := s.sess.User()
		if !ok {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.ContextWithUser(r.Context(), u)))
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "timepay-console",
		"version": s.version,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.sess.IsAuthenticated() {
			http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "loading": s.sess.IsLoading()})
	case http.MethodPost:
		var c crm.Credentials
		if err := decodeBody(r, &c); err != nil {
			writeErr(w, r, err)
			return
		}
		u, err := s.sess.Login(r.Context(), c)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": u})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}
	if err := s.sess.Logout(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	svc := s.sess.Service()
	date := crm.ReportDate(r.URL.Query().Get("date"))

	var (
		daily crm.DailyAttendance
		notes []crm.Notification
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		daily, err = svc.DailyAttendance(ctx, date)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = svc.Notifications(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":          date,
		"attendance":    daily,
		"notifications": notes,
		"unread":        crm.UnreadCount(notes),
	})
}

func (s *Server) dailyExcel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	f, err := s.sess.Service().DailyExcelReport(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", crm.XLSXMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(f.Name, `"`, "")+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

type profileForm struct {
	BranchID   *int   `json:"branch_id"`
	BranchName string `json:"branch_name"`
	ActAs      *int   `json:"act_as"`
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var f profileForm
		if err := decodeBody(r, &f); err != nil {
			s.fail(w, r, err)
			return
		}
		if f.ActAs != nil {
			if err := s.sess.ActAs(*f.ActAs); err != nil {
				s.fail(w, r, err)
				return
			}
		}
		if f.BranchID != nil {
			if err := s.sess.SelectBranch(r.Context(), *f.BranchID, f.BranchName); err != nil {
				s.fail(w, r, err)
				return
			}
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}
	u, _ := session.UserFromContext(r.Context())
	branch, _, err := s.sess.SelectedBranch(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   u,
		"branch": branch,
		"acting": s.sess.Actor().Owner(),
	})
}

// plans lists the catalogue next to the caller's subscriptions. POST buys a
// plan, DELETE /plans/{id} cancels a subscription.
func (s *Server) plans(w http.ResponseWriter, r *http.Request) {
	subs := s.pages["subscriptions"]
	id, hasID, ok := itemID(r.URL.Path, "/plans")
	if !ok {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	switch {
	case r.Method == http.MethodGet && !hasID:
	case r.Method == http.MethodPost && !hasID:
		body, err := readBody(r)
		if err == nil {
			err = subs.CreateJSON(r.Context(), body)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
	case r.Method == http.MethodDelete && hasID:
		if err := subs.Delete(r.Context(), id, confirmed(r)); err != nil {
			s.fail(w, r, err)
			return
		}
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
		return
	}

	svc := s.sess.Service()
	var (
		plans []crm.Plan
		owned []crm.Subscription
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		plans, err = svc.Plans(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = svc.Subscriptions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans, "subscriptions": owned})
}

func (s *Server) absence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	date := crm.ReportDate(r.URL.Query().Get("date"))
	items, err := s.sess.Service().AbsentEmployees(r.Context(), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "items": items, "total": len(items)})
}

// fallthroughRoute serves the resource pages; any other path lands on the
// dashboard.
func (s *Server) fallthroughRoute(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(r.URL.Path, "/")
	name, _, _ := strings.Cut(trimmed, "/")
	page, ok := s.pages[name]
	if !ok || name == "subscriptions" {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	s.private(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, page, "/"+name)
	})).ServeHTTP(w, r)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, page resource.Page, base string) {
	id, hasID, ok := itemID(r.URL.Path, base)
	if !ok {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	ctx := r.Context()
	switch {
	case r.Method == http.MethodGet && !hasID:
		q := r.URL.Query()
		if q.Get("dismiss") != "" {
			page.DismissError()
		}
		var err error
		if raw := q.Get("user_id"); raw != "" {
			target, convErr := strconv.Atoi(raw)
			if convErr != nil {
				writeError(w, r, http.StatusBadRequest, "user_id noto'g'ri")
				return
			}
			err = page.SetTarget(ctx, target)
		} else {
			err = page.Load(ctx)
		}
		if errors.Is(err, crm.ErrForbidden) || crm.IsUnauthorized(err) {
			s.fail(w, r, err)
			return
		}
		page.Search(q.Get("q"))
		writeJSON(w, http.StatusOK, page.Snapshot())
		return
	case r.Method == http.MethodPost && !hasID:
		body, err := readBody(r)
		if err == nil {
			err = page.CreateJSON(ctx, body)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, page.Snapshot())
	case (r.Method == http.MethodPatch || r.Method == http.MethodPut) && hasID:
		body, err := readBody(r)
		if err == nil {
			err = page.UpdateJSON(ctx, id, body)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page.Snapshot())
	case r.Method == http.MethodDelete && hasID:
		if err := page.Delete(ctx, id, confirmed(r)); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page.Snapshot())
	default:
		if hasID {
			methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
		} else {
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	}
}

// itemID parses "<base>" or "<base>/<id>". ok is false for anything else.
func itemID(path, base string) (id int, hasID, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, base), "/")
	if rest == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false, false
	}
	return n, true, true
}

func confirmed(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("confirm")) {
	case "1", "true", "yes", "ha":
		return true
	}
	return false
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, badRequest(err)
	}
	return body, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	return nil
}

func badRequest(err error) error {
	return &crm.Error{Op: "console.decode", Status: http.StatusBadRequest, Message: "So'rov tanasi noto'g'ri", Err: errors.Join(crm.ErrInvalidInput, err)}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// Timeouts applied by cmd/console.
const (
	ReadTimeout  = 15 * time.Second
	WriteTimeout = 60 * time.Second
	IdleTimeout  = 60 * time.Second
)
