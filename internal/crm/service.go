// Package crm is the domain facade over the TimePay backend: one method set per
// resource family, response normalization, and a declared failure policy per
// operation.
package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"timepay.uz/crm/internal/audit"
	"timepay.uz/crm/internal/backend"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/tokens"
)

// DefaultCountryCode is prepended to 9-digit local phone numbers.
const DefaultCountryCode = "998"

// Policy decides what a read does when the backend call fails.
type Policy int

const (
	// Propagate returns the translated error to the caller.
	Propagate Policy = iota
	// Fallback logs the error and answers with the operation's fixtures.
	Fallback
)

// Service is safe for concurrent use; WithActor/As return copies.
type Service struct {
	client      *backend.Client
	tokens      *tokens.Store
	actor       Actor
	fallback    bool
	countryCode string
}

// Option configures Service.
type Option func(*Service)

// WithFallback enables or disables fixture answers for Fallback operations.
func WithFallback(enabled bool) Option {
	return func(s *Service) { s.fallback = enabled }
}

// WithCountryCode overrides the code used by phone normalization.
func WithCountryCode(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.countryCode = code
		}
	}
}

// WithInitialActor sets the acting context used before login.
func WithInitialActor(a Actor) Option {
	return func(s *Service) { s.actor = a }
}

// New wires the facade to the HTTP client and token store and installs the
// refresh hook on the client.
func New(client *backend.Client, store *tokens.Store, opts ...Option) *Service {
	s := &Service{
		client:      client,
		tokens:      store,
		fallback:    true,
		countryCode: DefaultCountryCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	client.SetRefresher(s.RefreshToken)
	return s
}

// Actor returns the acting context.
func (s *Service) Actor() Actor { return s.actor }

// WithActor returns a copy bound to a.
func (s *Service) WithActor(a Actor) *Service {
	cp := *s
	cp.actor = a
	return &cp
}

// As returns a copy acting on behalf of target. Only superadmins may do this;
// target <= 0 or the caller's own id resets to self.
func (s *Service) As(target int) (*Service, error) {
	if target <= 0 || target == s.actor.UserID {
		a := s.actor
		a.Target = 0
		return s.WithActor(a), nil
	}
	if s.actor.Role != RoleSuperadmin {
		return nil, ErrForbidden
	}
	a := s.actor
	a.Target = target
	return s.WithActor(a), nil
}

func (s *Service) ownerQuery() url.Values {
	q := url.Values{}
	if owner := s.actor.Owner(); owner > 0 {
		q.Set("user_id", strconv.Itoa(owner))
	}
	return q
}

func (s *Service) branchQuery() url.Values {
	q := s.ownerQuery()
	if s.actor.BranchID > 0 {
		q.Set("branch_id", strconv.Itoa(s.actor.BranchID))
	}
	return q
}

// listOp declares one list endpoint.
type listOp[T any] struct {
	name     string
	path     string
	policy   Policy
	decode   func(map[string]any) T
	fixtures func() []T
}

func runList[T any](ctx context.Context, s *Service, op listOp[T], q url.Values) ([]T, error) {
	data, err := s.client.JSON(ctx, http.MethodGet, op.path, q, nil)
	if err != nil {
		if op.policy == Fallback && s.fallback && ctx.Err() == nil && op.fixtures != nil && !IsUnauthorized(err) {
			obs.Warn("fallback_used", map[string]any{"operation": op.name, "error": err.Error()})
			obs.CountFallback(op.name)
			return op.fixtures(), nil
		}
		return nil, translate(op.name, err)
	}
	items := listOf(data)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if m := asMap(item); m != nil {
			out = append(out, op.decode(m))
		}
	}
	return out, nil
}

func itemPath(base string, id int) string {
	return fmt.Sprintf("%s%d/", base, id)
}

func (s *Service) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, audit.Actor{UserID: s.actor.UserID, OwnerID: s.actor.Owner()}, fields)
}

// create posts payload with the owning user id filled in.
func (s *Service) create(ctx context.Context, op, path string, payload map[string]any) (map[string]any, error) {
	if owner := s.actor.Owner(); owner > 0 {
		payload["user_id"] = owner
	}
	data, err := s.client.JSON(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, translate(op, err)
	}
	s.audit(ctx, op, map[string]any{"path": path})
	return unwrap(data), nil
}

// update sends only the fields present in payload; user_id rides in the query.
func (s *Service) update(ctx context.Context, op, base string, id int, payload map[string]any) (map[string]any, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	data, err := s.client.JSON(ctx, http.MethodPatch, itemPath(base, id), s.ownerQuery(), payload)
	if err != nil {
		return nil, translate(op, err)
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	s.audit(ctx, op, map[string]any{"id": id, "fields": keys})
	return unwrap(data), nil
}

func (s *Service) remove(ctx context.Context, op, base string, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	if _, err := s.client.Do(ctx, backend.Request{
		Method: http.MethodDelete,
		Path:   itemPath(base, id),
		Query:  s.ownerQuery(),
	}); err != nil {
		return translate(op, err)
	}
	s.audit(ctx, op, map[string]any{"id": id})
	return nil
}

// IsUnauthorized reports whether err is a 401 that survived the token
// refresh: the session is gone and fixtures must not stand in for it.
func IsUnauthorized(err error) bool {
	return backend.StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a translated 404.
func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Status == http.StatusNotFound
}
