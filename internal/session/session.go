// Package session holds the signed-in user and the acting context (target
// user for superadmins, selected branch) on top of the crm facade.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/storage"
	"timepay.uz/crm/internal/tokens"
)

// ErrNoSession means there is no usable token; the user has to log in.
var ErrNoSession = errors.New("session: not authenticated")

// Branch is the selected branch scope.
type Branch struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Manager is safe for concurrent use.
type Manager struct {
	svc    *crm.Service
	tokens *tokens.Store
	kv     storage.KV
	now    func() time.Time

	mu      sync.RWMutex
	user    *crm.User
	loading bool
	target  int
	branch  Branch
}

// Option configures Manager.
type Option func(*Manager)

// WithClock overrides time.Now, used by token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(svc *crm.Service, store *tokens.Store, kv storage.KV, opts ...Option) *Manager {
	m := &Manager{svc: svc, tokens: store, kv: kv, now: time.Now, loading: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore resumes a stored session. An expired access token is refreshed
// first when a refresh token exists; the user is then fetched from the backend.
func (m *Manager) Restore(ctx context.Context) (crm.User, error) {
	defer m.setLoading(false)

	access, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return crm.User{}, fmt.Errorf("read access token: %w", err)
	}
	if access == "" {
		return crm.User{}, ErrNoSession
	}
	if claims, err := Inspect(access); err == nil && claims.Expired(m.now()) {
		if err := m.svc.RefreshToken(ctx); err != nil {
			obs.Info("session_restore_refresh_failed", map[string]any{"error": err.Error()})
			return crm.User{}, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
	}
	if err := m.loadBranch(ctx); err != nil {
		return crm.User{}, err
	}
	u, err := m.svc.CurrentUser(ctx)
	if err != nil {
		var ce *crm.Error
		if errors.As(err, &ce) && ce.Status == http.StatusUnauthorized {
			_ = m.tokens.Clear(ctx)
			return crm.User{}, fmt.Errorf("%w: %w", ErrNoSession, err)
		}
		return crm.User{}, err
	}
	m.setUser(&u)
	return u, nil
}

// Login signs in and loads the user.
func (m *Manager) Login(ctx context.Context, c crm.Credentials) (crm.User, error) {
	res, err := m.svc.Login(ctx, c)
	if err != nil {
		return crm.User{}, err
	}
	var u crm.User
	if res.User != nil && res.User.ID > 0 {
		u = *res.User
	} else {
		u, err = m.svc.CurrentUser(ctx)
		if err != nil {
			return crm.User{}, err
		}
	}
	if err := m.loadBranch(ctx); err != nil {
		return crm.User{}, err
	}
	m.mu.Lock()
	m.user = &u
	m.target = 0
	m.loading = false
	m.mu.Unlock()
	obs.Info("session_login", map[string]any{"user_id": u.ID, "role": string(u.Role)})
	return u, nil
}

// Logout forgets the tokens and the user. The branch selection is kept.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.target = 0
	m.mu.Unlock()
	return m.tokens.Clear(ctx)
}

// Expire logs out when err shows the backend rejected the session. It
// reports whether it did.
func (m *Manager) Expire(ctx context.Context, err error) bool {
	if !crm.IsUnauthorized(err) || !m.IsAuthenticated() {
		return false
	}
	if cerr := m.Logout(ctx); cerr != nil {
		obs.Warn("session_expire_failed", map[string]any{"error": cerr.Error()})
	}
	obs.Info("session_expired", nil)
	return true
}

func (m *Manager) User() (crm.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return crm.User{}, false
	}
	return *m.user, true
}

func (m *Manager) IsAuthenticated() bool {
	_, ok := m.User()
	return ok
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Actor is the current acting context.
func (m *Manager) Actor() crm.Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a := crm.Actor{Target: m.target, BranchID: m.branch.ID}
	if m.user != nil {
		a.UserID = m.user.ID
		a.Role = m.user.Role
	}
	return a
}

// Service returns the facade bound to the current acting context.
func (m *Manager) Service() *crm.Service {
	return m.svc.WithActor(m.Actor())
}

// ActAs switches the default target for subsequent Service calls.
func (m *Manager) ActAs(target int) error {
	svc, err := m.Service().As(target)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.target = svc.Actor().Target
	m.mu.Unlock()
	return nil
}

// For returns a facade acting for target without changing the default.
// target <= 0 keeps the default.
func (m *Manager) For(target int) (*crm.Service, error) {
	if target <= 0 {
		return m.Service(), nil
	}
	return m.Service().As(target)
}

// SelectBranch persists the branch scope. id <= 0 clears it.
func (m *Manager) SelectBranch(ctx context.Context, id int, name string) error {
	if id <= 0 {
		if err := m.kv.Delete(ctx, storage.KeySelectedBranchID, storage.KeySelectedBranchName); err != nil {
			return err
		}
		m.setBranch(Branch{})
		return nil
	}
	name = strings.TrimSpace(name)
	if err := m.kv.Set(ctx, storage.KeySelectedBranchID, strconv.Itoa(id)); err != nil {
		return err
	}
	if err := m.kv.Set(ctx, storage.KeySelectedBranchName, name); err != nil {
		return err
	}
	m.setBranch(Branch{ID: id, Name: name})
	return nil
}

// SelectedBranch reports the stored branch scope.
func (m *Manager) SelectedBranch(ctx context.Context) (Branch, bool, error) {
	if err := m.loadBranch(ctx); err != nil {
		return Branch{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.branch, m.branch.ID > 0, nil
}

func (m *Manager) loadBranch(ctx context.Context) error {
	raw, ok, err := m.kv.Get(ctx, storage.KeySelectedBranchID)
	if err != nil {
		return fmt.Errorf("read branch: %w", err)
	}
	if !ok {
		m.setBranch(Branch{})
		return nil
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		m.setBranch(Branch{})
		return nil
	}
	name, _, err := m.kv.Get(ctx, storage.KeySelectedBranchName)
	if err != nil {
		return fmt.Errorf("read branch: %w", err)
	}
	m.setBranch(Branch{ID: id, Name: name})
	return nil
}

func (m *Manager) setBranch(b Branch) {
	m.mu.Lock()
	m.branch = b
	m.mu.Unlock()
}

func (m *Manager) setUser(u *crm.User) {
	m.mu.Lock()
	m.user = u
	m.mu.Unlock()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}
