// Package resource implements the list/modal/mutate/reload cycle shared by
// every CRUD page, once, parameterized by the record type T, the create form
// C and the partial update P.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
)

var (
	ErrUnsupported  = errors.New("resource: operation not supported")
	ErrNotConfirmed = errors.New("resource: delete not confirmed")
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
)

type ModalMode string

const (
	ModalCreate ModalMode = "create"
	ModalEdit   ModalMode = "edit"
)

// Modal is the open create/edit form. Error is shown inline; the form stays
// open until a submit succeeds or it is closed.
type Modal struct {
	Mode  ModalMode `json:"mode"`
	ID    int       `json:"id,omitempty"`
	Error string    `json:"error,omitempty"`
}

// View is a snapshot of the page.
type View[T any] struct {
	Status Status `json:"status"`
	Items  []T    `json:"items"`
	Total  int    `json:"total"`
	Query  string `json:"query,omitempty"`
	Target int    `json:"target,omitempty"`
	// Error is the dismissible banner.
	Error  string `json:"error,omitempty"`
	Notice string `json:"notice,omitempty"`
	Modal  *Modal `json:"modal,omitempty"`
}

// Source yields the facade bound to the signed-in user.
type Source func() *crm.Service

// Ops binds a Manager to one resource family. The function shapes match
// method expressions such as (*crm.Service).Employees. Nil Create, Update or
// Delete make the action return ErrUnsupported.
type Ops[T, C, P any] struct {
	Name   string
	List   func(svc *crm.Service, ctx context.Context) ([]T, error)
	Create func(svc *crm.Service, ctx context.Context, in C) (T, error)
	Update func(svc *crm.Service, ctx context.Context, id int, in P) (T, error)
	Delete func(svc *crm.Service, ctx context.Context, id int) error
	// Text returns the searchable text of a record.
	Text func(T) string
}

// Manager is safe for concurrent use.
type Manager[T, C, P any] struct {
	ops Ops[T, C, P]
	src Source

	mu     sync.Mutex
	status Status
	items  []T
	query  string
	target int
	errMsg string
	notice string
	modal  *Modal
}

func NewManager[T, C, P any](src Source, ops Ops[T, C, P]) *Manager[T, C, P] {
	return &Manager[T, C, P]{ops: ops, src: src, status: StatusLoading}
}

func (m *Manager[T, C, P]) Name() string { return m.ops.Name }

func (m *Manager[T, C, P]) service() (*crm.Service, error) {
	m.mu.Lock()
	target := m.target
	m.mu.Unlock()
	if target == 0 {
		return m.src(), nil
	}
	return m.src().As(target)
}

// Load fetches the list. A failure keeps the previous items and raises the
// banner; the page stays usable.
func (m *Manager[T, C, P]) Load(ctx context.Context) error {
	m.mu.Lock()
	if m.items == nil {
		m.status = StatusLoading
	}
	m.mu.Unlock()

	svc, err := m.service()
	var items []T
	if err == nil {
		items, err = m.ops.List(svc, ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusReady
	if err != nil {
		m.errMsg = message(err)
		obs.Warn("page_load_failed", map[string]any{"page": m.ops.Name, "error": err.Error()})
		return err
	}
	m.items = items
	m.errMsg = ""
	return nil
}

// SetTarget scopes the page to another user (superadmin only) and reloads.
// target <= 0 returns to the session's acting context.
func (m *Manager[T, C, P]) SetTarget(ctx context.Context, target int) error {
	if _, err := m.src().As(target); err != nil {
		m.mu.Lock()
		m.errMsg = message(err)
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.target = max(target, 0)
	m.mu.Unlock()
	return m.Load(ctx)
}

// Search filters the loaded items locally.
func (m *Manager[T, C, P]) Search(q string) {
	m.mu.Lock()
	m.query = strings.TrimSpace(q)
	m.mu.Unlock()
}

func (m *Manager[T, C, P]) OpenCreate() {
	m.mu.Lock()
	m.modal = &Modal{Mode: ModalCreate}
	m.mu.Unlock()
}

func (m *Manager[T, C, P]) OpenEdit(id int) {
	m.mu.Lock()
	m.modal = &Modal{Mode: ModalEdit, ID: id}
	m.mu.Unlock()
}

func (m *Manager[T, C, P]) CloseModal() {
	m.mu.Lock()
	m.modal = nil
	m.mu.Unlock()
}

func (m *Manager[T, C, P]) DismissError() {
	m.mu.Lock()
	m.errMsg = ""
	m.mu.Unlock()
}

// Create submits the create form. On success the modal closes and the list
// is reloaded; on failure the error is attached to the still-open modal.
func (m *Manager[T, C, P]) Create(ctx context.Context, in C) error {
	if m.ops.Create == nil {
		return ErrUnsupported
	}
	m.mu.Lock()
	if m.modal == nil || m.modal.Mode != ModalCreate {
		m.modal = &Modal{Mode: ModalCreate}
	}
	m.mu.Unlock()

	svc, err := m.service()
	if err == nil {
		_, err = m.ops.Create(svc, ctx, in)
	}
	return m.afterSubmit(ctx, err, "Muvaffaqiyatli qo'shildi")
}

// Update submits the edit form for id.
func (m *Manager[T, C, P]) Update(ctx context.Context, id int, in P) error {
	if m.ops.Update == nil {
		return ErrUnsupported
	}
	m.mu.Lock()
	if m.modal == nil || m.modal.Mode != ModalEdit || m.modal.ID != id {
		m.modal = &Modal{Mode: ModalEdit, ID: id}
	}
	m.mu.Unlock()

	svc, err := m.service()
	if err == nil {
		_, err = m.ops.Update(svc, ctx, id, in)
	}
	return m.afterSubmit(ctx, err, "Muvaffaqiyatli yangilandi")
}

func (m *Manager[T, C, P]) afterSubmit(ctx context.Context, err error, notice string) error {
	if err != nil {
		m.mu.Lock()
		if m.modal != nil {
			m.modal.Error = message(err)
		}
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.modal = nil
	m.notice = notice
	m.mu.Unlock()
	return m.Load(ctx)
}

// Delete removes id after confirmation and reloads the list.
func (m *Manager[T, C, P]) Delete(ctx context.Context, id int, confirmed bool) error {
	if m.ops.Delete == nil {
		return ErrUnsupported
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	svc, err := m.service()
	if err == nil {
		err = m.ops.Delete(svc, ctx, id)
	}
	if err != nil {
		m.mu.Lock()
		m.errMsg = message(err)
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.notice = "O'chirildi"
	m.mu.Unlock()
	return m.Load(ctx)
}

// View returns the current snapshot with the search applied. The notice is
// consumed by the read.
func (m *Manager[T, C, P]) View() View[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]T, 0, len(m.items))
	q := strings.ToLower(m.query)
	for _, it := range m.items {
		if q == "" || m.ops.Text == nil || strings.Contains(strings.ToLower(m.ops.Text(it)), q) {
			items = append(items, it)
		}
	}
	v := View[T]{
		Status: m.status,
		Items:  items,
		Total:  len(m.items),
		Query:  m.query,
		Target: m.target,
		Error:  m.errMsg,
		Notice: m.notice,
	}
	if m.modal != nil {
		cp := *m.modal
		v.Modal = &cp
	}
	m.notice = ""
	return v
}

// Page is the type-erased surface the console routes to.
type Page interface {
	Name() string
	Load(ctx context.Context) error
	SetTarget(ctx context.Context, target int) error
	Search(q string)
	DismissError()
	CreateJSON(ctx context.Context, body []byte) error
	UpdateJSON(ctx context.Context, id int, body []byte) error
	Delete(ctx context.Context, id int, confirmed bool) error
	Snapshot() any
}

func (m *Manager[T, C, P]) CreateJSON(ctx context.Context, body []byte) error {
	var in C
	if err := json.Unmarshal(body, &in); err != nil {
		return fmt.Errorf("%w: %w", crm.ErrInvalidInput, err)
	}
	return m.Create(ctx, in)
}

func (m *Manager[T, C, P]) UpdateJSON(ctx context.Context, id int, body []byte) error {
	var in P
	if err := json.Unmarshal(body, &in); err != nil {
		return fmt.Errorf("%w: %w", crm.ErrInvalidInput, err)
	}
	return m.Update(ctx, id, in)
}

func (m *Manager[T, C, P]) Snapshot() any { return m.View() }

func message(err error) string {
	return crm.UserMessage(err)
}
