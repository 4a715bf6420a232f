package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"timepay.uz/crm/internal/backend"
	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/storage"
	"timepay.uz/crm/internal/tokens"
)

type branchBackend struct {
	mu       sync.Mutex
	branches []map[string]any
	lists    int
	failList bool
	queries  []string
}

func (b *branchBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		b.lists++
		b.queries = append(b.queries, r.URL.RawQuery)
		if b.failList {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(b.branches)
	case r.Method == http.MethodPost:
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["name"] == "Dublikat" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"non_field_errors":["Bunday filial mavjud"]}`))
			return
		}
		in["id"] = len(b.branches) + 1
		b.branches = append(b.branches, in)
		_ = json.NewEncoder(w).Encode(in)
	case r.Method == http.MethodDelete:
		b.branches = b.branches[:0]
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *branchBackend) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

func newBranchManager(t *testing.T, b *branchBackend, actor crm.Actor) *Manager[crm.Branch, BranchInput, crm.BranchPatch] {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	store := tokens.New(storage.NewMemory())
	svc := crm.New(backend.New(srv.URL, backend.WithTokenSource(store)), store, crm.WithFallback(false), crm.WithInitialActor(actor))
	pages := Pages(func() *crm.Service { return svc })
	return pages["filial"].(*Manager[crm.Branch, BranchInput, crm.BranchPatch])
}

func TestLoadAndSearch(t *testing.T) {
	b := &branchBackend{branches: []map[string]any{{"id": 1, "name": "Bosh ofis"}, {"id": 2, "name": "Chilonzor"}}}
	m := newBranchManager(t, b, crm.Actor{UserID: 7})
	if v := m.View(); v.Status != StatusLoading {
		t.Fatalf("initial status = %s", v.Status)
	}
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Search("chil")
	v := m.View()
	if v.Status != StatusReady || v.Total != 2 || len(v.Items) != 1 || v.Items[0].Name != "Chilonzor" {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestCreateFailureKeepsModalOpen(t *testing.T) {
	b := &branchBackend{}
	m := newBranchManager(t, b, crm.Actor{UserID: 7})
	ctx := context.Background()
	_ = m.Load(ctx)

	m.OpenCreate()
	if err := m.Create(ctx, BranchInput{Name: "Dublikat"}); err == nil {
		t.Fatal("expected error")
	}
	v := m.View()
	if v.Modal == nil || v.Modal.Mode != ModalCreate || v.Modal.Error != "Bunday filial mavjud" {
		t.Fatalf("unexpected modal %+v", v.Modal)
	}
	if b.listCalls() != 1 {
		t.Fatalf("failed submit must not reload, lists = %d", b.listCalls())
	}

	if err := m.Create(ctx, BranchInput{Name: "Yunusobod"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	v = m.View()
	if v.Modal != nil || len(v.Items) != 1 || v.Notice == "" {
		t.Fatalf("unexpected view after create %+v", v)
	}
	if b.listCalls() != 2 {
		t.Fatalf("expected reload after create, lists = %d", b.listCalls())
	}
	if m.View().Notice != "" {
		t.Fatal("notice should be consumed by the first read")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	b := &branchBackend{branches: []map[string]any{{"id": 1, "name": "Bosh ofis"}}}
	m := newBranchManager(t, b, crm.Actor{UserID: 7})
	ctx := context.Background()
	_ = m.Load(ctx)

	if err := m.Delete(ctx, 1, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if err := m.Delete(ctx, 1, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v := m.View(); len(v.Items) != 0 || b.listCalls() != 2 {
		t.Fatalf("expected reload to empty list, got %+v (%d lists)", v, b.listCalls())
	}
}

func TestLoadFailureShowsDismissibleBanner(t *testing.T) {
	b := &branchBackend{branches: []map[string]any{{"id": 1, "name": "Bosh ofis"}}}
	m := newBranchManager(t, b, crm.Actor{UserID: 7})
	ctx := context.Background()
	_ = m.Load(ctx)

	b.mu.Lock()
	b.failList = true
	b.mu.Unlock()
	if err := m.Load(ctx); err == nil {
		t.Fatal("expected load error")
	}
	v := m.View()
	if v.Error == "" || v.Status != StatusReady || len(v.Items) != 1 {
		t.Fatalf("expected banner over previous items, got %+v", v)
	}
	m.DismissError()
	if m.View().Error != "" {
		t.Fatal("banner should be dismissed")
	}
}

func TestSetTarget(t *testing.T) {
	b := &branchBackend{}
	admin := newBranchManager(t, b, crm.Actor{UserID: 7, Role: crm.RoleAdmin})
	if err := admin.SetTarget(context.Background(), 9); !errors.Is(err, crm.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	root := newBranchManager(t, b, crm.Actor{UserID: 1, Role: crm.RoleSuperadmin})
	if err := root.SetTarget(context.Background(), 9); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	b.mu.Lock()
	last := b.queries[len(b.queries)-1]
	b.mu.Unlock()
	if last != "user_id=9" || root.View().Target != 9 {
		t.Fatalf("query = %q target = %d", last, root.View().Target)
	}
}

func TestJSONSurface(t *testing.T) {
	b := &branchBackend{}
	m := newBranchManager(t, b, crm.Actor{UserID: 7})
	var p Page = m
	ctx := context.Background()
	if err := p.CreateJSON(ctx, []byte(`{"name":"Sergeli"}`)); err != nil {
		t.Fatalf("CreateJSON: %v", err)
	}
	if err := p.CreateJSON(ctx, []byte(`{`)); !errors.Is(err, crm.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	v, ok := p.Snapshot().(View[crm.Branch])
	if !ok || len(v.Items) != 1 || v.Items[0].Name != "Sergeli" {
		t.Fatalf("unexpected snapshot %#v", p.Snapshot())
	}
}

func TestUnsupportedAction(t *testing.T) {
	pages := Pages(func() *crm.Service { return nil })
	if err := pages["subscriptions"].UpdateJSON(context.Background(), 1, []byte(`{}`)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadKeepsSessionTarget(t *testing.T) {
	b := &branchBackend{}
	m := newBranchManager(t, b, crm.Actor{UserID: 1, Role: crm.RoleSuperadmin, Target: 9})
	ctx := context.Background()

	if err := m.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.SetTarget(ctx, 11); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := m.SetTarget(ctx, 0); err != nil {
		t.Fatalf("SetTarget(0): %v", err)
	}

	b.mu.Lock()
	got := append([]string(nil), b.queries...)
	b.mu.Unlock()
	want := []string{"user_id=9", "user_id=11", "user_id=9"}
	if len(got) != len(want) {
		t.Fatalf("queries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queries = %v, want %v", got, want)
		}
	}
}
