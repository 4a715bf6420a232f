package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *staticTokens) set(v string) {
	s.mu.Lock()
	s.token = v
	s.mu.Unlock()
}

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestDoAttachesHeadersAndBearer(t *testing.T) {
	var got http.Header
	var body map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Query().Get("user_id") != "7" {
			t.Errorf("missing query, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	c := New(srv.URL+"/", WithTokenSource(&staticTokens{token: "A"}))
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/utils/branches/",
		Query:  map[string][]string{"user_id": {"7"}},
		Body:   map[string]any{"name": "HQ"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Get("Authorization") != "Bearer A" {
		t.Fatalf("authorization = %q", got.Get("Authorization"))
	}
	if got.Get("Content-Type") != "application/json" || got.Get("Accept") != "application/json" {
		t.Fatalf("unexpected content headers: %v", got)
	}
	if got.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID")
	}
	if body["name"] != "HQ" {
		t.Fatalf("unexpected body: %v", body)
	}
	if m, ok := resp.Data.(map[string]any); !ok || m["ok"] != true {
		t.Fatalf("unexpected data: %#v", resp.Data)
	}
}

func TestAuthPathsSkipBearer(t *testing.T) {
	for _, path := range []string{LoginPath, RefreshPath} {
		path := path
		t.Run(path, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if h := r.Header.Get("Authorization"); h != "" {
					t.Errorf("unexpected authorization header %q", h)
				}
				_, _ = w.Write([]byte(`{}`))
			})
			c := New(srv.URL, WithTokenSource(&staticTokens{token: "A"}))
			if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: path, Body: map[string]any{}}); err != nil {
				t.Fatalf("Do: %v", err)
			}
		})
	}
}

func TestNonJSONBodyWrappedAsRaw(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	})
	resp, err := New(srv.URL).Do(context.Background(), Request{Path: "/x/"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	m, ok := resp.Data.(map[string]any)
	if !ok || m["raw"] != "plain text" {
		t.Fatalf("expected raw wrapper, got %#v", resp.Data)
	}
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non_field_errors wins over detail", 400, `{"non_field_errors":["first","second"],"detail":"d"}`, "first"},
		{"detail", 400, `{"detail":"d","message":"m"}`, "d"},
		{"message", 409, `{"message":"m","error":"e"}`, "m"},
		{"error", 500, `{"error":"e"}`, "e"},
		{"generic", 404, `{"name":["required"]}`, "HTTP 404: Not Found"},
		{"raw body", 502, `<html>bad gateway</html>`, "HTTP 502: Bad Gateway"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := New(srv.URL).Do(context.Background(), Request{Path: "/x/"})
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if be.Message != tc.want {
				t.Fatalf("message = %q, want %q", be.Message, tc.want)
			}
			if be.Status != tc.status {
				t.Fatalf("status = %d", be.Status)
			}
			if be.Data == nil {
				t.Fatal("expected decoded body on error")
			}
		})
	}
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Do(context.Background(), Request{Path: "/x/"})
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if StatusOf(err) != 0 {
		t.Fatalf("expected no status, got %d", StatusOf(err))
	}
}

func TestUnauthorizedRefreshesOnceAndReplays(t *testing.T) {
	tokens := &staticTokens{token: "old"}
	var served int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&served, 1)
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	c := New(srv.URL, WithTokenSource(tokens))
	var refreshes int64
	release := make(chan struct{})
	c.SetRefresher(func(ctx context.Context) error {
		atomic.AddInt64(&refreshes, 1)
		<-release
		tokens.set("new")
		return nil
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			_, err := c.Do(context.Background(), Request{Path: "/person/employees/"})
			errs <- err
		}()
	}
	started.Wait()
	for atomic.LoadInt64(&served) < callers {
		time.Sleep(time.Millisecond)
	}
	// give every caller time to join the in-flight refresh
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("expected replay to succeed, got %v", err)
		}
	}
	if got := atomic.LoadInt64(&refreshes); got != 1 {
		t.Fatalf("expected a single refresh, got %d", got)
	}
}

func TestFailedRefreshReturnsOriginal401(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"expired"}`))
	})
	c := New(srv.URL, WithTokenSource(&staticTokens{token: "x"}))
	c.SetRefresher(func(ctx context.Context) error { return errors.New("refresh rejected") })

	_, err := c.Do(context.Background(), Request{Path: "/day/shifts/"})
	if StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if err.Error() != "expired" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
