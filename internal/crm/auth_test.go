package crm

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync/atomic"
	"testing"
)

var phoneRe = regexp.MustCompile(`^\+998\d{9}$`)

func TestFormatPhoneIdempotent(t *testing.T) {
	inputs := []string{
		"901234567",
		"90 123 45 67",
		"+998901234567",
		"998901234567",
		"+998 (90) 123-45-67",
		"(90) 123-45-67",
	}
	for _, in := range inputs {
		once := FormatPhone(in)
		if !phoneRe.MatchString(once) {
			t.Fatalf("FormatPhone(%q)=%q does not match %s", in, once, phoneRe)
		}
		if twice := FormatPhone(once); twice != once {
			t.Fatalf("FormatPhone not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLoginStoresTokensAndAttachesBearer(t *testing.T) {
	svc, rec, store := newTestService(t, Actor{}, func(w http.ResponseWriter, c captured) {
		switch c.Path {
		case "/user/login/":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"access": "A", "refresh": "R"},
			})
		default:
			writeJSON(w, http.StatusOK, []any{})
		}
	})
	ctx := context.Background()

	res, err := svc.Login(ctx, Credentials{PhoneNumber: "901234567", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	login := rec.last(t)
	if login.Body["phone_number"] != "+998901234567" || login.Body["password"] != "secret" {
		t.Fatalf("unexpected login body %v", login.Body)
	}
	if login.Auth != "" {
		t.Fatalf("login must not carry a bearer, got %q", login.Auth)
	}
	if res.Access != "A" || res.Refresh != "R" {
		t.Fatalf("unexpected result %+v", res)
	}
	if a, _ := store.AccessToken(ctx); a != "A" {
		t.Fatalf("stored access = %q", a)
	}
	if r, _ := store.RefreshToken(ctx); r != "R" {
		t.Fatalf("stored refresh = %q", r)
	}

	if _, err := svc.Branches(ctx); err != nil {
		t.Fatalf("Branches: %v", err)
	}
	if got := rec.last(t).Auth; got != "Bearer A" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestExtractTokensEnvelopes(t *testing.T) {
	cases := []struct {
		name          string
		data          any
		access, fresh string
	}{
		{"nested", map[string]any{"data": map[string]any{"access": "A", "refresh": "R"}}, "A", "R"},
		{"top level", map[string]any{"access": "B", "refresh": "S"}, "B", "S"},
		{"token", map[string]any{"token": "C"}, "C", ""},
		{"none", map[string]any{"success": true}, "", ""},
	}
	for _, tc := range cases {
		a, r := extractTokens(tc.data)
		if a != tc.access || r != tc.fresh {
			t.Fatalf("%s: got (%q, %q)", tc.name, a, r)
		}
	}
}

func TestLoginWithoutTokenFails(t *testing.T) {
	svc, _, _ := newTestService(t, Actor{}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	_, err := svc.Login(context.Background(), Credentials{PhoneNumber: "901234567", Password: "x"})
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestLoginTranslatesKnownFailures(t *testing.T) {
	svc, _, _ := newTestService(t, Actor{}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
	})
	_, err := svc.Login(context.Background(), Credentials{PhoneNumber: "901234567", Password: "x"})
	var ce *Error
	if !errors.As(err, &ce) || ce.Message != msgBadCredentials {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRefreshRotatesTokensAndReplays(t *testing.T) {
	var meCalls atomic.Int32
	svc, rec, store := newTestService(t, Actor{UserID: 7}, func(w http.ResponseWriter, c captured) {
		switch c.Path {
		case "/user/auth/refresh/":
			if c.Body["refresh"] != "R" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "bad refresh"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"access": "A2"})
		case "/user/me/":
			meCalls.Add(1)
			if c.Auth != "Bearer A2" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": 7, "full_name": "Aliyev Jasur", "role": "admin"})
		}
	})
	ctx := context.Background()
	if err := store.SetTokens(ctx, "A1", "R"); err != nil {
		t.Fatal(err)
	}

	u, err := svc.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if u.ID != 7 || u.FullName != "Aliyev Jasur" || u.Role != RoleAdmin {
		t.Fatalf("unexpected user %+v", u)
	}
	if n := meCalls.Load(); n != 2 {
		t.Fatalf("expected one replay, got %d calls", n)
	}
	if a, _ := store.AccessToken(ctx); a != "A2" {
		t.Fatalf("access = %q", a)
	}
	if r, _ := store.RefreshToken(ctx); r != "R" {
		t.Fatalf("refresh should be preserved, got %q", r)
	}
	if rec.last(t).Path != "/user/me/" {
		t.Fatalf("last call should be the replay")
	}
}

func TestFailedRefreshClearsTokens(t *testing.T) {
	svc, _, store := newTestService(t, Actor{UserID: 7}, func(w http.ResponseWriter, c captured) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
	})
	ctx := context.Background()
	_ = store.SetTokens(ctx, "A1", "R")

	_, err := svc.CurrentUser(ctx)
	var ce *Error
	if !errors.As(err, &ce) || ce.Status != http.StatusUnauthorized {
		t.Fatalf("expected translated 401, got %v", err)
	}
	if a, _ := store.AccessToken(ctx); a != "" {
		t.Fatalf("access should be cleared, got %q", a)
	}
	if r, _ := store.RefreshToken(ctx); r != "" {
		t.Fatalf("refresh should be cleared, got %q", r)
	}
}

func TestDecodeUserDefaults(t *testing.T) {
	u := decodeUser(map[string]any{"id": 3.0, "first_name": "Ali", "last_name": "Valiyev", "role": "SUPERADMIN"})
	if u.FullName != "Ali Valiyev" || u.Role != RoleSuperadmin || u.PhoneNumber != "" || u.IsActive {
		t.Fatalf("unexpected user %+v", u)
	}
	if got := decodeUser(map[string]any{}); got.Role != RoleAdmin {
		t.Fatalf("role default = %q", got.Role)
	}
}
