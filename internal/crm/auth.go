package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"timepay.uz/crm/internal/backend"
	"timepay.uz/crm/internal/obs"
)

const mePath = "/user/me/"

// Credentials are what the login form collects.
type Credentials struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

// LoginResult carries the stored token pair and the user when the backend
// included it in the login reply.
type LoginResult struct {
	Access  string
	Refresh string
	User    *User
}

// FormatPhone normalizes to +<country code><digits>. A 9-digit local number
// gets the default country code; anything else keeps its digits.
func FormatPhone(phone string) string {
	return formatPhone(DefaultCountryCode, phone)
}

func formatPhone(code, phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 9 {
		digits = code + digits
	}
	return "+" + digits
}

// Login posts the credentials, stores the returned tokens and returns them.
func (s *Service) Login(ctx context.Context, c Credentials) (LoginResult, error) {
	payload := map[string]any{
		"phone_number": formatPhone(s.countryCode, c.PhoneNumber),
		"password":     c.Password,
	}
	data, err := s.client.JSON(ctx, http.MethodPost, backend.LoginPath, nil, payload)
	if err != nil {
		return LoginResult{}, translateLogin(err)
	}
	access, refresh := extractTokens(data)
	if access == "" {
		return LoginResult{}, &Error{Op: "auth.login", Message: msgNoToken, Err: ErrNoToken}
	}
	if err := s.tokens.SetTokens(ctx, access, refresh); err != nil {
		return LoginResult{}, fmt.Errorf("store tokens: %w", err)
	}
	res := LoginResult{Access: access, Refresh: refresh}
	if um := asMap(unwrap(data)["user"]); um != nil {
		u := decodeUser(um)
		res.User = &u
	}
	return res, nil
}

// extractTokens checks data.access, then access, then token.
func extractTokens(data any) (access, refresh string) {
	m := asMap(data)
	if inner := asMap(m["data"]); inner != nil {
		if a := str(inner, "access"); a != "" {
			return a, str(inner, "refresh")
		}
	}
	if a := str(m, "access"); a != "" {
		return a, str(m, "refresh")
	}
	return str(m, "token"), str(m, "refresh")
}

// RefreshToken rotates the stored tokens. Any failure clears both tokens so
// the user has to log in again.
func (s *Service) RefreshToken(ctx context.Context) error {
	rt, err := s.tokens.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if rt == "" {
		_ = s.tokens.Clear(ctx)
		return ErrNoRefreshToken
	}
	data, err := s.client.JSON(ctx, http.MethodPost, backend.RefreshPath, nil, map[string]any{"refresh": rt})
	if err == nil {
		access, refresh := extractTokens(data)
		if access == "" {
			err = ErrNoToken
		} else {
			err = s.tokens.SetTokens(ctx, access, refresh)
		}
	}
	if err != nil {
		obs.Warn("token_refresh_failed", map[string]any{"error": err.Error()})
		if cerr := s.tokens.Clear(ctx); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return nil
}

// CurrentUser fetches the authenticated user.
func (s *Service) CurrentUser(ctx context.Context) (User, error) {
	data, err := s.client.JSON(ctx, http.MethodGet, mePath, nil, nil)
	if err != nil {
		return User{}, translate("auth.me", err)
	}
	return decodeUser(unwrap(data)), nil
}

func decodeUser(m map[string]any) User {
	name := str(m, "full_name", "name")
	if name == "" {
		name = strings.TrimSpace(str(m, "first_name") + " " + str(m, "last_name"))
	}
	role := Role(strings.ToLower(str(m, "role")))
	if role != RoleSuperadmin {
		role = RoleAdmin
	}
	return User{
		ID:          integer(m, "id", "user_id"),
		FullName:    name,
		PhoneNumber: str(m, "phone_number", "phone"),
		Role:        role,
		IsActive:    boolean(m, "is_active", "active"),
	}
}
