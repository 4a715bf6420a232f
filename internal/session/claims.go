package session

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates the token could not be decoded.
var ErrInvalidToken = errors.New("session: invalid token")

// Claims are the parts of the backend's access token the client looks at.
// The signature is not checked here; the backend does that on every call.
type Claims struct {
	UserID any    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ID returns user_id, falling back to the subject.
func (c *Claims) ID() int {
	switch v := c.UserID.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	n, _ := strconv.Atoi(strings.TrimSpace(c.Subject))
	return n
}

// Expired reports whether exp is set and not after now. A skew of a few
// seconds counts as expired so the refresh happens before the backend rejects.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !c.ExpiresAt.Time.After(now.Add(5 * time.Second))
}

// Inspect decodes the token's claims without verifying its signature.
func Inspect(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
