package session

import (
	"context"

	"timepay.uz/crm/internal/crm"
)

type ctxKey string

const userKey ctxKey = "session_user"

// ContextWithUser stores the signed-in user in the context.
func ContextWithUser(ctx context.Context, u crm.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext extracts the user stored by ContextWithUser.
func UserFromContext(ctx context.Context) (crm.User, bool) {
	u, ok := ctx.Value(userKey).(crm.User)
	if !ok || u.ID <= 0 {
		return crm.User{}, false
	}
	return u, true
}
