package auth

import (
	"context"

	"wtfSocial/domain"
)

type contextKey int

const userKey contextKey = iota

// WithUser returns a copy of ctx carrying the signed in user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the signed in user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}
