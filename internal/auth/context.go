package auth

import "context"

type contextKey string

const authKey contextKey = "auth"

// AuthContext carries the authenticated identity through a request.
type AuthContext struct {
	UserID    int64
	SessionID int64
}

// WithAuth returns a context carrying the authenticated identity.
func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authKey, ac)
}

// FromContext extracts the authenticated identity, if any.
func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(authKey).(AuthContext)
	return ac, ok
}

// UserID returns the authenticated user id, or zero when unauthenticated.
func UserID(ctx context.Context) int64 {
	ac, _ := FromContext(ctx)
	return ac.UserID
}
