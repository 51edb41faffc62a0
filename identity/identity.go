package identity

import "context"

type ctxKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the authenticated user id, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// ContextProvider resolves the current user from the request context.
type ContextProvider struct{}

// CurrentUser implements the identity lookup used by the points service.
func (ContextProvider) CurrentUser(ctx context.Context) (string, bool) {
	return FromContext(ctx)
}
