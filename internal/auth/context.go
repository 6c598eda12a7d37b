package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a context carrying the authenticated identity.
// Each request gets its own context; there is no ambient session state.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
