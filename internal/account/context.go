package account

import "context"

type ctxKey string

const identityKey ctxKey = "account_identity"

// ContextWithIdentity stores a resolved identity in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.AccountID <= 0 {
		return Identity{}, false
	}
	return id, true
}

// HasRole checks whether the context carries an identity with the role.
func HasRole(ctx context.Context, role Role) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == role
}
