// Package guard composes the row-visibility predicate attached to protected
// entities and carries the acting principal through request context.
//
// Principal identity is established upstream; this package only transports
// the opaque id. All predicates receive the principal id explicitly, never
// from ambient state, and default to deny.
package guard

import "context"

type principalContextKey struct{}

// WithPrincipal stores the acting principal id in the context.
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principalID)
}

// PrincipalFromContext extracts the acting principal id. The empty string
// means no principal was established, which fails every check.
func PrincipalFromContext(ctx context.Context) string {
	id, _ := ctx.Value(principalContextKey{}).(string)
	return id
}
