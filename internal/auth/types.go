// internal/auth/types.go
package auth

import (
	"context"

	"aclgate/internal/auth/token"
)

// Identity represents a resolved caller.
type Identity struct {
	// ID is the unique identifier for this identity. It is the value
	// compared against request path segments for ownership checks.
	ID string

	// Attributes contains additional identity information supplied by
	// the resolver
	Attributes map[string]interface{}
}

// Session is the per-request authentication state consumed by the
// authorization engine. It is allocated fresh for every request and
// never shared across requests or persisted: sharing one would leak a
// caller's identity into another caller's decision.
type Session struct {
	// Identity is the resolved caller, nil for anonymous requests
	Identity *Identity

	// Roles is the caller's role set, empty for anonymous requests
	Roles []string
}

// NewSession creates an empty session for one request.
func NewSession() *Session {
	return &Session{Roles: []string{}}
}

// IdentityResolver maps decoded credentials to identities and
// identities to role sets. Implementations own the identity store; the
// core only holds the resolved identity for the request's duration.
type IdentityResolver interface {
	// ResolveIdentity returns the identity for a decoded payload, or
	// nil when the payload maps to no known subject.
	ResolveIdentity(ctx context.Context, payload token.Payload) (*Identity, error)

	// ResolveRoles returns the role-like labels of an identity. Return
	// an empty slice if roles are unused.
	ResolveRoles(ctx context.Context, identity *Identity) ([]string, error)
}
