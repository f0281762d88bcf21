// internal/auth/context.go
package auth

import (
	"context"
)

// ContextKey is a type-safe key for context values
type ContextKey string

const (
	// SessionContextKey is the key used to store the session in the context
	SessionContextKey ContextKey = "auth:session"
)

// SessionFromContext extracts the session from the request context.
func SessionFromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(SessionContextKey).(*Session); ok {
		return sess
	}
	return nil
}

// ContextWithSession adds a session to a context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, sess)
}

// IdentityFromContext extracts the resolved identity from the request
// context, nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.Identity
	}
	return nil
}
