// internal/auth/static/resolver.go
package static

import (
	"context"

	"aclgate/internal/auth"
	"aclgate/internal/auth/token"
)

// Subject is one entry of the configured identity table.
type Subject struct {
	// ID is the subject identifier carried in credentials
	ID string `json:"id" yaml:"id"`

	// Key, when set, must match the payload key of a presented
	// credential. Rotating it invalidates previously issued
	// credentials for this subject.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Roles is the subject's role set
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Resolver is a config-backed IdentityResolver: a fixed subject table
// loaded at startup. Suitable for gateways with a small, declarative
// caller population.
type Resolver struct {
	subjects map[string]Subject
}

var _ auth.IdentityResolver = (*Resolver)(nil)

// New creates a resolver from a subject table.
func New(subjects []Subject) *Resolver {
	m := make(map[string]Subject, len(subjects))
	for _, s := range subjects {
		m[s.ID] = s
	}
	return &Resolver{subjects: m}
}

// ResolveIdentity returns the identity for a decoded payload, nil when
// the subject is unknown or the payload key does not match.
func (r *Resolver) ResolveIdentity(ctx context.Context, payload token.Payload) (*auth.Identity, error) {
	subject, ok := r.subjects[payload.SubjectID]
	if !ok {
		return nil, nil
	}
	if subject.Key != "" && subject.Key != payload.Key {
		return nil, nil
	}
	return &auth.Identity{ID: subject.ID}, nil
}

// ResolveRoles returns the subject's configured roles.
func (r *Resolver) ResolveRoles(ctx context.Context, identity *auth.Identity) ([]string, error) {
	subject, ok := r.subjects[identity.ID]
	if !ok {
		return []string{}, nil
	}
	roles := make([]string, len(subject.Roles))
	copy(roles, subject.Roles)
	return roles, nil
}
