// internal/acl/types.go
package acl

import (
	"fmt"
	"strings"
)

// Permission is the effect a rule grants to its principal.
type Permission string

const (
	// Allow grants access to the matched principal
	Allow Permission = "allow"

	// Deny refuses access to the matched principal
	Deny Permission = "deny"
)

// Valid reports whether the permission is one of the known values.
func (p Permission) Valid() bool {
	return p == Allow || p == Deny
}

// Category principals are reserved tags evaluated against the request
// rather than against the caller's role set. The "$" prefix keeps them
// out of the role-string namespace.
const (
	// Everyone matches every request, authenticated or not
	Everyone = "$everyone"

	// Authenticated matches requests carrying a resolved identity
	Authenticated = "$authenticated"

	// Owner matches requests whose path contains the identity's id
	Owner = "$owner"
)

// Principal is either one of the reserved category tags or an
// arbitrary role string matched against the session's role set.
type Principal string

// IsCategory reports whether the principal is a reserved category tag.
func (p Principal) IsCategory() bool {
	switch string(p) {
	case Everyone, Authenticated, Owner:
		return true
	}
	return false
}

// IsRole reports whether the principal is a caller-supplied role
// string. Unknown "$"-prefixed values are neither: they are rejected
// at declaration time.
func (p Principal) IsRole() bool {
	return p != "" && !strings.HasPrefix(string(p), "$")
}

// Validate rejects principals that are neither a reserved category nor
// a role string.
func (p Principal) Validate() error {
	if p == "" {
		return fmt.Errorf("empty principal")
	}
	if strings.HasPrefix(string(p), "$") && !p.IsCategory() {
		return fmt.Errorf("unknown category principal: %q", p)
	}
	return nil
}

// Rule binds a principal to a permission, optionally scoped to a named
// action. Rules are immutable once declared.
type Rule struct {
	// Principal is the category tag or role string this rule targets
	Principal Principal `json:"principal" yaml:"principal"`

	// Permission is the effect for the matched principal
	Permission Permission `json:"permission" yaml:"permission"`

	// Action scopes the rule to one action. Empty means the rule is
	// local to whichever action it is resolved for.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// Validate rejects malformed rules at declaration time.
func (r Rule) Validate() error {
	if err := r.Principal.Validate(); err != nil {
		return err
	}
	if !r.Permission.Valid() {
		return fmt.Errorf("unknown permission: %q", r.Permission)
	}
	return nil
}

// Metadata is the effective, deduplicated rule set for one action.
// Skip means authorization is bypassed entirely for the action, which
// is distinct from an empty declared rule set (evaluated, allows by
// default).
type Metadata struct {
	Rules []Rule
	Skip  bool
}
