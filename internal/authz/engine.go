// internal/authz/engine.go
package authz

import (
	"strings"

	"aclgate/internal/acl"
	"aclgate/internal/auth"
	"aclgate/internal/observability/logging"

	"golang.org/x/exp/slices"
)

// Engine computes allow/deny for one action from its effective
// metadata, the request session, and the request path.
type Engine struct {
	logger *logging.Logger
}

// NewEngine creates a decision engine.
func NewEngine(logger *logging.Logger) *Engine {
	return &Engine{logger: logger.WithModule("authz.engine")}
}

// Authorize evaluates the effective rule set. nil metadata means no
// policy applies and the request is allowed.
//
// Every rule is classified by its principal: specific when the
// principal is one of the session's roles, category when it is a
// reserved tag applicable to this request. Per class the engine tracks
// whether any allow rule and any deny rule matched; the first class
// with a verdict wins, in the order specific, $owner, $authenticated,
// $everyone. Within a class allow beats deny. Nothing matched means
// allow. Rule order never affects the outcome.
func (e *Engine) Authorize(md *acl.Metadata, sess *auth.Session, path string) bool {
	if md == nil {
		return true
	}

	var (
		allowedBySpecific, deniedBySpecific           bool
		allowedByOwner, deniedByOwner                 bool
		allowedByAuthenticated, deniedByAuthenticated bool
		allowedByEveryone, deniedByEveryone           bool
	)

	categories := categoryPrincipals(path, sess.Identity)

	for _, rule := range md.Rules {
		if slices.Contains(sess.Roles, string(rule.Principal)) {
			if rule.Permission == acl.Allow {
				allowedBySpecific = true
			}
			if rule.Permission == acl.Deny {
				deniedBySpecific = true
			}
		}
		if slices.Contains(categories, string(rule.Principal)) {
			switch string(rule.Principal) {
			case acl.Owner:
				if rule.Permission == acl.Allow {
					allowedByOwner = true
				}
				if rule.Permission == acl.Deny {
					deniedByOwner = true
				}
			case acl.Authenticated:
				if rule.Permission == acl.Allow {
					allowedByAuthenticated = true
				}
				if rule.Permission == acl.Deny {
					deniedByAuthenticated = true
				}
			case acl.Everyone:
				if rule.Permission == acl.Allow {
					allowedByEveryone = true
				}
				if rule.Permission == acl.Deny {
					deniedByEveryone = true
				}
			}
		}
	}

	// Apply specific rules in priority.
	if allowedBySpecific {
		return true
	}
	if deniedBySpecific {
		return false
	}
	// Then category rules, $owner first.
	if allowedByOwner {
		return true
	}
	if deniedByOwner {
		return false
	}
	if allowedByAuthenticated {
		return true
	}
	if deniedByAuthenticated {
		return false
	}
	if allowedByEveryone {
		return true
	}
	if deniedByEveryone {
		return false
	}
	// Allow by default.
	return true
}

// categoryPrincipals computes the reserved tags applicable to this
// request: $everyone always, $authenticated with an identity, $owner
// when the identity's id appears as a path segment.
func categoryPrincipals(path string, identity *auth.Identity) []string {
	principals := []string{acl.Everyone}
	if identity != nil {
		principals = append(principals, acl.Authenticated)
		if identityInPath(path, identity.ID) {
			principals = append(principals, acl.Owner)
		}
	}
	return principals
}

// identityInPath reports whether id occurs in path bounded by "/" on
// the left and "/", "?", or the end of the string on the right.
func identityInPath(path, id string) bool {
	if id == "" {
		return false
	}
	needle := "/" + id
	for from := 0; ; {
		i := strings.Index(path[from:], needle)
		if i < 0 {
			return false
		}
		end := from + i + len(needle)
		if end == len(path) || path[end] == '/' || path[end] == '?' {
			return true
		}
		from += i + 1
	}
}
