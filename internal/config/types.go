// internal/config/types.go
package config

import (
	"net/url"
	"time"

	"aclgate/internal/auth/static"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		// Address is the address to listen on for the metrics server
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		// Enabled indicates whether TLS is enabled
		Enabled bool
		// CertPath is the path to the TLS certificate
		CertPath string
		// KeyPath is the path to the TLS key
		KeyPath string
	}

	// Upstream holds configuration for the upstream service
	Upstream struct {
		// URL is the URL of the upstream service
		URL *url.URL
		// Timeout is the maximum time to wait for upstream responses
		Timeout time.Duration
	}

	// Token holds credential codec configuration
	Token struct {
		// Codec selects the credential codec ("jwt" or "oidc")
		Codec string
		// Secret is the JWT signing secret
		Secret string
		// ExpiresIn is the default credential lifetime in seconds
		ExpiresIn int64
		// OIDCIssuer is the issuer URL for the OIDC codec
		OIDCIssuer string
		// OIDCClientID is the expected audience for the OIDC codec
		OIDCClientID string
	}

	// ACL holds the path of the declarations file
	ACL struct {
		// Path is the path to the YAML declarations file
		Path string
	}

	// Observability holds observability configuration
	Observability struct {
		// LogLevel is the minimum log level to emit
		LogLevel string
	}
}

// Declarations is the content of the ACL declarations file: the
// guarded routes with their access rules, the optional default rule
// set for undeclared resources, and the subject table for the static
// identity resolver.
type Declarations struct {
	// DefaultRules is applied to actions of resources that declare
	// nothing at all; empty means undeclared actions are unrestricted
	DefaultRules []RuleSpec `mapstructure:"default_rules" yaml:"default_rules"`

	// Resources lists the guarded resources and their actions
	Resources []ResourceSpec `mapstructure:"resources" yaml:"resources"`

	// Subjects is the identity table for the static resolver
	Subjects []static.Subject `mapstructure:"subjects" yaml:"subjects"`
}

// RuleSpec is one declared access rule.
type RuleSpec struct {
	// Principal is a category tag ($everyone, $authenticated, $owner)
	// or a role string
	Principal string `mapstructure:"principal" yaml:"principal"`

	// Permission is "allow" or "deny"
	Permission string `mapstructure:"permission" yaml:"permission"`

	// Action scopes the rule to a named action; empty means local to
	// the action it is resolved for
	Action string `mapstructure:"action,omitempty" yaml:"action,omitempty"`
}

// ResourceSpec declares one guarded resource: its resource-level rules
// and its routed actions.
type ResourceSpec struct {
	// Name is the resource identifier
	Name string `mapstructure:"name" yaml:"name"`

	// Skip bypasses authorization for every action of the resource
	Skip *bool `mapstructure:"skip,omitempty" yaml:"skip,omitempty"`

	// Rules is the resource-level rule list
	Rules []RuleSpec `mapstructure:"rules,omitempty" yaml:"rules,omitempty"`

	// Actions lists the routed actions of the resource
	Actions []ActionSpec `mapstructure:"actions" yaml:"actions"`
}

// ActionSpec declares one routed action of a resource.
type ActionSpec struct {
	// Name is the action identifier
	Name string `mapstructure:"name" yaml:"name"`

	// Path is the URL path of the action (gorilla/mux syntax)
	Path string `mapstructure:"path" yaml:"path"`

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool `mapstructure:"match_prefix,omitempty" yaml:"match_prefix,omitempty"`

	// Methods is a list of HTTP methods this action applies to (empty = all methods)
	Methods []string `mapstructure:"methods,omitempty" yaml:"methods,omitempty"`

	// Skip bypasses authorization for this action
	Skip *bool `mapstructure:"skip,omitempty" yaml:"skip,omitempty"`

	// Rules is the action-level rule list
	Rules []RuleSpec `mapstructure:"rules,omitempty" yaml:"rules,omitempty"`
}
