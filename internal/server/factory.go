// internal/server/factory.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"

	"aclgate/internal/acl"
	"aclgate/internal/acl/registry"
	"aclgate/internal/auth"
	"aclgate/internal/auth/static"
	"aclgate/internal/auth/token"
	jwtcodec "aclgate/internal/auth/token/jwt"
	oidccodec "aclgate/internal/auth/token/oidc"
	"aclgate/internal/authz"
	"aclgate/internal/config"
	"aclgate/internal/observability"
	"aclgate/internal/observability/logging"
	"aclgate/internal/proxy/router"
	tlsconfig "aclgate/internal/tls"
)

// NewFromConfig creates a new server from configuration
func NewFromConfig(cfg *config.Config) (*Server, error) {
	// Initialize observability
	obs, err := observability.NewProvider(cfg.Observability.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Load ACL declarations
	decls := &config.Declarations{}
	if cfg.ACL.Path != "" {
		decls, err = config.LoadDeclarations(cfg.ACL.Path)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("No ACL declarations file configured, all routes are undeclared")
	}

	// Register declarations; malformed rules fail here, not at request time
	reg := registry.New()
	if err := registerDeclarations(reg, decls); err != nil {
		return nil, err
	}

	// Build the default metadata for undeclared resources
	var defaults *acl.Metadata
	if len(decls.DefaultRules) > 0 {
		defaultRules, err := convertRules(decls.DefaultRules)
		if err != nil {
			return nil, fmt.Errorf("default rules: %w", err)
		}
		defaults = &acl.Metadata{Rules: defaultRules}
	}

	// Initialize the credential codec
	codec, err := createCodec(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize identity resolution and the ACL pipeline
	resolver := static.New(decls.Subjects)
	authenticator := auth.NewAuthenticator(cfg.Token.Codec, codec, resolver, logger, obs.Metrics)
	engine := authz.NewEngine(logger)
	orchestrator := authz.NewOrchestrator(authenticator, engine, reg, defaults, logger, obs.Metrics)

	// Initialize TLS configuration
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup := &tlsconfig.Config{
			Logger:   logger,
			CertPath: cfg.TLS.CertPath,
			KeyPath:  cfg.TLS.KeyPath,
		}
		tlsCfg, err = tlsSetup.GetTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	// Initialize the router
	proxyRouter := router.New(router.Config{
		UpstreamURL:     cfg.Upstream.URL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		Actions:         convertActions(decls),
	}, orchestrator, logger, obs.Metrics)

	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	// Create complete middleware chain: observability -> router (the
	// ACL middleware is attached per route by the router)
	handler := obs.Middleware(proxyRouter)

	srv := New(serverConfig, handler, obs.MetricsHandler(), logger)
	return srv, nil
}

// registerDeclarations feeds the declarations file into the registry.
// A resource or action counts as declared only when it carries rules
// or a skip flag; an action listed purely for routing stays
// undeclared so the default policy can apply.
func registerDeclarations(reg *registry.Registry, decls *config.Declarations) error {
	for _, resource := range decls.Resources {
		if len(resource.Rules) > 0 || resource.Skip != nil {
			rules, err := convertRules(resource.Rules)
			if err != nil {
				return fmt.Errorf("resource %q: %w", resource.Name, err)
			}
			if err := reg.DeclareResource(resource.Name, registry.Declaration{
				Rules: rules,
				Skip:  resource.Skip,
			}); err != nil {
				return err
			}
		}
		for _, action := range resource.Actions {
			if len(action.Rules) == 0 && action.Skip == nil {
				continue
			}
			rules, err := convertRules(action.Rules)
			if err != nil {
				return fmt.Errorf("resource %q action %q: %w", resource.Name, action.Name, err)
			}
			if err := reg.DeclareAction(resource.Name, action.Name, registry.Declaration{
				Rules: rules,
				Skip:  action.Skip,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertRules converts config.RuleSpec to acl.Rule
func convertRules(specs []config.RuleSpec) ([]acl.Rule, error) {
	rules := make([]acl.Rule, len(specs))
	for i, spec := range specs {
		rule := acl.Rule{
			Principal:  acl.Principal(spec.Principal),
			Permission: acl.Permission(spec.Permission),
			Action:     spec.Action,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules[i] = rule
	}
	return rules, nil
}

// convertActions flattens the declared resources into router actions
func convertActions(decls *config.Declarations) []router.Action {
	var actions []router.Action
	for _, resource := range decls.Resources {
		for _, action := range resource.Actions {
			actions = append(actions, router.Action{
				Resource:    resource.Name,
				Name:        action.Name,
				Path:        action.Path,
				MatchPrefix: action.MatchPrefix,
				Methods:     action.Methods,
			})
		}
	}
	return actions
}

// createCodec builds the configured credential codec
func createCodec(cfg *config.Config, logger *logging.Logger) (token.Codec, error) {
	switch cfg.Token.Codec {
	case "jwt":
		return jwtcodec.New(jwtcodec.Config{
			Secret:    cfg.Token.Secret,
			ExpiresIn: cfg.Token.ExpiresIn,
		}, logger), nil
	case "oidc":
		codec, err := oidccodec.New(context.Background(), oidccodec.Config{
			Issuer:   cfg.Token.OIDCIssuer,
			ClientID: cfg.Token.OIDCClientID,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OIDC codec: %w", err)
		}
		return codec, nil
	default:
		return nil, fmt.Errorf("unknown token codec: %q", cfg.Token.Codec)
	}
}
