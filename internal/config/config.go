// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	Settings.PopulateViperDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix("ACLGATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Load from config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// It's okay if the config file doesn't exist, but other errors should be reported
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config := &Config{}

	// Populate server configuration
	config.Server.Address = v.GetString("SERVER_ADDR")
	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	config.Server.ShutdownTimeout = shutdownTimeout

	// Populate metrics configuration
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	// Populate TLS configuration
	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")

	// Populate upstream configuration
	upstreamURL, err := url.Parse(v.GetString("UPSTREAM_URL"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	config.Upstream.URL = upstreamURL

	upstreamTimeout, err := time.ParseDuration(v.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream timeout: %w", err)
	}
	config.Upstream.Timeout = upstreamTimeout

	// Populate token codec configuration
	config.Token.Codec = v.GetString("TOKEN_CODEC")
	config.Token.Secret = v.GetString("TOKEN_SECRET")
	config.Token.ExpiresIn = v.GetInt64("TOKEN_EXPIRES_IN")
	config.Token.OIDCIssuer = v.GetString("TOKEN_OIDC_ISSUER")
	config.Token.OIDCClientID = v.GetString("TOKEN_OIDC_CLIENT_ID")

	// Populate ACL configuration
	config.ACL.Path = v.GetString("ACL_PATH")

	// Populate observability configuration
	config.Observability.LogLevel = v.GetString("LOG_LEVEL")

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Upstream.URL == nil || cfg.Upstream.URL.String() == "" {
		return fmt.Errorf("upstream URL is required")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}

		// Check if certificate and key files exist
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	// Validate token codec configuration
	switch cfg.Token.Codec {
	case "jwt":
		// An empty secret is tolerated until the codec is first used,
		// so a gateway fronting only public routes still starts.
	case "oidc":
		if cfg.Token.OIDCIssuer == "" {
			return fmt.Errorf("OIDC issuer is required when the oidc codec is selected")
		}
		if cfg.Token.OIDCClientID == "" {
			return fmt.Errorf("OIDC client ID is required when the oidc codec is selected")
		}
	default:
		return fmt.Errorf("unknown token codec: %q", cfg.Token.Codec)
	}

	if cfg.ACL.Path != "" {
		if _, err := os.Stat(cfg.ACL.Path); os.IsNotExist(err) {
			return fmt.Errorf("ACL declarations file not found: %s", cfg.ACL.Path)
		}
	}

	return nil
}

// LoadDeclarations loads the ACL declarations file (default rules,
// resources with their actions and rules, subject table).
func LoadDeclarations(path string) (*Declarations, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read declarations file: %w", err)
	}

	decls := &Declarations{}
	if err := v.Unmarshal(decls); err != nil {
		return nil, fmt.Errorf("failed to parse declarations file: %w", err)
	}

	if err := validateDeclarations(decls); err != nil {
		return nil, err
	}

	return decls, nil
}

// validateDeclarations checks structural properties of the
// declarations file. Rule-level validation (unknown permissions,
// malformed principals) happens when the rules are registered.
func validateDeclarations(decls *Declarations) error {
	seen := make(map[string]bool, len(decls.Resources))
	for _, resource := range decls.Resources {
		if resource.Name == "" {
			return fmt.Errorf("declarations: resource without a name")
		}
		if seen[resource.Name] {
			return fmt.Errorf("declarations: duplicate resource %q", resource.Name)
		}
		seen[resource.Name] = true

		actions := make(map[string]bool, len(resource.Actions))
		for _, action := range resource.Actions {
			if action.Name == "" {
				return fmt.Errorf("declarations: resource %q: action without a name", resource.Name)
			}
			if actions[action.Name] {
				return fmt.Errorf("declarations: resource %q: duplicate action %q", resource.Name, action.Name)
			}
			actions[action.Name] = true
			if action.Path == "" {
				return fmt.Errorf("declarations: resource %q action %q: path is required", resource.Name, action.Name)
			}
		}
	}

	subjects := make(map[string]bool, len(decls.Subjects))
	for _, subject := range decls.Subjects {
		if subject.ID == "" {
			return fmt.Errorf("declarations: subject without an id")
		}
		if subjects[subject.ID] {
			return fmt.Errorf("declarations: duplicate subject %q", subject.ID)
		}
		subjects[subject.ID] = true
	}

	return nil
}
