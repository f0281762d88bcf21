// internal/tls/config.go
package tls

import (
	"crypto/tls"
	"fmt"

	"aclgate/internal/observability/logging"
)

// Config holds the inputs for building the server TLS configuration.
type Config struct {
	// Logger for setup diagnostics
	Logger *logging.Logger

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string
}

// GetTLSConfig loads the server keypair and returns a TLS
// configuration for the listener.
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server keypair: %w", err)
	}

	if c.Logger != nil {
		c.Logger.WithModule("tls").Debug("Loaded server keypair",
			"cert", c.CertPath, "key", c.KeyPath)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
