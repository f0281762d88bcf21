// internal/auth/token/oidc/codec.go
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aclgate/internal/auth/token"
	"aclgate/internal/observability/logging"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/exp/slices"
)

// Config holds OIDC codec configuration.
type Config struct {
	// Issuer is the token issuer URL
	Issuer string

	// ClientID is the audience expected in presented tokens
	ClientID string
}

// Codec verifies externally issued OIDC ID tokens. It is decode-only:
// credentials are minted by the identity provider, so Encode reports
// an unsupported operation.
type Codec struct {
	verifier *oidc.IDTokenVerifier
	clientID string
	logger   *logging.Logger
}

// audiences helps unmarshall the audience claim which can be either a
// string or an array
type audiences []string

func (a *audiences) UnmarshalJSON(data []byte) error {
	// Try as a single string
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = []string{single}
		return nil
	}

	// Try as an array of strings
	var multiple []string
	if err := json.Unmarshal(data, &multiple); err == nil {
		*a = multiple
		return nil
	}

	return fmt.Errorf("invalid audience claim format")
}

// New creates an OIDC codec by discovering the issuer's verification
// keys.
func New(ctx context.Context, config Config, logger *logging.Logger) (*Codec, error) {
	logger = logger.WithModule("token.oidc")

	if config.Issuer == "" {
		return nil, fmt.Errorf("OIDC codec enabled but no issuer provided")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("OIDC codec enabled but no client ID provided")
	}

	logger.Debug("Initializing OIDC provider", "issuer", config.Issuer)
	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          config.ClientID,
		SkipClientIDCheck: true, // We do our own checks for better error reporting
	})

	return &Codec{
		verifier: verifier,
		clientID: config.ClientID,
		logger:   logger,
	}, nil
}

// Encode is unsupported: the codec cannot mint tokens on behalf of the
// identity provider.
func (c *Codec) Encode(ctx context.Context, payload token.Payload, expiresIn int64) (token.Details, error) {
	return token.Details{}, token.NewError(token.CodeEncodingUnsupported,
		"OIDC credentials are issued by the identity provider.", token.ErrMisconfigured)
}

// Decode verifies the ID token and returns its subject as the payload.
func (c *Codec) Decode(ctx context.Context, credential string) (token.Payload, error) {
	credential = strings.TrimPrefix(credential, "Bearer ")
	if credential == "" {
		return token.Payload{}, token.NewError(token.CodeNoToken,
			"Verifying token is empty.", nil)
	}

	idToken, err := c.verifier.Verify(ctx, credential)
	if err != nil {
		return token.Payload{}, token.NewError(token.CodeVerifyingError, err.Error(), err)
	}

	var claims struct {
		Subject string    `json:"sub"`
		Azp     string    `json:"azp,omitempty"`
		Aud     audiences `json:"aud,omitempty"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return token.Payload{}, token.NewError(token.CodeVerifyingError,
			"Failed to parse token claims.", err)
	}

	if claims.Azp != c.clientID && !slices.Contains(claims.Aud, c.clientID) {
		c.logger.Debug("Token audience mismatch",
			"expectedClientID", c.clientID, "aud", claims.Aud, "azp", claims.Azp)
		return token.Payload{}, token.NewError(token.CodeVerifyingError,
			"Invalid token audience.", nil)
	}

	return token.Payload{SubjectID: claims.Subject}, nil
}
