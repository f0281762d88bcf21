// internal/auth/token/jwt/codec.go
package jwt

import (
	"context"
	"fmt"
	"time"

	"aclgate/internal/auth/token"
	"aclgate/internal/observability/logging"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultExpiresIn is the default credential lifetime in seconds (14
// days).
const DefaultExpiresIn int64 = 1209600

// Config holds JWT codec configuration.
type Config struct {
	// Secret is the HMAC signing secret
	Secret string

	// ExpiresIn is the default credential lifetime in seconds, 0
	// meaning issued credentials never expire
	ExpiresIn int64
}

// Codec signs and verifies credentials as HS256 JSON Web Tokens.
type Codec struct {
	secret    string
	expiresIn int64
	logger    *logging.Logger
}

type claims struct {
	UID string `json:"uid"`
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// New creates a JWT codec. An empty secret is tolerated here and
// reported as a misconfiguration on first use, so a gateway without
// authentication configured still starts.
func New(config Config, logger *logging.Logger) *Codec {
	return &Codec{
		secret:    config.Secret,
		expiresIn: config.ExpiresIn,
		logger:    logger.WithModule("token.jwt"),
	}
}

// Encode signs the payload. expiresIn overrides the configured
// lifetime when positive; with both zero the token carries no expiry.
func (c *Codec) Encode(ctx context.Context, payload token.Payload, expiresIn int64) (token.Details, error) {
	if c.secret == "" {
		return token.Details{}, token.NewError(token.CodeNoSecret,
			"Token secret is empty.", token.ErrMisconfigured)
	}

	if expiresIn <= 0 {
		expiresIn = c.expiresIn
	}

	cl := claims{
		UID: payload.SubjectID,
		Key: payload.Key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if expiresIn > 0 {
		cl.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Duration(expiresIn) * time.Second))
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(c.secret))
	if err != nil {
		return token.Details{}, token.NewError(token.CodeEncodingError, err.Error(), err)
	}

	return token.Details{Value: value, ExpiresIn: expiresIn}, nil
}

// Decode verifies the credential signature and expiry and returns its
// payload.
func (c *Codec) Decode(ctx context.Context, credential string) (token.Payload, error) {
	if c.secret == "" {
		return token.Payload{}, token.NewError(token.CodeNoSecret,
			"Token secret is empty.", token.ErrMisconfigured)
	}
	if credential == "" {
		return token.Payload{}, token.NewError(token.CodeNoToken,
			"Verifying token is empty.", nil)
	}

	var cl claims
	_, err := jwt.ParseWithClaims(credential, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(c.secret), nil
	})
	if err != nil {
		return token.Payload{}, token.NewError(token.CodeVerifyingError, err.Error(), err)
	}

	return token.Payload{SubjectID: cl.UID, Key: cl.Key}, nil
}
