// internal/auth/token/token.go
package token

import (
	"context"
	"errors"
	"fmt"
)

// Payload is the claim set carried by a credential.
type Payload struct {
	// SubjectID identifies the subject the credential was issued for
	SubjectID string

	// Key is an opaque verification key checked by the identity
	// resolver (e.g. a per-subject secret rotated on logout)
	Key string
}

// Details describes an encoded credential.
type Details struct {
	// Value is the encoded credential string
	Value string

	// ExpiresIn is the credential lifetime in seconds, 0 meaning the
	// credential never expires
	ExpiresIn int64
}

// Codec turns a payload into an opaque credential string and back.
// Implementations must return errors wrapping ErrMisconfigured for
// deployment defects (e.g. a missing signing secret) so callers can
// tell them apart from ordinary verification failures.
type Codec interface {
	// Encode signs the payload into a credential. expiresIn overrides
	// the codec's configured lifetime when positive; 0 keeps the
	// configured default.
	Encode(ctx context.Context, payload Payload, expiresIn int64) (Details, error)

	// Decode verifies the credential and returns its payload.
	Decode(ctx context.Context, credential string) (Payload, error)
}

// ErrMisconfigured marks codec errors caused by deployment defects
// rather than by the presented credential.
var ErrMisconfigured = errors.New("token codec misconfigured")

// Stable machine-readable error codes.
const (
	CodeNoSecret            = "NO_TOKEN_SECRET"
	CodeNoToken             = "NO_TOKEN_TO_VERIFY"
	CodeVerifyingError      = "TOKEN_VERIFYING_ERROR"
	CodeEncodingError       = "TOKEN_ENCODING_ERROR"
	CodeEncodingUnsupported = "TOKEN_ENCODING_UNSUPPORTED"
)

// Error is a coded codec error.
type Error struct {
	// Code is a stable machine-readable identifier
	Code string

	// Message is the human-readable description
	Message string

	cause error
}

// NewError creates a coded error, optionally wrapping a cause.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}
