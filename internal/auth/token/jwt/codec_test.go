// internal/auth/token/jwt/codec_test.go
package jwt

import (
	"context"
	"testing"
	"time"

	"aclgate/internal/auth/token"
	"aclgate/internal/observability/logging"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, config Config) *Codec {
	t.Helper()
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)
	return New(config, logger)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret", ExpiresIn: DefaultExpiresIn})

	details, err := codec.Encode(context.Background(), token.Payload{SubjectID: "42", Key: "k1"}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, details.Value)
	assert.Equal(t, DefaultExpiresIn, details.ExpiresIn)

	payload, err := codec.Decode(context.Background(), details.Value)
	require.NoError(t, err)
	assert.Equal(t, "42", payload.SubjectID)
	assert.Equal(t, "k1", payload.Key)
}

func TestEncodeExplicitExpiryOverridesConfigured(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret", ExpiresIn: DefaultExpiresIn})

	details, err := codec.Encode(context.Background(), token.Payload{SubjectID: "42"}, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), details.ExpiresIn)
}

func TestEncodeNoExpiry(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret"})

	details, err := codec.Encode(context.Background(), token.Payload{SubjectID: "42"}, 0)
	require.NoError(t, err)
	assert.Zero(t, details.ExpiresIn)

	var cl claims
	_, err = jwt.ParseWithClaims(details.Value, &cl, func(t *jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Nil(t, cl.ExpiresAt)
}

func TestEncodeMissingSecret(t *testing.T) {
	codec := newTestCodec(t, Config{})

	_, err := codec.Encode(context.Background(), token.Payload{SubjectID: "42"}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrMisconfigured)

	var terr *token.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, token.CodeNoSecret, terr.Code)
}

func TestDecodeMissingSecret(t *testing.T) {
	codec := newTestCodec(t, Config{})

	_, err := codec.Decode(context.Background(), "whatever")
	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrMisconfigured)
}

func TestDecodeEmptyCredential(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret"})

	_, err := codec.Decode(context.Background(), "")
	require.Error(t, err)
	// An empty credential is a caller problem, not a deployment defect.
	assert.NotErrorIs(t, err, token.ErrMisconfigured)

	var terr *token.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, token.CodeNoToken, terr.Code)
}

func TestDecodeTamperedCredential(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret"})
	other := newTestCodec(t, Config{Secret: "different"})

	details, err := other.Encode(context.Background(), token.Payload{SubjectID: "42"}, 0)
	require.NoError(t, err)

	_, err = codec.Decode(context.Background(), details.Value)
	require.Error(t, err)
	assert.NotErrorIs(t, err, token.ErrMisconfigured)

	var terr *token.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, token.CodeVerifyingError, terr.Code)
}

func TestDecodeExpiredCredential(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret"})

	cl := claims{
		UID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = codec.Decode(context.Background(), expired)
	require.Error(t, err)

	var terr *token.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, token.CodeVerifyingError, terr.Code)
}

func TestDecodeRejectsUnexpectedSigningMethod(t *testing.T) {
	codec := newTestCodec(t, Config{Secret: "s3cret"})

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{UID: "42"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Decode(context.Background(), unsigned)
	require.Error(t, err)
}
