// internal/auth/pipeline_test.go
package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"aclgate/internal/auth/token"
	"aclgate/internal/observability/logging"
	"aclgate/internal/observability/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodec struct {
	payload token.Payload
	err     error
}

func (f *fakeCodec) Encode(ctx context.Context, payload token.Payload, expiresIn int64) (token.Details, error) {
	return token.Details{}, errors.New("not implemented")
}

func (f *fakeCodec) Decode(ctx context.Context, credential string) (token.Payload, error) {
	if f.err != nil {
		return token.Payload{}, f.err
	}
	return f.payload, nil
}

type fakeResolver struct {
	identity    *Identity
	identityErr error
	roles       []string
	rolesErr    error
}

func (f *fakeResolver) ResolveIdentity(ctx context.Context, payload token.Payload) (*Identity, error) {
	return f.identity, f.identityErr
}

func (f *fakeResolver) ResolveRoles(ctx context.Context, identity *Identity) ([]string, error) {
	return f.roles, f.rolesErr
}

func newTestAuthenticator(t *testing.T, codec token.Codec, resolver IdentityResolver) *Authenticator {
	t.Helper()
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)
	return NewAuthenticator("test", codec, resolver, logger, metrics.NewCollector())
}

func TestExtractCredential(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			"authorization header verbatim",
			map[string]string{"Authorization": "tok123"},
			"tok123",
		},
		{
			"header wins over cookie",
			map[string]string{
				"Authorization": "header-tok",
				"Cookie":        "Authorization=cookie-tok",
			},
			"header-tok",
		},
		{
			"authorization cookie",
			map[string]string{"Cookie": "Authorization=tok123; other=x"},
			"tok123",
		},
		{
			"authorization cookie at end",
			map[string]string{"Cookie": "other=x; Authorization=tok123"},
			"tok123",
		},
		{
			"no credential",
			map[string]string{},
			"",
		},
		{
			"unrelated cookie",
			map[string]string{"Cookie": "session=abc"},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/things", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractCredential(r))
		})
	}
}

func TestAuthenticateNoCredential(t *testing.T) {
	a := newTestAuthenticator(t, &fakeCodec{}, &fakeResolver{})
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, sess.Identity)
	assert.Empty(t, sess.Roles)
}

func TestAuthenticateDecodeFailureIsAnonymous(t *testing.T) {
	codec := &fakeCodec{err: token.NewError(token.CodeVerifyingError, "signature is invalid", nil)}
	a := newTestAuthenticator(t, codec, &fakeResolver{})
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "garbage")
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, sess.Identity)
}

func TestAuthenticateMisconfiguredCodecPropagates(t *testing.T) {
	codec := &fakeCodec{err: token.NewError(token.CodeNoSecret, "Token secret is empty.", token.ErrMisconfigured)}
	a := newTestAuthenticator(t, codec, &fakeResolver{})
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	_, err := a.Authenticate(r.Context(), r, sess)

	require.Error(t, err)
	assert.ErrorIs(t, err, token.ErrMisconfigured)
	assert.Nil(t, sess.Identity)
}

func TestAuthenticateUnknownSubjectIsAnonymous(t *testing.T) {
	codec := &fakeCodec{payload: token.Payload{SubjectID: "ghost"}}
	a := newTestAuthenticator(t, codec, &fakeResolver{identity: nil})
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, sess.Identity)
}

func TestAuthenticateResolverErrorIsAnonymous(t *testing.T) {
	codec := &fakeCodec{payload: token.Payload{SubjectID: "42"}}
	a := newTestAuthenticator(t, codec, &fakeResolver{identityErr: errors.New("store unavailable")})
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.Nil(t, sess.Identity)
}

func TestAuthenticatePopulatesSession(t *testing.T) {
	codec := &fakeCodec{payload: token.Payload{SubjectID: "42"}}
	resolver := &fakeResolver{
		identity: &Identity{ID: "42"},
		roles:    []string{"admin", "auditor"},
	}
	a := newTestAuthenticator(t, codec, resolver)
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "42", identity.ID)
	assert.Same(t, identity, sess.Identity)
	assert.Equal(t, []string{"admin", "auditor"}, sess.Roles)
}

func TestAuthenticateRoleFailureLeavesEmptyRoles(t *testing.T) {
	codec := &fakeCodec{payload: token.Payload{SubjectID: "42"}}
	resolver := &fakeResolver{
		identity: &Identity{ID: "42"},
		rolesErr: errors.New("role store unavailable"),
	}
	a := newTestAuthenticator(t, codec, resolver)
	sess := NewSession()

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	identity, err := a.Authenticate(r.Context(), r, sess)

	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.NotNil(t, sess.Roles)
	assert.Empty(t, sess.Roles)
}

func TestSessionContextRoundTrip(t *testing.T) {
	sess := &Session{Identity: &Identity{ID: "42"}, Roles: []string{"admin"}}
	ctx := ContextWithSession(context.Background(), sess)

	assert.Same(t, sess, SessionFromContext(ctx))
	assert.Same(t, sess.Identity, IdentityFromContext(ctx))

	assert.Nil(t, SessionFromContext(context.Background()))
	assert.Nil(t, IdentityFromContext(context.Background()))
}
