// internal/authz/middleware_test.go
package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aclgate/internal/acl"
	"aclgate/internal/acl/registry"
	"aclgate/internal/auth"
	"aclgate/internal/auth/static"
	"aclgate/internal/auth/token"
	jwtcodec "aclgate/internal/auth/token/jwt"
	"aclgate/internal/observability/logging"
	"aclgate/internal/observability/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

func newTestOrchestrator(t *testing.T, secret string, source registry.Source, defaults *acl.Metadata) *Orchestrator {
	t.Helper()
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)

	collector := metrics.NewCollector()
	codec := jwtcodec.New(jwtcodec.Config{Secret: secret}, logger)
	resolver := static.New([]static.Subject{
		{ID: "42", Roles: []string{"admin"}},
		{ID: "7"},
	})
	authenticator := auth.NewAuthenticator("jwt", codec, resolver, logger, collector)

	return NewOrchestrator(authenticator, NewEngine(logger), source, defaults, logger, collector)
}

func credentialFor(t *testing.T, subjectID string) string {
	t.Helper()
	logger, err := logging.NewLogger("error")
	require.NoError(t, err)

	codec := jwtcodec.New(jwtcodec.Config{Secret: testSecret}, logger)
	details, err := codec.Encode(context.Background(), token.Payload{SubjectID: subjectID}, 0)
	require.NoError(t, err)
	return details.Value
}

func serve(o *Orchestrator, resource, action string, r *http.Request) (*httptest.ResponseRecorder, *auth.Session) {
	var captured *auth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	o.Middleware(resource, action)(next).ServeHTTP(w, r)
	return w, captured
}

func decodeErrorPayload(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestMiddlewareDeniesWithForbiddenPayload(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.DeclareResource("users", registry.Declaration{
		Rules: []acl.Rule{{Principal: acl.Everyone, Permission: acl.Deny}},
	}))
	o := newTestOrchestrator(t, testSecret, reg, nil)

	r := httptest.NewRequest("GET", "/users", nil)
	w, _ := serve(o, "users", "list", r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	payload := decodeErrorPayload(t, w)
	assert.Equal(t, "AUTHORIZATION_REQUIRED", payload["code"])
	assert.Equal(t, "User authorization required.", payload["message"])
}

func TestMiddlewareAllowsAndAttachesSession(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.DeclareResource("users", registry.Declaration{
		Rules: []acl.Rule{
			{Principal: acl.Everyone, Permission: acl.Deny},
			{Principal: "admin", Permission: acl.Allow},
		},
	}))
	o := newTestOrchestrator(t, testSecret, reg, nil)

	r := httptest.NewRequest("GET", "/users", nil)
	r.Header.Set("Authorization", credentialFor(t, "42"))
	w, sess := serve(o, "users", "list", r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, sess)
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "42", sess.Identity.ID)
	assert.Equal(t, []string{"admin"}, sess.Roles)
}

func TestMiddlewareSkipBypassesRules(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.DeclareResource("health", registry.Declaration{
		Rules: []acl.Rule{{Principal: acl.Everyone, Permission: acl.Deny}},
		Skip:  registry.Skip(true),
	}))
	o := newTestOrchestrator(t, testSecret, reg, nil)

	r := httptest.NewRequest("GET", "/health", nil)
	w, sess := serve(o, "health", "check", r)

	assert.Equal(t, http.StatusOK, w.Code)
	// Authentication still ran; the anonymous session is attached.
	require.NotNil(t, sess)
	assert.Nil(t, sess.Identity)
}

func TestMiddlewareUndeclaredFallsBackToDefaults(t *testing.T) {
	defaults := &acl.Metadata{Rules: []acl.Rule{
		{Principal: acl.Everyone, Permission: acl.Deny},
		{Principal: acl.Authenticated, Permission: acl.Allow},
	}}
	o := newTestOrchestrator(t, testSecret, registry.New(), defaults)

	r := httptest.NewRequest("GET", "/things", nil)
	w, _ := serve(o, "things", "list", r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	r = httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", credentialFor(t, "7"))
	w, _ = serve(o, "things", "list", r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareUndeclaredWithoutDefaultsAllows(t *testing.T) {
	o := newTestOrchestrator(t, testSecret, registry.New(), nil)

	r := httptest.NewRequest("GET", "/things", nil)
	w, _ := serve(o, "things", "list", r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareInvalidCredentialIsAnonymous(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.DeclareResource("users", registry.Declaration{
		Rules: []acl.Rule{{Principal: acl.Authenticated, Permission: acl.Allow},
			{Principal: acl.Everyone, Permission: acl.Deny}},
	}))
	o := newTestOrchestrator(t, testSecret, reg, nil)

	// A garbage credential degrades to anonymous, which this policy
	// denies, rather than surfacing a server error.
	r := httptest.NewRequest("GET", "/users", nil)
	r.Header.Set("Authorization", "not-a-token")
	w, _ := serve(o, "users", "list", r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddlewareMisconfiguredCodecIsServerError(t *testing.T) {
	o := newTestOrchestrator(t, "", registry.New(), nil)

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set("Authorization", "tok")
	w, _ := serve(o, "things", "list", r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	payload := decodeErrorPayload(t, w)
	assert.Equal(t, "NO_TOKEN_SECRET", payload["code"])
}

func TestMiddlewareOwnerPathDecision(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.DeclareResource("users", registry.Declaration{
		Rules: []acl.Rule{
			{Principal: acl.Everyone, Permission: acl.Deny},
			{Principal: acl.Owner, Permission: acl.Allow},
		},
	}))
	o := newTestOrchestrator(t, testSecret, reg, nil)

	r := httptest.NewRequest("GET", "/users/7", nil)
	r.Header.Set("Authorization", credentialFor(t, "7"))
	w, _ := serve(o, "users", "show", r)
	assert.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest("GET", "/users/42", nil)
	r.Header.Set("Authorization", credentialFor(t, "7"))
	w, _ = serve(o, "users", "show", r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
