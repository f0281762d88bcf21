// internal/auth/pipeline.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"aclgate/internal/auth/token"
	"aclgate/internal/observability/logging"
	"aclgate/internal/observability/metrics"
)

// cookieCredential matches an Authorization cookie entry up to the
// next ";" or the end of the header.
var cookieCredential = regexp.MustCompile(`Authorization=([^;]*)`)

// Authenticator is the authentication pipeline: it extracts a
// credential from the request, decodes it, resolves an identity and
// role set, and publishes both into the request's session.
//
// The pipeline degrades to an anonymous outcome on every credential
// failure (missing, undecodable, unresolvable). The one exception is a
// misconfigured codec, which is a deployment defect and is returned
// unmodified.
type Authenticator struct {
	codec    token.Codec
	resolver IdentityResolver
	logger   *logging.Logger
	metrics  *metrics.Collector
	name     string
}

// NewAuthenticator creates an authentication pipeline. name labels the
// codec in logs and metrics (e.g. "jwt", "oidc").
func NewAuthenticator(name string, codec token.Codec, resolver IdentityResolver, logger *logging.Logger, metrics *metrics.Collector) *Authenticator {
	return &Authenticator{
		codec:    codec,
		resolver: resolver,
		logger:   logger.WithModule("auth.pipeline"),
		metrics:  metrics,
		name:     name,
	}
}

// Name returns the codec label of this pipeline.
func (a *Authenticator) Name() string {
	return a.name
}

// Authenticate runs the pipeline for one request, filling sess with
// the resolved identity and roles. It returns the resolved identity,
// nil for anonymous outcomes. A non-nil error is only returned for
// codec misconfiguration.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request, sess *Session) (*Identity, error) {
	logger := logging.LoggerFromContext(ctx)
	if logger == nil {
		logger = a.logger
	}

	credential := ExtractCredential(r)
	if credential == "" {
		logger.Debug("No credential found, continuing as anonymous")
		return nil, nil
	}

	payload, err := a.codec.Decode(ctx, credential)
	if err != nil {
		if errors.Is(err, token.ErrMisconfigured) {
			return nil, err
		}
		logger.Debug("Credential rejected, continuing as anonymous", logging.Err(err))
		a.metrics.RecordAuthentication(a.name, false)
		return nil, nil
	}

	identity, err := a.resolver.ResolveIdentity(ctx, payload)
	if err != nil {
		logger.Warn("Identity resolution failed, continuing as anonymous",
			logging.Err(err), "subject", payload.SubjectID)
		a.metrics.RecordAuthentication(a.name, false)
		return nil, nil
	}
	if identity == nil {
		logger.Debug("Credential maps to no known subject, continuing as anonymous",
			"subject", payload.SubjectID)
		a.metrics.RecordAuthentication(a.name, false)
		return nil, nil
	}

	sess.Identity = identity

	roles, err := a.resolver.ResolveRoles(ctx, identity)
	if err != nil {
		logger.Warn("Role resolution failed, continuing without roles",
			logging.Err(err), "subject", identity.ID)
		roles = nil
	}
	if roles == nil {
		roles = []string{}
	}
	sess.Roles = roles

	logger.Debug("Authenticated", "subject", identity.ID, "roles", len(roles))
	a.metrics.RecordAuthentication(a.name, true)
	return identity, nil
}

// ExtractCredential returns the raw credential of a request: the
// Authorization header verbatim, or the Authorization cookie entry
// when the header is absent. Empty means no credential was presented.
func ExtractCredential(r *http.Request) string {
	if credential := r.Header.Get("Authorization"); credential != "" {
		return credential
	}
	cookie := r.Header.Get("Cookie")
	if cookie == "" {
		return ""
	}
	if m := cookieCredential.FindStringSubmatch(cookie); m != nil {
		return m[1]
	}
	return ""
}
