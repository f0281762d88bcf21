// internal/authz/middleware.go
package authz

import (
	"errors"
	"net/http"

	"aclgate/internal/acl"
	"aclgate/internal/acl/registry"
	"aclgate/internal/auth"
	"aclgate/internal/auth/token"
	"aclgate/internal/httputils"
	"aclgate/internal/observability/logging"
	"aclgate/internal/observability/metrics"
)

// Decision labels for metrics.
const (
	decisionAllow = "allow"
	decisionDeny  = "deny"
	decisionSkip  = "skip"
)

// Orchestrator composes the authentication pipeline and the decision
// engine into one request-handling step per (resource, action).
type Orchestrator struct {
	authenticator *auth.Authenticator
	engine        *Engine
	source        registry.Source
	defaults      *acl.Metadata
	logger        *logging.Logger
	metrics       *metrics.Collector
}

// NewOrchestrator creates an orchestrator. defaults is the optional
// metadata substituted when a resource has no declarations at all; nil
// means undeclared actions are unrestricted.
func NewOrchestrator(
	authenticator *auth.Authenticator,
	engine *Engine,
	source registry.Source,
	defaults *acl.Metadata,
	logger *logging.Logger,
	metrics *metrics.Collector,
) *Orchestrator {
	return &Orchestrator{
		authenticator: authenticator,
		engine:        engine,
		source:        source,
		defaults:      defaults,
		logger:        logger.WithModule("authz.orchestrator"),
		metrics:       metrics,
	}
}

// Middleware guards next with the ACL pipeline for one action: a fresh
// session is authenticated, the action's effective metadata resolved,
// and the decision engine consulted. Denials are answered with a 403
// AUTHORIZATION_REQUIRED payload; allowed requests continue with the
// session attached to the context.
func (o *Orchestrator) Middleware(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.LoggerFromContext(ctx)
			if logger == nil {
				logger = o.logger
			}

			// The session lives for exactly this request.
			sess := auth.NewSession()

			if _, err := o.authenticator.Authenticate(ctx, r, sess); err != nil {
				// Codec misconfiguration is a deployment defect, not
				// an access decision.
				logger.Error("Authentication pipeline failed", logging.Err(err))
				code := "AUTHENTICATION_ERROR"
				var coded *token.Error
				if errors.As(err, &coded) {
					code = coded.Code
				}
				httputils.WriteError(w, http.StatusInternalServerError, httputils.ErrorPayload{
					Code:    code,
					Message: "Authentication is misconfigured.",
				})
				return
			}

			ctx = auth.ContextWithSession(ctx, sess)

			md := o.source.Resolve(resource, action)
			if md != nil && md.Skip {
				logger.Debug("Authorization skipped", "resource", resource, "action", action)
				o.metrics.RecordAuthorization(resource, action, decisionSkip)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if md == nil {
				md = o.defaults
			}

			if !o.engine.Authorize(md, sess, r.URL.Path) {
				subject := ""
				if sess.Identity != nil {
					subject = sess.Identity.ID
				}
				logger.Info("Authorization denied",
					"resource", resource,
					"action", action,
					"subject", subject,
				)
				o.metrics.RecordAuthorization(resource, action, decisionDeny)
				httputils.WriteError(w, http.StatusForbidden, httputils.ErrorPayload{
					Code:    "AUTHORIZATION_REQUIRED",
					Message: "User authorization required.",
				})
				return
			}

			logger.Debug("Authorization granted", "resource", resource, "action", action)
			o.metrics.RecordAuthorization(resource, action, decisionAllow)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
