// internal/proxy/router/router.go
package router

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"aclgate/internal/authz"
	"aclgate/internal/httputils"
	"aclgate/internal/observability/logging"
	"aclgate/internal/observability/metrics"

	"github.com/gorilla/mux"
)

// Action describes one routed, guarded action of a resource.
type Action struct {
	// Resource is the owning resource name
	Resource string

	// Name is the action name within the resource
	Name string

	// Path is the URL path of the action (gorilla/mux syntax)
	Path string

	// MatchPrefix indicates whether to match the path prefix instead of exact match
	MatchPrefix bool

	// Methods is a list of HTTP methods this action applies to (empty = all methods)
	Methods []string
}

// Config holds router configuration
type Config struct {
	// UpstreamURL is the URL of the upstream service
	UpstreamURL *url.URL

	// UpstreamTimeout is the timeout for upstream service requests
	UpstreamTimeout time.Duration

	// Actions is the list of routed actions
	Actions []Action
}

// Router routes declared actions through the ACL middleware and
// forwards allowed requests to the upstream service.
type Router struct {
	*mux.Router
	target       *httputil.ReverseProxy
	orchestrator *authz.Orchestrator
	actions      []Action
	logger       *logging.Logger
	metrics      *metrics.Collector
	upstreamURL  *url.URL
}

// New creates a new router
func New(config Config, orchestrator *authz.Orchestrator, logger *logging.Logger, metricsCollector *metrics.Collector) *Router {
	target := httputil.NewSingleHostReverseProxy(config.UpstreamURL)
	target.Transport = &http.Transport{
		ResponseHeaderTimeout: config.UpstreamTimeout,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	r := &Router{
		Router:       mux.NewRouter(),
		target:       target,
		orchestrator: orchestrator,
		actions:      config.Actions,
		logger:       logger.WithModule("proxy.router"),
		metrics:      metricsCollector,
		upstreamURL:  config.UpstreamURL,
	}

	r.logger.Info("Proxying declared routes", "upstream", logging.RedactURL(config.UpstreamURL))
	r.setupRoutes()

	return r
}

// setupRoutes binds every declared action to the ACL middleware and
// the upstream proxy.
func (r *Router) setupRoutes() {
	upstream := r.upstreamHandler()

	for _, action := range r.actions {
		r.logger.Debug("Setting up route",
			"resource", action.Resource,
			"action", action.Name,
			"path", action.Path,
			"methods", action.Methods,
		)

		var route *mux.Route
		if action.MatchPrefix {
			route = r.PathPrefix(action.Path)
		} else {
			route = r.Path(action.Path)
		}
		if len(action.Methods) > 0 {
			route = route.Methods(action.Methods...)
		}
		route.Name(action.Resource + "." + action.Name)

		route.Handler(r.orchestrator.Middleware(action.Resource, action.Name)(upstream))
	}

	// Requests outside the declared routes never reach the upstream.
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Warn("Request received for undeclared route", "path", req.URL.Path)
		r.metrics.RecordRequest(req.Method, req.URL.Path, http.StatusNotFound, 0)
		http.Error(w, "404 page not found", http.StatusNotFound)
	})
}

// upstreamHandler proxies an authorized request to the upstream
// service, recording upstream metrics.
func (r *Router) upstreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger := logging.LoggerFromContext(req.Context())
		if logger == nil {
			logger = r.logger
		}
		logger.Debug("Forwarding to upstream", "path", req.URL.Path, "method", req.Method)

		startTime := time.Now()
		wrapper := httputils.NewResponseWriter(w)

		r.target.ServeHTTP(wrapper, req)

		duration := time.Since(startTime)
		r.metrics.RecordUpstreamRequest(req.Method, r.upstreamURL.String(), wrapper.StatusCode, duration)
	})
}
