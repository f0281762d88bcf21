package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelCodec    = "codec"
	LabelSuccess  = "success"
	LabelResource = "resource"
	LabelAction   = "action"
	LabelDecision = "decision"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aclgate_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aclgate_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// AuthenticationTotal counts authentication attempts by codec and outcome
	AuthenticationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aclgate_authentication_total",
			Help: "Total number of authentication attempts",
		},
		[]string{LabelCodec, LabelSuccess},
	)

	// AuthorizationTotal counts authorization decisions by resource and action
	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aclgate_authorization_total",
			Help: "Total number of authorization decisions",
		},
		[]string{LabelResource, LabelAction, LabelDecision},
	)

	// UpstreamRequestTotal counts requests to the upstream service
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aclgate_upstream_requests_total",
			Help: "Total number of requests to the upstream service",
		},
		[]string{LabelMethod, "upstream", LabelStatus},
	)

	// UpstreamRequestDuration tracks the duration of upstream requests
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aclgate_upstream_request_duration_seconds",
			Help:    "Duration of requests to the upstream service in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, "upstream"},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, http.StatusText(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthentication records an authentication attempt
func (c *Collector) RecordAuthentication(codec string, success bool) {
	AuthenticationTotal.WithLabelValues(codec, boolToString(success)).Inc()
}

// RecordAuthorization records an authorization decision
func (c *Collector) RecordAuthorization(resource, action, decision string) {
	AuthorizationTotal.WithLabelValues(resource, action, decision).Inc()
}

// RecordUpstreamRequest records a request to the upstream service
func (c *Collector) RecordUpstreamRequest(method, upstream string, status int, duration time.Duration) {
	UpstreamRequestTotal.WithLabelValues(method, upstream, http.StatusText(status)).Inc()
	UpstreamRequestDuration.WithLabelValues(method, upstream).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// boolToString converts a boolean to a string representation
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
