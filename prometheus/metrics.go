package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Impersonation operation counter
	ImpersonationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_impersonation_operations_total",
			Help: "Total number of impersonation operations",
		},
		[]string{"operation"}, // operation can be "start", "stop", "active", "logs"
	)

	// Organization operation counter
	OrgOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_org_operations_total",
			Help: "Total number of organization operations",
		},
		[]string{"operation"}, // "create", "update", "delete", "invite", "accept_invite", etc.
	)

	// Authorization denial counter
	AuthzDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_authz_denied_total",
			Help: "Total number of denied authorization checks",
		},
		[]string{"check"}, // "global_role", "org_role", "membership"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "invalid_token", "session_expired", "db_error" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskhub_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active sessions
	ActiveSessionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_active_sessions",
			Help: "Number of currently active sessions",
		},
	)

	// Active impersonations
	ActiveImpersonationsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_active_impersonations",
			Help: "Number of currently active impersonation sessions",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskhub_info",
			Help: "Information about the taskhub service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(ImpersonationCounter)
	prometheus.MustRegister(OrgOperationCounter)
	prometheus.MustRegister(AuthzDeniedCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveSessionsGauge)
	prometheus.MustRegister(ActiveImpersonationsGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveSessions increments the active sessions gauge
func IncreaseActiveSessions() {
	ActiveSessionsGauge.Inc()
}

// DecreaseActiveSessions decrements the active sessions gauge
func DecreaseActiveSessions() {
	ActiveSessionsGauge.Dec()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordImpersonation records an impersonation operation
func RecordImpersonation(operation string) {
	ImpersonationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordOrgOperation records an organization operation
func RecordOrgOperation(operation string) {
	OrgOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAuthzDenied records a denied authorization check
func RecordAuthzDenied(check string) {
	AuthzDeniedCounter.With(prometheus.Labels{"check": check}).Inc()
}
