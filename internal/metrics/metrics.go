// Package metrics exposes the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yamdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthResolutions counts resolved callers. outcome is "anonymous",
	// "authenticated" or the rejection reason.
	AuthResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_auth_resolutions_total",
			Help: "Total number of Authorization header resolutions by outcome",
		},
		[]string{"outcome"},
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_authz_decisions_total",
			Help: "Total number of policy decisions by action and decision",
		},
		[]string{"action", "decision"},
	)

	MailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_mail_deliveries_total",
			Help: "Total number of confirmation mails handed to the mail backend",
		},
		[]string{"backend", "outcome"},
	)
)

func RecordAuthResolution(outcome string) {
	AuthResolutions.WithLabelValues(outcome).Inc()
}

func RecordAuthzDecision(action, decision string) {
	AuthzDecisions.WithLabelValues(action, decision).Inc()
}

func RecordMailDelivery(backend string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MailDeliveries.WithLabelValues(backend, outcome).Inc()
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
