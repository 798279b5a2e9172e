package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lyrics_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// View counter outcomes: counted, limited, not_found
	ViewOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_view_increments_total",
			Help: "View increment requests by outcome",
		},
		[]string{"outcome"},
	)

	// Bot-challenge verification outcomes: success, rejected, unavailable
	ChallengeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_challenge_verifications_total",
			Help: "Bot-challenge verifications by outcome",
		},
		[]string{"outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lyrics_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_submissions_total",
			Help: "Accepted public submissions by kind (report, contact)",
		},
		[]string{"kind"},
	)

	SearchIndexOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_search_index_operations_total",
			Help: "Search index operations by type and result",
		},
		[]string{"operation", "result"},
	)

	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lyrics_backups_total",
			Help: "Database backups by trigger and result",
		},
		[]string{"trigger", "result"},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		method := c.Method()
		HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Result maps an error to the "success"/"error" label pair used by counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
