// Package metrics provides Prometheus instrumentation for the credit ledger.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bnpl",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bnpl",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// CreditLinesOpenedTotal counts financed purchases.
	CreditLinesOpenedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bnpl",
		Name:      "credit_lines_opened_total",
		Help:      "Total credit lines opened.",
	})

	// RepaymentsTotal counts repayments by outcome (settled, partial).
	RepaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bnpl",
			Name:      "repayments_total",
			Help:      "Total repayments applied, by outcome.",
		},
		[]string{"outcome"},
	)

	// LinesSettledTotal counts credit lines fully settled by repayments.
	LinesSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bnpl",
		Name:      "credit_lines_settled_total",
		Help:      "Total credit lines fully settled.",
	})

	// ScoreRecomputesTotal counts periodic score recomputes by result.
	ScoreRecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bnpl",
			Name:      "score_recomputes_total",
			Help:      "Total credit score recomputes, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CreditLinesOpenedTotal,
		RepaymentsTotal,
		LinesSettledTotal,
		ScoreRecomputesTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
