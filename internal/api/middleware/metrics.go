package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SolvesTotal         *prometheus.CounterVec
	SolveDuration       *prometheus.HistogramVec
	QuoteCacheHits      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ade",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ade",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		SolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ade",
			Name:      "solves_total",
			Help:      "Solver invocations by formulation and outcome",
		}, []string{"formulation", "outcome"}),
		SolveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ade",
			Name:      "solve_duration_seconds",
			Help:      "Wall time of one solve",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"formulation"}),
		QuoteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ade",
			Name:      "quote_cache_hits_total",
			Help:      "Quotes served from the cache",
		}),
	}
	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SolvesTotal,
		m.SolveDuration,
		m.QuoteCacheHits,
		collectors.NewGoCollector(),
	)
	return m
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ObserveSolve records one solver outcome. Cached results count as hits and do
// not touch the duration histogram.
func (m *Metrics) ObserveSolve(formulation string, elapsed time.Duration, cached bool, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.SolvesTotal.WithLabelValues(formulation, "error").Inc()
	case cached:
		m.QuoteCacheHits.Inc()
		m.SolvesTotal.WithLabelValues(formulation, "cached").Inc()
	default:
		m.SolvesTotal.WithLabelValues(formulation, "ok").Inc()
		m.SolveDuration.WithLabelValues(formulation).Observe(elapsed.Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
