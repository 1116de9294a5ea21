// Prometheus instrumentation for HTTP traffic.
//
// Labels stay bounded:
//
//   - route:    the registered Gin route, or "unmatched" for 404s
//   - status:   numeric status code
//   - cache:    X-Cache set by the discovery handlers (hit, miss), "none" elsewhere
//   - category: the :category path parameter, "other" when not a known category
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

const (
	routeUnmatched = "unmatched"
	cacheNone      = "none"
	categoryOther  = "other"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	// Latency is split by cache outcome: a cached search returns in
	// microseconds, a miss runs the engine.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "route", "cache"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// Full RecommendationsData payloads are tens of KiB.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 12), // 256B..512KiB
		},
		[]string{"method", "route"},
	)

	categoryReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_category_requests_total",
			Help: "Category detail requests by category and cache outcome.",
		},
		[]string{"category", "cache"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, categoryReqs)
}

// Metrics records request counts, latency, in-flight requests and response
// sizes. It reads X-Cache after the handler ran, so it must wrap the
// discovery handlers.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		method := c.Request.Method
		cache := cacheLabel(c.Writer.Header().Get("X-Cache"))

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route, cache).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
		if raw := c.Param("category"); raw != "" {
			categoryReqs.WithLabelValues(categoryLabel(raw), cache).Inc()
		}
	}
}

func cacheLabel(h string) string {
	switch strings.ToUpper(h) {
	case "HIT":
		return "hit"
	case "MISS":
		return "miss"
	}
	return cacheNone
}

func categoryLabel(raw string) string {
	if c, ok := domain.ParseCategory(raw); ok {
		return string(c)
	}
	return categoryOther
}
