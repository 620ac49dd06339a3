// package metrics collects and exposes Prometheus metrics for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service-level metrics.
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	authCallbacks   *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	nowPlayingHits  prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowplay_http_status_total",
			Help: "Responses by HTTP status code",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nowplay_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		authCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowplay_auth_callbacks_total",
			Help: "Authorization callbacks by outcome",
		}, []string{"outcome"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nowplay_token_refreshes_total",
			Help: "Access token refreshes by outcome",
		}, []string{"outcome"}),
		nowPlayingHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nowplay_now_playing_requests_total",
			Help: "Public now-playing lookups served",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.authCallbacks,
		c.tokenRefreshes,
		c.nowPlayingHits,
	)

	return c
}

// RecordHTTPStatus counts a response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration observes one request's latency.
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordAuthCallback counts an authorization callback outcome ("success" or "failure").
func (c *Collector) RecordAuthCallback(outcome string) {
	c.authCallbacks.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh counts a token refresh outcome ("success" or "failure").
func (c *Collector) RecordTokenRefresh(outcome string) {
	c.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordNowPlayingRequest counts a public now-playing lookup.
func (c *Collector) RecordNowPlayingRequest() {
	c.nowPlayingHits.Inc()
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
