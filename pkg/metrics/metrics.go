// Package metrics exposes prometheus metrics for API clients and the
// token-refresh interceptor on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the metrics and their registry. A nil *Collector is valid
// and records nothing.
type Collector struct {
	reqCount     *prometheus.CounterVec
	reqDurHist   *prometheus.HistogramVec
	clientErrors *prometheus.CounterVec
	episodes     prometheus.Counter
	waiters      prometheus.Counter
	drains       *prometheus.CounterVec
	pending      prometheus.Gauge
	registry     *prometheus.Registry
}

// NewCollector creates and registers the netlayer metrics under namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reqCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_requests_total",
				Help:      "Total number of API requests performed, by method and status code",
			},
			[]string{"method", "status"},
		),
		reqDurHist: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "client_request_duration_seconds",
				Help:      "Histogram of API request durations including refresh waits",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		clientErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_errors_total",
				Help:      "API request failures by error kind",
			},
			[]string{"kind"},
		),
		episodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_expiry_episodes_total",
			Help:      "Number of token expiry episodes started",
		}),
		waiters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_waiters_total",
			Help:      "Number of requests suspended waiting for a token refresh",
		}),
		drains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refresh_resolved_total",
				Help:      "Suspended requests resolved, by outcome",
			},
			[]string{"outcome"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_refresh_pending",
			Help:      "Requests currently waiting for a token refresh",
		}),
		registry: reg,
	}

	reg.MustRegister(c.reqCount, c.reqDurHist, c.clientErrors, c.episodes, c.waiters, c.drains, c.pending)
	return c
}

// ObserveRequest records one performed request.
func (c *Collector) ObserveRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.reqCount.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.reqDurHist.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveError records a failed request by error kind.
func (c *Collector) ObserveError(kind string) {
	if c == nil {
		return
	}
	c.clientErrors.WithLabelValues(kind).Inc()
}

func (c *Collector) EpisodeStarted() {
	if c == nil {
		return
	}
	c.episodes.Inc()
}

func (c *Collector) WaiterEnqueued(pending int) {
	if c == nil {
		return
	}
	c.waiters.Inc()
	c.pending.Set(float64(pending))
}

// Drained records n waiters resolved with outcome and an empty queue.
func (c *Collector) Drained(outcome string, n int) {
	if c == nil {
		return
	}
	c.drains.WithLabelValues(outcome).Add(float64(n))
	c.pending.Set(0)
}

// Registry exposes the underlying registry, e.g. for tests or custom handlers.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collected metrics in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
