// Package metrics exposes Prometheus counters for the HTTP layer and for the
// watchlist/progress sync paths.
//
// A *Metrics owns its own registry so tests (and the CLI) can create as many
// as they like without "duplicate metrics collector registration" panics.
// All methods are safe on a nil receiver, which lets callers treat metrics
// as optional.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streambox"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	signIns          *prometheus.CounterVec
	watchlistToggles *prometheus.CounterVec
	checkpoints      *prometheus.CounterVec
	rateLimited      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	register := reg.MustRegister

	m := &Metrics{
		registry: reg,

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),

		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by method (password, github) and result.",
		}, []string{"method", "result"}),

		watchlistToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchlist_toggles_total",
			Help:      "Watchlist add/remove operations by result.",
		}, []string{"action", "result"}),

		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_checkpoints_total",
			Help:      "Playback progress checkpoints by result. Failed ones are dropped.",
		}, []string{"result"}),

		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected with 429.",
		}),
	}

	register(m.httpRequests)
	register(m.httpDuration)
	register(m.signIns)
	register(m.watchlistToggles)
	register(m.checkpoints)
	register(m.rateLimited)
	register(collectors.NewGoCollector())
	register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) SignIn(method string, err error) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(method, result(err)).Inc()
}

// WatchlistToggled implements watch.Recorder.
func (m *Metrics) WatchlistToggled(action string, err error) {
	if m == nil {
		return
	}
	m.watchlistToggles.WithLabelValues(action, result(err)).Inc()
}

// ProgressCheckpointed implements watch.Recorder.
func (m *Metrics) ProgressCheckpointed(err error) {
	if m == nil {
		return
	}
	m.checkpoints.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
