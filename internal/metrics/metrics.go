package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Market data metrics
	providerCalls        *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	historyFetches       *prometheus.CounterVec
	historyCandles       prometheus.Histogram
	exportsTotal         *prometheus.CounterVec
	exportBytes          *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Market data metrics
	r.providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptostream_provider_calls_total",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "operation", "status"},
	)
	r.providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptostream_provider_call_duration_seconds",
			Help:    "Upstream provider call duration in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	r.historyFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptostream_history_fetches_total",
			Help: "Total number of historical range fetches",
		},
		[]string{"status"},
	)
	r.historyCandles = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryptostream_history_candles",
			Help:    "Candles returned per historical range fetch",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000},
		},
	)
	r.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptostream_exports_total",
			Help: "Total number of dataset exports",
		},
		[]string{"format", "status"},
	)
	r.exportBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptostream_export_bytes",
			Help:    "Size of produced exports in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"format"},
	)

	reg.MustRegister(r.providerCalls)
	reg.MustRegister(r.providerCallDuration)
	reg.MustRegister(r.historyFetches)
	reg.MustRegister(r.historyCandles)
	reg.MustRegister(r.exportsTotal)
	reg.MustRegister(r.exportBytes)

	return r
}

// RecordRequest records metrics for an HTTP request. route must come from a
// bounded set (a mux pattern or UnmatchedRoute), never the raw URL path.
func (r *Registry) RecordRequest(method, route string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, route, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ObserveProviderCall records one upstream provider operation.
func (r *Registry) ObserveProviderCall(provider, operation string, duration time.Duration, err error) {
	r.providerCalls.WithLabelValues(provider, operation, outcome(err)).Inc()
	r.providerCallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// ObserveHistoryFetch records one historical range fetch.
func (r *Registry) ObserveHistoryFetch(duration time.Duration, candles int, err error) {
	r.historyFetches.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		r.historyCandles.Observe(float64(candles))
	}
}

// ObserveExport records one dataset export.
func (r *Registry) ObserveExport(format string, bytes int, err error) {
	r.exportsTotal.WithLabelValues(format, outcome(err)).Inc()
	if err == nil {
		r.exportBytes.WithLabelValues(format).Observe(float64(bytes))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
