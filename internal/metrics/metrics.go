package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoreach"

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests.
type HTTPCollector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewHTTPCollector constructs a collector with default histograms/counters.
func NewHTTPCollector() (*HTTPCollector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	if err := registry.Register(requestDuration); err != nil {
		return nil, err
	}

	if err := registry.Register(requestTotal); err != nil {
		return nil, err
	}

	collector := &HTTPCollector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *HTTPCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// PipelineCollector counts pipeline outcomes: replies, posts, fetches and
// account lifecycle events.
type PipelineCollector struct {
	RepliesTotal       *prometheus.CounterVec
	PostsTotal         *prometheus.CounterVec
	FetchesTotal       *prometheus.CounterVec
	AccountSuspensions prometheus.Counter
	SlotRejections     prometheus.Counter
}

// NewPipelineCollector builds the pipeline counters and registers them on
// the HTTP collector's registry so one /metrics endpoint serves both.
func NewPipelineCollector(httpCollector *HTTPCollector) (*PipelineCollector, error) {
	replies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "replies_total",
		Help:      "Reply attempts by outcome.",
	}, []string{"result"})

	posts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "posts_total",
		Help:      "Post attempts by outcome.",
	}, []string{"result"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "fetches_total",
		Help:      "Target timeline fetches by outcome.",
	}, []string{"result"})

	suspensions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "account_suspensions_total",
		Help:      "Accounts flipped to suspect by the failure threshold.",
	})

	slotRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "slot_rejections_total",
		Help:      "Slot acquisitions refused by the usability re-check.",
	})

	collectors := []prometheus.Collector{replies, posts, fetches, suspensions, slotRejections}
	for _, c := range collectors {
		if err := httpCollector.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &PipelineCollector{
		RepliesTotal:       replies,
		PostsTotal:         posts,
		FetchesTotal:       fetches,
		AccountSuspensions: suspensions,
		SlotRejections:     slotRejections,
	}, nil
}
