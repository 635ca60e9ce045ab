package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	predictionsTotal     *prometheus.CounterVec
	predictionConfidence prometheus.Histogram
	predictionDuration   prometheus.Histogram
	reportsTotal         *prometheus.CounterVec
	matchesTotal         *prometheus.CounterVec
	inventoryOpsTotal    *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fundgrube",
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "fundgrube",
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "fundgrube",
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		predictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fundgrube",
			Subsystem:   "model",
			Name:        "predictions_total",
			Help:        "Resolved predictions by label.",
			ConstLabels: constLabels,
		}, []string{"label"}),
		predictionConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "fundgrube",
			Subsystem:   "model",
			Name:        "prediction_confidence",
			Help:        "Distribution of arg-max confidence.",
			Buckets:     []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99},
			ConstLabels: constLabels,
		}),
		predictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "fundgrube",
			Subsystem:   "model",
			Name:        "prediction_duration_seconds",
			Help:        "Preprocess plus inference time in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fundgrube",
			Subsystem:   "items",
			Name:        "reports_total",
			Help:        "Stored item reports by type.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		matchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fundgrube",
			Subsystem:   "items",
			Name:        "matched_reports_total",
			Help:        "Item reports that found at least one opposite-type match.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		inventoryOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "fundgrube",
			Subsystem:   "inventory",
			Name:        "operations_total",
			Help:        "Inventory mutations by store and operation.",
			ConstLabels: constLabels,
		}, []string{"store", "op"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.predictionsTotal,
		m.predictionConfidence,
		m.predictionDuration,
		m.reportsTotal,
		m.matchesTotal,
		m.inventoryOpsTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware labels requests by chi route pattern, so /items/{id} is one series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordPrediction(label string, confidence float32, took time.Duration) {
	m.predictionsTotal.WithLabelValues(label).Inc()
	m.predictionConfidence.Observe(float64(confidence))
	m.predictionDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordReport(itemType string, matches int) {
	m.reportsTotal.WithLabelValues(itemType).Inc()
	if matches > 0 {
		m.matchesTotal.WithLabelValues(itemType).Inc()
	}
}

func (m *Metrics) RecordInventoryOp(store, op string) {
	m.inventoryOpsTotal.WithLabelValues(store, op).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
