// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_order"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal     prometheus.Counter
	SessionsActive    prometheus.Gauge
	RecordingsTotal   prometheus.Counter
	RecordingDuration prometheus.Histogram

	// Fragment metrics
	FragmentsTotal *prometheus.CounterVec
	FragmentsStale prometheus.Counter

	// Recognition source metrics
	SourceRestarts prometheus.Counter
	SourceErrors   *prometheus.CounterVec

	// Text processing metrics
	WordsSuppressed    prometheus.Counter
	SegmentsSuppressed prometheus.Counter
	ProcessLatency     prometheus.Histogram
	OrdersExtracted    *prometheus.CounterVec
	OrderItems         prometheus.Histogram

	// Translation metrics
	TranslationsTotal  *prometheus.CounterVec
	TranslationLatency prometheus.Histogram

	// Event publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec

	// Transport metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
	GRPCCalls    *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Session metrics
		SessionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions created",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions not yet closed",
		}),
		RecordingsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Total number of recordings started",
		}),
		RecordingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_duration_seconds",
			Help:      "Duration of recordings in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Fragment metrics
		FragmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Total number of transcript fragments applied",
		}, []string{"kind"}),
		FragmentsStale: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_stale_total",
			Help:      "Total number of fragments rejected as stale or duplicate",
		}),

		// Recognition source metrics
		SourceRestarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_restarts_total",
			Help:      "Total number of recognition source restarts while recording",
		}),
		SourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Total number of recognition source errors",
		}, []string{"error_type"}),

		// Text processing metrics
		WordsSuppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_suppressed_total",
			Help:      "Total number of stuttered words removed",
		}),
		SegmentsSuppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_suppressed_total",
			Help:      "Total number of near-duplicate sentences removed",
		}),
		ProcessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_latency_seconds",
			Help:      "Time to clean and extract an order from the raw transcript",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		OrdersExtracted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_extracted_total",
			Help:      "Total number of non-empty orders extracted",
		}, []string{"strategy"}),
		OrderItems: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_items",
			Help:      "Number of items per published order",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),

		// Translation metrics
		TranslationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total number of translation attempts",
		}, []string{"result"}),
		TranslationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "Translation request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Event publish metrics
		PublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Total number of events published",
		}, []string{"backend", "topic", "event_type"}),
		PublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total number of event publish errors",
		}, []string{"backend", "topic", "event_type"}),
		PublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend"}),

		// Transport metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "route"}),
		GRPCCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls",
		}, []string{"method", "code"}),
	}
}

// RecordSessionCreated records a new session.
func (m *Metrics) RecordSessionCreated() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionClosed records a session being closed.
func (m *Metrics) RecordSessionClosed() {
	m.SessionsActive.Dec()
}

// RecordRecordingStart records a recording starting.
func (m *Metrics) RecordRecordingStart() {
	m.RecordingsTotal.Inc()
}

// RecordRecordingEnd records a recording ending.
func (m *Metrics) RecordRecordingEnd(durationSeconds float64) {
	m.RecordingDuration.Observe(durationSeconds)
}

// RecordFragment records an applied fragment.
func (m *Metrics) RecordFragment(final bool) {
	kind := "interim"
	if final {
		kind = "final"
	}
	m.FragmentsTotal.WithLabelValues(kind).Inc()
}

// RecordStaleFragment records a rejected fragment.
func (m *Metrics) RecordStaleFragment() {
	m.FragmentsStale.Inc()
}

// RecordSourceRestart records an automatic source restart.
func (m *Metrics) RecordSourceRestart() {
	m.SourceRestarts.Inc()
}

// RecordSourceError records a recognition source error.
func (m *Metrics) RecordSourceError(errorType string) {
	m.SourceErrors.WithLabelValues(errorType).Inc()
}

// RecordSuppression records what one suppression pass removed.
func (m *Metrics) RecordSuppression(words, segments int) {
	m.WordsSuppressed.Add(float64(words))
	m.SegmentsSuppressed.Add(float64(segments))
}

// RecordProcess records one clean-and-extract pass.
func (m *Metrics) RecordProcess(latencySeconds float64, strategy string) {
	m.ProcessLatency.Observe(latencySeconds)
	if strategy != "" {
		m.OrdersExtracted.WithLabelValues(strategy).Inc()
	}
}

// RecordOrderPublished records the size of a published order.
func (m *Metrics) RecordOrderPublished(items int) {
	m.OrderItems.Observe(float64(items))
}

// RecordTranslation records a translation attempt and its outcome.
func (m *Metrics) RecordTranslation(result string, latencySeconds float64) {
	m.TranslationsTotal.WithLabelValues(result).Inc()
	m.TranslationLatency.Observe(latencySeconds)
}

// RecordPublish records an event publish attempt.
func (m *Metrics) RecordPublish(backend, topic, eventType string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(backend, topic, eventType).Inc()
	m.PublishLatency.WithLabelValues(backend).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(backend, topic, eventType).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latencySeconds)
}

// RecordGRPCCall records a completed gRPC call.
func (m *Metrics) RecordGRPCCall(method, code string) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
}
