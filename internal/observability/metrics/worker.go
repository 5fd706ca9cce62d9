package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	sessionTotal     *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	sessionsInFlight prometheus.Gauge
	passDuration     *prometheus.HistogramVec
	documentTotal    *prometheus.CounterVec
	modelTokensTotal *prometheus.CounterVec
	repairedTotal    *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	sessionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidpipe",
			Subsystem: "worker",
			Name:      "sessions_total",
			Help:      "Total processed extraction sessions by terminal status.",
		},
		[]string{"service", "status"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bidpipe",
			Subsystem: "worker",
			Name:      "session_duration_seconds",
			Help:      "Extraction session duration in seconds by terminal status.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
		[]string{"service", "status"},
	)
	sessionsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bidpipe",
			Subsystem: "worker",
			Name:      "sessions_in_flight",
			Help:      "Number of extraction sessions currently running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	passDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bidpipe",
			Subsystem: "worker",
			Name:      "pass_duration_seconds",
			Help:      "Pipeline pass duration in seconds by pass name.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service", "pass"},
	)
	documentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidpipe",
			Subsystem: "worker",
			Name:      "documents_total",
			Help:      "Total processed source documents by outcome.",
		},
		[]string{"service", "outcome"},
	)
	modelTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidpipe",
			Subsystem: "model",
			Name:      "tokens_total",
			Help:      "Model token usage by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	repairedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidpipe",
			Subsystem: "model",
			Name:      "repaired_responses_total",
			Help:      "Total model responses salvaged by structural JSON repair.",
		},
		[]string{"service"},
	)

	registry.MustRegister(sessionTotal, sessionDuration, sessionsInFlight,
		passDuration, documentTotal, modelTokensTotal, repairedTotal)

	return &WorkerMetrics{
		registry:         registry,
		sessionTotal:     sessionTotal,
		sessionDuration:  sessionDuration,
		sessionsInFlight: sessionsInFlight,
		passDuration:     passDuration,
		documentTotal:    documentTotal,
		modelTokensTotal: modelTokensTotal,
		repairedTotal:    repairedTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSession() {
	m.sessionsInFlight.Inc()
}

func (m *WorkerMetrics) FinishSession(service, status string, duration time.Duration) {
	m.sessionsInFlight.Dec()
	if status == "" {
		status = "unknown"
	}
	m.sessionTotal.WithLabelValues(service, status).Inc()
	m.sessionDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObservePass(service, pass string, duration time.Duration) {
	m.passDuration.WithLabelValues(service, pass).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordDocument(service string, failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.documentTotal.WithLabelValues(service, outcome).Inc()
}

func (m *WorkerMetrics) RecordTokenUsage(service, model string, inputTokens, outputTokens int64) {
	if model == "" {
		model = "unknown"
	}
	if inputTokens > 0 {
		m.modelTokensTotal.WithLabelValues(service, "in", model).Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.modelTokensTotal.WithLabelValues(service, "out", model).Add(float64(outputTokens))
	}
}

func (m *WorkerMetrics) RecordRepairedResponse(service string) {
	m.repairedTotal.WithLabelValues(service).Inc()
}
