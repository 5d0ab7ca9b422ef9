package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics records upload, extraction and answer outcomes.
type SessionMetrics struct {
	service string

	uploadTotal     *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	extractionTotal *prometheus.CounterVec
	answerTotal     *prometheus.CounterVec
	answerDuration  *prometheus.HistogramVec
	answersInFlight prometheus.Gauge
}

func NewSessionMetrics(service string, registerer prometheus.Registerer) *SessionMetrics {
	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "uploads_total",
			Help:      "Finished uploads by final status.",
		},
		[]string{"service", "status"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "upload_duration_seconds",
			Help:      "Time from upload start to ready or error.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extractor",
			Name:      "extractions_total",
			Help:      "Completed extractions by strategy and whether the result is degraded.",
		},
		[]string{"service", "strategy", "degraded"},
	)
	answerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "requests_total",
			Help:      "Answering-service calls by outcome.",
		},
		[]string{"service", "status"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "duration_seconds",
			Help:      "Answering-service call duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service", "status"},
	)
	answersInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "in_flight",
			Help:      "Number of questions waiting on the answering service.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registerer.MustRegister(uploadTotal, uploadDuration, extractionTotal, answerTotal, answerDuration, answersInFlight)

	return &SessionMetrics{
		service:         service,
		uploadTotal:     uploadTotal,
		uploadDuration:  uploadDuration,
		extractionTotal: extractionTotal,
		answerTotal:     answerTotal,
		answerDuration:  answerDuration,
		answersInFlight: answersInFlight,
	}
}

func (m *SessionMetrics) ObserveUpload(status string, duration time.Duration) {
	m.uploadTotal.WithLabelValues(m.service, status).Inc()
	m.uploadDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *SessionMetrics) ObserveExtraction(strategy string, degraded bool) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.extractionTotal.WithLabelValues(m.service, strategy, strconv.FormatBool(degraded)).Inc()
}

func (m *SessionMetrics) ObserveAnswer(status string, duration time.Duration) {
	m.answerTotal.WithLabelValues(m.service, status).Inc()
	m.answerDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *SessionMetrics) AnswerStarted() {
	m.answersInFlight.Inc()
}

func (m *SessionMetrics) AnswerFinished() {
	m.answersInFlight.Dec()
}
