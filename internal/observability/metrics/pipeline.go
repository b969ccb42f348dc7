package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

// PipelineMetrics implements ports.PipelineObserver.
type PipelineMetrics struct {
	service string

	decisionsTotal   *prometheus.CounterVec
	decisionScore    *prometheus.HistogramVec
	documentsTotal   *prometheus.CounterVec
	documentConf     *prometheus.HistogramVec
	oracleCallsTotal *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	confidenceBuckets := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

	m := &PipelineMetrics{
		service: service,
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Claim decisions by status.",
		}, []string{"service", "status"}),
		decisionScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decision_score",
			Help:      "Distribution of weighted decision scores.",
			Buckets:   confidenceBuckets,
		}, []string{"service"}),
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Processed documents by classified type.",
		}, []string{"service", "type"}),
		documentConf: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "document_confidence",
			Help:      "Extraction confidence per document type.",
			Buckets:   confidenceBuckets,
		}, []string{"service", "type"}),
		oracleCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "oracle_calls_total",
			Help:      "Model oracle calls by stage and outcome.",
		}, []string{"service", "stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end claim processing duration.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"service", "status"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		}, []string{"service", "operation"}),
	}

	registerer.MustRegister(
		m.decisionsTotal,
		m.decisionScore,
		m.documentsTotal,
		m.documentConf,
		m.oracleCallsTotal,
		m.duration,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) ObserveDocument(docType domain.DocumentType, confidence float64) {
	m.documentsTotal.WithLabelValues(m.service, string(docType)).Inc()
	m.documentConf.WithLabelValues(m.service, string(docType)).Observe(confidence)
}

func (m *PipelineMetrics) ObserveOracleCall(stage, outcome string) {
	m.oracleCallsTotal.WithLabelValues(m.service, stage, outcome).Inc()
}

func (m *PipelineMetrics) ObserveDecision(status domain.ClaimStatus, score float64, duration time.Duration) {
	m.decisionsTotal.WithLabelValues(m.service, string(status)).Inc()
	m.decisionScore.WithLabelValues(m.service).Observe(score)
	m.duration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *PipelineMetrics) SetBreakerState(operation string, state int) {
	m.breakerState.WithLabelValues(m.service, operation).Set(float64(state))
}
