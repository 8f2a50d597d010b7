package metrics

import (
	"strconv"

	"SmartLoan/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	sinkWrites  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartloan_decisions_total",
				Help: "Total number of loan decisions by status and reason",
			},
			[]string{"status", "reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartloan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sinkWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartloan_sink_writes_total",
				Help: "Decision records written to downstream sinks",
			},
			[]string{"sink", "ok"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartloan_inference_seconds",
				Help:    "Duration of decision stages in seconds",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"stage"},
		),
	}
}

// RecordDecision counts a decision.
func (r *Recorder) RecordDecision(status models.DecisionStatus, reason string) {
	r.decisions.WithLabelValues(string(status), reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordSinkWrite(sink string, ok bool) {
	r.sinkWrites.WithLabelValues(sink, strconv.FormatBool(ok)).Inc()
}
