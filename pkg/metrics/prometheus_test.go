package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
)

var _ domrepo.Metrics = (*Recorder)(nil)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordDecision(models.StatusApproved, models.ReasonLowRisk)
	r.RecordDecision(models.StatusApproved, models.ReasonLowRisk)
	r.RecordDecision(models.StatusRejected, models.ReasonFraud)
	r.RecordError("inference")
	r.RecordSinkWrite("kafka", false)
	r.RecordLatency("fraud", 0.002)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("Approved", models.ReasonLowRisk)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("Rejected", models.ReasonFraud)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("inference")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sinkWrites.WithLabelValues("kafka", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
