package repository

import (
	"context"

	"SmartLoan/internal/domain/models"
)

// DecisionSink receives every computed decision after the response value is
// fixed. Sinks never alter a decision.
type DecisionSink interface {
	Record(ctx context.Context, d *models.Decision) error
	Close() error
}

// DecisionStore persists decisions for audit. Init creates the backing
// schema and is idempotent.
type DecisionStore interface {
	DecisionSink
	Init(ctx context.Context) error
}

// DecisionCache memoizes decisions by feature record.
type DecisionCache interface {
	Get(ctx context.Context, rec models.FeatureRecord) (*models.Decision, bool)
	Set(ctx context.Context, rec models.FeatureRecord, d *models.Decision)
}

type Metrics interface {
	RecordDecision(status models.DecisionStatus, reason string)
	RecordError(kind string)
	RecordLatency(stage string, seconds float64)
	RecordSinkWrite(sink string, ok bool)
}
