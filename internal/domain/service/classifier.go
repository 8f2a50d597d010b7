package service

import (
	"context"

	"SmartLoan/internal/domain/models"
)

// FraudClassifier screens an application. A label of models.FraudLabel (-1)
// means fraud; any other value means not fraud.
type FraudClassifier interface {
	Predict(ctx context.Context, rec models.FeatureRecord) (int, error)
}

// ApprovalClassifier predicts loan approval. Predict returns 0 or 1 and
// PredictProba the probability of class 1.
type ApprovalClassifier interface {
	Predict(ctx context.Context, rec models.FeatureRecord) (int, error)
	PredictProba(ctx context.Context, rec models.FeatureRecord) (float64, error)
}

// DecisionEngine turns a validated application into a decision.
type DecisionEngine interface {
	Decide(ctx context.Context, app models.Application) (*models.Decision, error)
}
