package classifier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"SmartLoan/internal/domain/models"
	domsvc "SmartLoan/internal/domain/service"
	"SmartLoan/internal/services/features"
	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/ml/encoding"
	"SmartLoan/pkg/ml/forest"
	"SmartLoan/pkg/ml/isoforest"
)

// ForestApproval serves a random forest loaded from an approval artifact.
// The forest is read-only after load.
type ForestApproval struct {
	model *forest.Forest
	env   *artifact.Envelope
}

func NewForestApproval(model *forest.Forest, env *artifact.Envelope) *ForestApproval {
	return &ForestApproval{model: model, env: env}
}

// LoadApproval reads and verifies the approval artifact at path.
func LoadApproval(path string) (*ForestApproval, error) {
	var model forest.Forest
	env, err := artifact.Read(path, artifact.KindApproval, &model)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", artifact.ErrModelLoad, path, err)
	}
	if err := verifyShape(path, env, model.NFeatures); err != nil {
		return nil, err
	}
	if model.NClasses > 2 {
		return nil, fmt.Errorf("%w: %s: approval model has %d classes, want 2", artifact.ErrModelLoad, path, model.NClasses)
	}
	return &ForestApproval{model: &model, env: env}, nil
}

func (a *ForestApproval) Predict(_ context.Context, rec models.FeatureRecord) (int, error) {
	return a.model.Predict(rec)
}

func (a *ForestApproval) PredictProba(_ context.Context, rec models.FeatureRecord) (float64, error) {
	proba, err := a.model.PredictProba(rec)
	if err != nil {
		return 0, err
	}
	if len(proba) < 2 {
		return 0, nil
	}
	return proba[1], nil
}

func (a *ForestApproval) Fingerprint() string { return a.env.Fingerprint() }

func (a *ForestApproval) Metrics() map[string]float64 { return a.env.Metrics }

// IsolationFraud serves an isolation forest loaded from a fraud artifact.
type IsolationFraud struct {
	model *isoforest.Forest
	env   *artifact.Envelope
}

func NewIsolationFraud(model *isoforest.Forest, env *artifact.Envelope) *IsolationFraud {
	return &IsolationFraud{model: model, env: env}
}

func LoadFraud(path string) (*IsolationFraud, error) {
	var model isoforest.Forest
	env, err := artifact.Read(path, artifact.KindFraud, &model)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", artifact.ErrModelLoad, path, err)
	}
	if err := verifyShape(path, env, model.NFeatures); err != nil {
		return nil, err
	}
	return &IsolationFraud{model: &model, env: env}, nil
}

func (f *IsolationFraud) Predict(_ context.Context, rec models.FeatureRecord) (int, error) {
	return f.model.Predict(rec)
}

func (f *IsolationFraud) Fingerprint() string { return f.env.Fingerprint() }

func verifyShape(path string, env *artifact.Envelope, nFeatures int) error {
	if err := features.CheckSchema(models.ApplicationSchema(), env.Features); err != nil {
		return fmt.Errorf("%w: %s: %w", artifact.ErrModelLoad, path, err)
	}
	if nFeatures != len(env.Features) {
		return fmt.Errorf("%w: %s: model expects %d features, artifact lists %d", artifact.ErrModelLoad, path, nFeatures, len(env.Features))
	}
	return nil
}

// CheckEncoders loads the encoders artifact, if one exists, and verifies it
// encodes no serving feature. A missing file is not an error.
func CheckEncoders(path string) (encoding.Set, error) {
	var set encoding.Set
	if _, err := artifact.Read(path, artifact.KindEncoders, &set); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if err := features.CheckEncoders(models.ApplicationSchema(), set.Columns()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", artifact.ErrModelLoad, path, err)
	}
	return set, nil
}

var (
	_ domsvc.FraudClassifier    = (*IsolationFraud)(nil)
	_ domsvc.ApprovalClassifier = (*ForestApproval)(nil)
)
