package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SmartLoan/internal/domain/models"
	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/config"
	applogger "SmartLoan/pkg/logger"
	"SmartLoan/pkg/ml/isoforest"
)

// FraudResult describes a successful fraud training run.
type FraudResult struct {
	ModelPath   string
	Rows        int
	Threshold   float64
	OutlierRate float64
}

// FraudPipeline fits an isolation forest over the serving schema columns.
// The target column is ignored.
type FraudPipeline struct {
	runner
}

func NewFraudPipeline(cfg config.TrainingConfig, opts ...Option) *FraudPipeline {
	return &FraudPipeline{runner: newRunner(cfg, opts)}
}

func (p *FraudPipeline) Run(ctx context.Context) (*FraudResult, error) {
	cleaned, kinds, err := p.loadAndClean(ctx)
	if err != nil {
		return nil, err
	}

	schema := models.ApplicationSchema()
	X := make([][]float64, cleaned.Len())
	for i := range X {
		X[i] = make([]float64, len(schema))
	}
	for j, name := range schema {
		values, err := cleaned.Column(name)
		if err != nil {
			return nil, fail(PhaseEncode, err)
		}
		if kinds[name] != Numeric {
			return nil, fail(PhaseEncode, fmt.Errorf("%w: %q", ErrCategoricalFeature, name))
		}
		for i, v := range values {
			X[i][j], _ = parseFloat(v)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(PhaseFit, err)
	}

	fc := p.cfg.Fraud
	start := time.Now()
	opts := []isoforest.Option{
		isoforest.WithTrees(fc.Trees),
		isoforest.WithMaxSamples(fc.MaxSamples),
		isoforest.WithContamination(fc.Contamination),
		isoforest.WithSeed(fc.Seed),
	}
	if p.progress != nil {
		opts = append(opts, isoforest.WithProgress(p.progress))
	}
	model, err := isoforest.Fit(X, opts...)
	if err != nil {
		return nil, fail(PhaseFit, err)
	}

	outliers := 0
	for _, row := range X {
		label, err := model.Predict(row)
		if err != nil {
			return nil, fail(PhaseEvaluate, err)
		}
		if label == isoforest.Outlier {
			outliers++
		}
	}
	res := &FraudResult{
		ModelPath:   filepath.Join(p.cfg.OutputDir, FraudFile),
		Rows:        len(X),
		Threshold:   model.Threshold,
		OutlierRate: float64(outliers) / float64(len(X)),
	}
	p.l.Info("isolation forest fitted",
		applogger.Int("trees", len(model.Trees)),
		applogger.Int("max_samples", model.MaxSamples),
		applogger.Float64("threshold", model.Threshold),
		applogger.Float64("training_outlier_rate", res.OutlierRate),
		applogger.Duration("elapsed_ms", time.Since(start)),
	)

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fail(PhasePersist, err)
	}
	metrics := map[string]float64{"training_outlier_rate": res.OutlierRate, "rows": float64(res.Rows)}
	if err := artifact.Write(res.ModelPath, artifact.KindFraud, schema, metrics, model); err != nil {
		return nil, fail(PhasePersist, err)
	}
	p.l.Info("artifact written", applogger.String("model", res.ModelPath))
	return res, nil
}
