package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/config"
	"SmartLoan/pkg/dataset"
	applogger "SmartLoan/pkg/logger"
	"SmartLoan/pkg/ml/forest"
)

// Artifact file names written under the output directory.
const (
	ApprovalFile = "loan_model.json"
	FraudFile    = "fraud_model.json"
	EncodersFile = "encoders.json"
)

type Option func(*runner)

// WithLogger sets the logger used for phase progress.
func WithLogger(l *applogger.Logger) Option {
	return func(r *runner) { r.l = l }
}

// WithProgress is called after each tree is grown.
func WithProgress(fn func(done, total int)) Option {
	return func(r *runner) { r.progress = fn }
}

type runner struct {
	cfg      config.TrainingConfig
	l        *applogger.Logger
	progress func(done, total int)
}

func newRunner(cfg config.TrainingConfig, opts []Option) runner {
	r := runner{cfg: cfg, l: applogger.Nop()}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// loadAndClean runs the load and clean phases shared by both trainers.
func (r *runner) loadAndClean(ctx context.Context) (*dataset.Frame, map[string]ColumnKind, error) {
	start := time.Now()
	frame, err := dataset.Load(r.cfg.Dataset)
	if err != nil {
		return nil, nil, fail(PhaseLoad, err)
	}
	r.l.Info("dataset loaded",
		applogger.String("path", r.cfg.Dataset),
		applogger.Int("rows", frame.Len()),
		applogger.Strings("columns", frame.Columns),
		applogger.Duration("elapsed_ms", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return nil, nil, fail(PhaseClean, err)
	}

	cleaned, kinds, err := Clean(frame, r.cfg.IDColumn)
	if err != nil {
		return nil, nil, fail(PhaseClean, err)
	}
	return cleaned, kinds, nil
}

// Result describes a successful approval training run.
type Result struct {
	ModelPath    string
	EncodersPath string
	Features     []string
	TrainRows    int
	Metrics      Metrics
}

// Pipeline trains the approval random forest.
type Pipeline struct {
	runner
}

func NewPipeline(cfg config.TrainingConfig, opts ...Option) *Pipeline {
	return &Pipeline{runner: newRunner(cfg, opts)}
}

// Run executes load, clean, encode and split, fit, evaluate and persist,
// stopping at the first failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cleaned, kinds, err := p.loadAndClean(ctx)
	if err != nil {
		return nil, err
	}

	m, err := Encode(cleaned, kinds, p.cfg.Target, p.cfg.Features)
	if err != nil {
		return nil, fail(PhaseEncode, err)
	}
	trainIdx, testIdx, err := Split(len(m.Y), p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return nil, fail(PhaseEncode, err)
	}
	p.l.Info("dataset encoded",
		applogger.Strings("features", m.Features),
		applogger.Strings("encoded", m.Encoders.Columns()),
		applogger.Int("train_rows", len(trainIdx)),
		applogger.Int("test_rows", len(testIdx)),
	)
	if err := ctx.Err(); err != nil {
		return nil, fail(PhaseFit, err)
	}

	start := time.Now()
	opts := []forest.Option{
		forest.WithTrees(p.cfg.Trees),
		forest.WithSeed(p.cfg.Seed),
		forest.WithMaxDepth(p.cfg.MaxDepth),
	}
	if p.progress != nil {
		opts = append(opts, forest.WithProgress(p.progress))
	}
	model, err := forest.Fit(take(m.X, trainIdx), take(m.Y, trainIdx), opts...)
	if err != nil {
		return nil, fail(PhaseFit, err)
	}
	p.l.Info("forest fitted",
		applogger.Int("trees", len(model.Trees)),
		applogger.Duration("elapsed_ms", time.Since(start)),
	)

	yPred, err := model.PredictBatch(take(m.X, testIdx))
	if err != nil {
		return nil, fail(PhaseEvaluate, err)
	}
	metrics := Evaluate(take(m.Y, testIdx), yPred)
	p.l.Info("model evaluated",
		applogger.Float64("accuracy", metrics.Accuracy),
		applogger.Float64("precision", metrics.Precision),
		applogger.Float64("recall", metrics.Recall),
		applogger.Float64("f1", metrics.F1),
	)
	if p.cfg.MinAccuracy > 0 && metrics.Accuracy < p.cfg.MinAccuracy {
		return nil, fail(PhaseEvaluate, fmt.Errorf("%w: %.4f < %.4f", ErrBelowMinAccuracy, metrics.Accuracy, p.cfg.MinAccuracy))
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(PhasePersist, err)
	}

	res := &Result{
		ModelPath:    filepath.Join(p.cfg.OutputDir, ApprovalFile),
		EncodersPath: filepath.Join(p.cfg.OutputDir, EncodersFile),
		Features:     m.Features,
		TrainRows:    len(trainIdx),
		Metrics:      metrics,
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fail(PhasePersist, err)
	}
	if err := artifact.Write(res.ModelPath, artifact.KindApproval, m.Features, metrics.Map(), model); err != nil {
		return nil, fail(PhasePersist, err)
	}
	if err := artifact.Write(res.EncodersPath, artifact.KindEncoders, m.Features, nil, m.Encoders); err != nil {
		return nil, fail(PhasePersist, err)
	}
	p.l.Info("artifacts written",
		applogger.String("model", res.ModelPath),
		applogger.String("encoders", res.EncodersPath),
	)
	return res, nil
}
