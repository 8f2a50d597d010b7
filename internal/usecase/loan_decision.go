package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
	domsvc "SmartLoan/internal/domain/service"
	"SmartLoan/internal/services/features"
	applogger "SmartLoan/pkg/logger"
)

// ErrInference wraps every classifier failure on the decision path.
var ErrInference = errors.New("inference failed")

// LoanDecisionEngine screens an application for fraud, then runs the
// approval model. It is built once at startup and shared by all requests.
type LoanDecisionEngine struct {
	fraud    domsvc.FraudClassifier
	approval domsvc.ApprovalClassifier
	sink     domrepo.DecisionSink
	cache    domrepo.DecisionCache
	metrics  domrepo.Metrics
	logger   *applogger.Logger
	backend  string
	now      func() time.Time
}

type EngineOption func(*LoanDecisionEngine)

// WithSink attaches a recorder that receives every decision.
func WithSink(s domrepo.DecisionSink) EngineOption {
	return func(e *LoanDecisionEngine) { e.sink = s }
}

func WithCache(c domrepo.DecisionCache) EngineOption {
	return func(e *LoanDecisionEngine) { e.cache = c }
}

func WithMetrics(m domrepo.Metrics) EngineOption {
	return func(e *LoanDecisionEngine) { e.metrics = m }
}

func WithLogger(l *applogger.Logger) EngineOption {
	return func(e *LoanDecisionEngine) { e.logger = l }
}

// WithBackend labels decisions with the classifier backend that produced them.
func WithBackend(name string) EngineOption {
	return func(e *LoanDecisionEngine) { e.backend = name }
}

func withClock(now func() time.Time) EngineOption {
	return func(e *LoanDecisionEngine) { e.now = now }
}

func NewLoanDecisionEngine(fraud domsvc.FraudClassifier, approval domsvc.ApprovalClassifier, opts ...EngineOption) *LoanDecisionEngine {
	e := &LoanDecisionEngine{
		fraud:    fraud,
		approval: approval,
		logger:   applogger.Nop(),
		backend:  "local",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs the fraud screen and, unless it flags fraud, the approval
// model. The result depends only on the application and the loaded models.
func (e *LoanDecisionEngine) Decide(ctx context.Context, app models.Application) (*models.Decision, error) {
	start := time.Now()
	rec := features.Assemble(app)

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, rec); ok {
			d := e.stamp(*cached, rec)
			e.logger.Debug("decision served from cache", applogger.String("decision_id", d.ID))
			e.finish(ctx, d, start)
			return d, nil
		}
	}

	d, err := e.infer(ctx, rec)
	if err != nil {
		e.recordError()
		e.logger.Error("inference failed", applogger.Floats("record", rec), applogger.Error(err))
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, rec, d)
	}
	e.finish(ctx, d, start)
	return d, nil
}

func (e *LoanDecisionEngine) infer(ctx context.Context, rec models.FeatureRecord) (*models.Decision, error) {
	e.logger.Debug("feature record assembled", applogger.Floats("record", rec))

	stage := time.Now()
	fraudLabel, err := e.fraud.Predict(ctx, rec)
	e.observe("fraud", stage)
	if err != nil {
		return nil, fmt.Errorf("%w: fraud classifier: %w", ErrInference, err)
	}
	e.logger.Debug("fraud screen", applogger.Int("fraud_label", fraudLabel))

	if fraudLabel == models.FraudLabel {
		d := e.stamp(models.Decision{
			Status:     models.StatusRejected,
			Reason:     models.ReasonFraud,
			FraudLabel: fraudLabel,
		}, rec)
		return d, nil
	}

	stage = time.Now()
	label, err := e.approval.Predict(ctx, rec)
	if err != nil {
		e.observe("approval", stage)
		return nil, fmt.Errorf("%w: approval classifier: %w", ErrInference, err)
	}
	proba, err := e.approval.PredictProba(ctx, rec)
	e.observe("approval", stage)
	if err != nil {
		return nil, fmt.Errorf("%w: approval probability: %w", ErrInference, err)
	}
	if math.IsNaN(proba) || proba < 0 || proba > 1 {
		return nil, fmt.Errorf("%w: approval probability %v outside [0, 1]", ErrInference, proba)
	}

	rounded := RoundProbability(proba)
	e.logger.Debug("approval model",
		applogger.Int("approval_label", label),
		applogger.Float64("probability", proba),
	)

	d := models.Decision{
		Status:        models.StatusRejected,
		Reason:        models.ReasonHighRisk,
		Probability:   &rounded,
		FraudLabel:    fraudLabel,
		ApprovalLabel: &label,
	}
	if label == 1 {
		d.Status = models.StatusApproved
		d.Reason = models.ReasonLowRisk
	}
	return e.stamp(d, rec), nil
}

// stamp gives d a fresh identity. The feature record is copied so later
// mutation by the caller cannot reach the decision.
func (e *LoanDecisionEngine) stamp(d models.Decision, rec models.FeatureRecord) *models.Decision {
	d.ID = uuid.NewString()
	d.Features = append(models.FeatureRecord(nil), rec...)
	d.Backend = e.backend
	d.CreatedAt = e.now().UTC()
	return &d
}

func (e *LoanDecisionEngine) finish(ctx context.Context, d *models.Decision, start time.Time) {
	e.observe("decision", start)
	if e.metrics != nil {
		e.metrics.RecordDecision(d.Status, d.Reason)
	}

	fields := []applogger.Field{
		applogger.String("decision_id", d.ID),
		applogger.String("status", string(d.Status)),
		applogger.String("reason", d.Reason),
	}
	if d.Probability != nil {
		fields = append(fields, applogger.Float64("approval_probability", *d.Probability))
	}
	e.logger.Info("loan decision", fields...)

	if e.sink == nil {
		return
	}
	if err := e.sink.Record(ctx, d); err != nil {
		e.logger.Warn("decision sink failed", applogger.String("decision_id", d.ID), applogger.Error(err))
	}
}

func (e *LoanDecisionEngine) observe(stage string, since time.Time) {
	if e.metrics != nil {
		e.metrics.RecordLatency(stage, time.Since(since).Seconds())
	}
}

func (e *LoanDecisionEngine) recordError() {
	if e.metrics != nil {
		e.metrics.RecordError("inference")
	}
}

// exactExponent is below the smallest float64 exponent, so the decimal
// carries the exact binary value of the probability.
const exactExponent = -1100

// RoundProbability rounds to two decimals the way Python's round does: the
// exact binary value is rounded, and only true ties go to the even digit.
// 0.125 becomes 0.12, while 0.145 (stored as 0.14499...) becomes 0.14.
func RoundProbability(p float64) float64 {
	v, _ := decimal.NewFromFloatWithExponent(p, exactExponent).RoundBank(2).Float64()
	return v
}

var _ domsvc.DecisionEngine = (*LoanDecisionEngine)(nil)
