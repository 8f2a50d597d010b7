package classifier

import (
	"context"
	"fmt"

	"SmartLoan/internal/domain/models"
	domsvc "SmartLoan/internal/domain/service"
	"SmartLoan/pkg/config"
)

// scoreReq is the body sent to the external scoring service. Features are
// sent both positionally and by name so either style of server can read them.
type scoreReq struct {
	Schema   []string           `json:"schema"`
	Record   []float64          `json:"record"`
	Features map[string]float64 `json:"features"`
}

func newScoreReq(rec models.FeatureRecord) scoreReq {
	return scoreReq{
		Schema:   models.ApplicationSchema(),
		Record:   rec,
		Features: rec.Map(),
	}
}

type labelResp struct {
	Label *int `json:"label"`
}

type probaResp struct {
	Probability *float64 `json:"probability"`
}

// HTTPFraudClassifier calls POST /fraud/predict.
type HTTPFraudClassifier struct{ base *HTTPServiceBase }

func NewHTTPFraudClassifier(cfg config.ClassifierServiceConfig) *HTTPFraudClassifier {
	return &HTTPFraudClassifier{base: NewHTTPServiceBase(cfg)}
}

func (c *HTTPFraudClassifier) Predict(ctx context.Context, rec models.FeatureRecord) (int, error) {
	var resp labelResp
	if err := c.base.PostJSON(ctx, "/fraud/predict", newScoreReq(rec), &resp); err != nil {
		return 0, fmt.Errorf("fraud predict: %w", err)
	}
	if resp.Label == nil {
		return 0, fmt.Errorf("fraud predict: response has no label")
	}
	return *resp.Label, nil
}

func (c *HTTPFraudClassifier) Fingerprint() string { return c.base.Fingerprint() }

// HTTPApprovalClassifier calls POST /approval/predict and
// POST /approval/predict_proba.
type HTTPApprovalClassifier struct{ base *HTTPServiceBase }

func NewHTTPApprovalClassifier(cfg config.ClassifierServiceConfig) *HTTPApprovalClassifier {
	return &HTTPApprovalClassifier{base: NewHTTPServiceBase(cfg)}
}

func (c *HTTPApprovalClassifier) Predict(ctx context.Context, rec models.FeatureRecord) (int, error) {
	var resp labelResp
	if err := c.base.PostJSON(ctx, "/approval/predict", newScoreReq(rec), &resp); err != nil {
		return 0, fmt.Errorf("approval predict: %w", err)
	}
	if resp.Label == nil {
		return 0, fmt.Errorf("approval predict: response has no label")
	}
	return *resp.Label, nil
}

func (c *HTTPApprovalClassifier) PredictProba(ctx context.Context, rec models.FeatureRecord) (float64, error) {
	var resp probaResp
	if err := c.base.PostJSON(ctx, "/approval/predict_proba", newScoreReq(rec), &resp); err != nil {
		return 0, fmt.Errorf("approval predict_proba: %w", err)
	}
	if resp.Probability == nil {
		return 0, fmt.Errorf("approval predict_proba: response has no probability")
	}
	return *resp.Probability, nil
}

func (c *HTTPApprovalClassifier) Fingerprint() string { return c.base.Fingerprint() }

var (
	_ domsvc.FraudClassifier    = (*HTTPFraudClassifier)(nil)
	_ domsvc.ApprovalClassifier = (*HTTPApprovalClassifier)(nil)
)
