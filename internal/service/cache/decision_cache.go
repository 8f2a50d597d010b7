package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"SmartLoan/internal/domain/models"
	domrepo "SmartLoan/internal/domain/repository"
	applogger "SmartLoan/pkg/logger"
)

const keyPrefix = "smartloan:decision:"

// cachedDecision holds only the inference result. Identity fields are
// stamped fresh on every request.
type cachedDecision struct {
	Status        models.DecisionStatus `json:"status"`
	Reason        string                `json:"reason"`
	Probability   *float64              `json:"p,omitempty"`
	FraudLabel    int                   `json:"fraud"`
	ApprovalLabel *int                  `json:"approval,omitempty"`
}

// DecisionCache memoizes decisions per feature record. The namespace should
// identify the loaded models so a retrain never serves stale results.
// Backend errors are logged and treated as misses.
type DecisionCache struct {
	store     BytesCache
	ttl       time.Duration
	namespace string
	l         *applogger.Logger
}

func NewDecisionCache(store BytesCache, ttl time.Duration, namespace string, l *applogger.Logger) *DecisionCache {
	if l == nil {
		l = applogger.Nop()
	}
	return &DecisionCache{store: store, ttl: ttl, namespace: namespace, l: l}
}

// Key is the cache key for rec under the cache namespace.
func (c *DecisionCache) Key(rec models.FeatureRecord) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	for _, v := range rec {
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatFloat(v, 'g', -1, 64)))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *DecisionCache) Get(ctx context.Context, rec models.FeatureRecord) (*models.Decision, bool) {
	raw, ok, err := c.store.GetBytes(ctx, c.Key(rec))
	if err != nil {
		c.l.Warn("decision cache get failed", applogger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var cd cachedDecision
	if err := json.Unmarshal(raw, &cd); err != nil {
		c.l.Warn("decision cache entry corrupt", applogger.Error(err))
		return nil, false
	}
	return &models.Decision{
		Status:        cd.Status,
		Reason:        cd.Reason,
		Probability:   cd.Probability,
		FraudLabel:    cd.FraudLabel,
		ApprovalLabel: cd.ApprovalLabel,
	}, true
}

func (c *DecisionCache) Set(ctx context.Context, rec models.FeatureRecord, d *models.Decision) {
	raw, err := json.Marshal(cachedDecision{
		Status:        d.Status,
		Reason:        d.Reason,
		Probability:   d.Probability,
		FraudLabel:    d.FraudLabel,
		ApprovalLabel: d.ApprovalLabel,
	})
	if err != nil {
		return
	}
	if err := c.store.SetBytes(ctx, c.Key(rec), raw, c.ttl); err != nil {
		c.l.Warn("decision cache set failed", applogger.Error(err))
	}
}

var _ domrepo.DecisionCache = (*DecisionCache)(nil)
