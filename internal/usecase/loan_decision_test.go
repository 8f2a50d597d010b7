package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartLoan/internal/domain/models"
)

type mockFraud struct {
	label int
	err   error
	calls int
	got   models.FeatureRecord
}

func (m *mockFraud) Predict(_ context.Context, rec models.FeatureRecord) (int, error) {
	m.calls++
	m.got = rec
	return m.label, m.err
}

type mockApproval struct {
	label      int
	proba      float64
	err        error
	probaErr   error
	calls      int
	probaCalls int
}

func (m *mockApproval) Predict(_ context.Context, _ models.FeatureRecord) (int, error) {
	m.calls++
	return m.label, m.err
}

func (m *mockApproval) PredictProba(_ context.Context, _ models.FeatureRecord) (float64, error) {
	m.probaCalls++
	return m.proba, m.probaErr
}

type recordingSink struct {
	mu        sync.Mutex
	decisions []*models.Decision
	err       error
}

func (s *recordingSink) Record(_ context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

type mapCache struct {
	items map[string]*models.Decision
	hits  int
}

func key(rec models.FeatureRecord) string {
	b, _ := json.Marshal(rec)
	return string(b)
}

func (c *mapCache) Get(_ context.Context, rec models.FeatureRecord) (*models.Decision, bool) {
	d, ok := c.items[key(rec)]
	if ok {
		c.hits++
	}
	return d, ok
}

func (c *mapCache) Set(_ context.Context, rec models.FeatureRecord, d *models.Decision) {
	c.items[key(rec)] = d
}

type countingMetrics struct {
	decisions map[string]int
	errors    map[string]int
	stages    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{decisions: map[string]int{}, errors: map[string]int{}, stages: map[string]int{}}
}

func (m *countingMetrics) RecordDecision(status models.DecisionStatus, _ string) {
	m.decisions[string(status)]++
}
func (m *countingMetrics) RecordError(kind string)               { m.errors[kind]++ }
func (m *countingMetrics) RecordLatency(stage string, _ float64) { m.stages[stage]++ }
func (m *countingMetrics) RecordSinkWrite(string, bool)          {}

var scenarioApp = models.Application{Income: 50000, LoanAmount: 10000, CreditScore: 720, Tenure: 36}

func TestDecideApproved(t *testing.T) {
	fraud := &mockFraud{label: 1}
	approval := &mockApproval{label: 1, proba: 0.8734}
	engine := NewLoanDecisionEngine(fraud, approval)

	d, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, d.Status)
	assert.Equal(t, models.ReasonLowRisk, d.Reason)
	require.NotNil(t, d.Probability)
	assert.Equal(t, 0.87, *d.Probability)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, models.FeatureRecord{50000, 10000, 720, 36}, fraud.got)
	assert.Equal(t, 1, fraud.calls)
	assert.Equal(t, 1, approval.calls)
	assert.Equal(t, 1, approval.probaCalls)
}

func TestDecideRejectedHighRisk(t *testing.T) {
	fraud := &mockFraud{label: 1}
	approval := &mockApproval{label: 0, proba: 0.31}
	engine := NewLoanDecisionEngine(fraud, approval)

	d, err := engine.Decide(context.Background(), models.Application{Income: 20000, LoanAmount: 50000, CreditScore: 580, Tenure: 12})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, d.Status)
	assert.Equal(t, models.ReasonHighRisk, d.Reason)
	require.NotNil(t, d.Probability)
	assert.Equal(t, 0.31, *d.Probability)
}

func TestDecideFraudShortCircuits(t *testing.T) {
	fraud := &mockFraud{label: -1}
	approval := &mockApproval{label: 1, proba: 0.99}
	engine := NewLoanDecisionEngine(fraud, approval)

	d, err := engine.Decide(context.Background(), models.Application{Income: 1000, LoanAmount: 900000, CreditScore: 300, Tenure: 6})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, d.Status)
	assert.Equal(t, models.ReasonFraud, d.Reason)
	assert.Nil(t, d.Probability)
	assert.True(t, d.IsFraud())
	assert.Zero(t, approval.calls)
	assert.Zero(t, approval.probaCalls)
}

func TestDecideNonFraudLabelsOtherThanMinusOne(t *testing.T) {
	for _, label := range []int{0, 1, 2} {
		fraud := &mockFraud{label: label}
		approval := &mockApproval{label: 1, proba: 0.6}
		d, err := NewLoanDecisionEngine(fraud, approval).Decide(context.Background(), scenarioApp)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, d.Status, "fraud label %d", label)
	}
}

func TestDecideApprovalLabelOtherThanOneRejects(t *testing.T) {
	approval := &mockApproval{label: 2, proba: 0.9}
	d, err := NewLoanDecisionEngine(&mockFraud{label: 1}, approval).Decide(context.Background(), scenarioApp)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, d.Status)
	assert.Equal(t, 0.9, *d.Probability)
}

func TestDecideIsDeterministic(t *testing.T) {
	engine := NewLoanDecisionEngine(&mockFraud{label: 1}, &mockApproval{label: 1, proba: 0.8734})

	a, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)
	b, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)

	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.Reason, b.Reason)
	assert.Equal(t, *a.Probability, *b.Probability)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDecideInferenceErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		fraud    *mockFraud
		approval *mockApproval
	}{
		{"fraud", &mockFraud{err: boom}, &mockApproval{}},
		{"approval label", &mockFraud{label: 1}, &mockApproval{err: boom}},
		{"approval proba", &mockFraud{label: 1}, &mockApproval{label: 1, probaErr: boom}},
		{"probability out of range", &mockFraud{label: 1}, &mockApproval{label: 1, proba: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := newCountingMetrics()
			sink := &recordingSink{}
			engine := NewLoanDecisionEngine(tt.fraud, tt.approval, WithMetrics(metrics), WithSink(sink))

			d, err := engine.Decide(context.Background(), scenarioApp)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrInference)
			assert.Equal(t, 1, metrics.errors["inference"])
			assert.Empty(t, sink.decisions)
		})
	}
}

func TestDecideRecordsToSinkAndSwallowsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("kafka down")}
	metrics := newCountingMetrics()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine := NewLoanDecisionEngine(&mockFraud{label: 1}, &mockApproval{label: 1, proba: 0.8734},
		WithSink(sink), WithMetrics(metrics), WithBackend("http"), withClock(func() time.Time { return fixed }))

	d, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)

	require.Len(t, sink.decisions, 1)
	assert.Same(t, d, sink.decisions[0])
	assert.Equal(t, "http", d.Backend)
	assert.Equal(t, fixed, d.CreatedAt)
	assert.Equal(t, 1, metrics.decisions["Approved"])
	assert.Equal(t, 1, metrics.stages["fraud"])
	assert.Equal(t, 1, metrics.stages["approval"])
	assert.Equal(t, 1, metrics.stages["decision"])
}

func TestDecideUsesCache(t *testing.T) {
	fraud := &mockFraud{label: 1}
	approval := &mockApproval{label: 1, proba: 0.8734}
	cache := &mapCache{items: map[string]*models.Decision{}}
	sink := &recordingSink{}
	engine := NewLoanDecisionEngine(fraud, approval, WithCache(cache), WithSink(sink))

	first, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)
	second, err := engine.Decide(context.Background(), scenarioApp)
	require.NoError(t, err)

	assert.Equal(t, 1, fraud.calls)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.Probability, *second.Probability)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, sink.decisions, 2)
}

func TestRoundProbability(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.8734, 0.87},
		{0.31, 0.31},
		{0.004, 0},
		{1, 1},
		{0, 0},
		// stored just below the halfway point
		{0.015, 0.01},
		{0.045, 0.04},
		{0.145, 0.14},
		{0.995, 0.99},
		// exact binary ties go to the even digit
		{0.125, 0.12},
		{0.375, 0.38},
		{0.625, 0.62},
		{0.875, 0.88},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundProbability(tt.in), "round(%v)", tt.in)
	}
}

func TestRoundProbabilityForestVotes(t *testing.T) {
	// A 200-tree forest returns k/200; odd k lands on a third decimal of 5.
	want := map[int]float64{3: 0.01, 9: 0.04, 25: 0.12, 29: 0.14, 75: 0.38, 125: 0.62, 175: 0.88}
	for k, w := range want {
		assert.Equal(t, w, RoundProbability(float64(k)/200), "%d/200", k)
	}
}
