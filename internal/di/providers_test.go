package di

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartLoan/internal/domain/models"
	icache "SmartLoan/internal/service/cache"
	"SmartLoan/pkg/artifact"
	"SmartLoan/pkg/config"
	applogger "SmartLoan/pkg/logger"
	"SmartLoan/pkg/ml/forest"
	"SmartLoan/pkg/ml/isoforest"
)

func writeModels(t *testing.T, dir string) {
	t.Helper()
	schema := models.ApplicationSchema()

	X := [][]float64{
		{30000, 20000, 550, 12}, {32000, 25000, 560, 12}, {28000, 18000, 540, 24},
		{90000, 5000, 780, 36}, {85000, 6000, 760, 48}, {95000, 4000, 800, 36},
	}
	approval, err := forest.Fit(X, []int{0, 0, 0, 1, 1, 1}, forest.WithTrees(10))
	require.NoError(t, err)
	require.NoError(t, artifact.Write(filepath.Join(dir, "loan_model.json"), artifact.KindApproval, schema, nil, approval))

	rng := rand.New(rand.NewSource(3))
	normal := make([][]float64, 100)
	for i := range normal {
		normal[i] = []float64{
			60000 + rng.NormFloat64()*3000,
			12000 + rng.NormFloat64()*1000,
			700 + rng.NormFloat64()*20,
			36 + rng.NormFloat64()*4,
		}
	}
	fraud, err := isoforest.Fit(normal, isoforest.WithTrees(30))
	require.NoError(t, err)
	require.NoError(t, artifact.Write(filepath.Join(dir, "fraud_model.json"), artifact.KindFraud, schema, nil, fraud))
}

type countingFraud struct{ calls int }

func (f *countingFraud) Predict(context.Context, models.FeatureRecord) (int, error) {
	f.calls++
	return 1, nil
}

type countingApproval struct{ calls int }

func (a *countingApproval) Predict(context.Context, models.FeatureRecord) (int, error) {
	a.calls++
	return 1, nil
}

func (a *countingApproval) PredictProba(context.Context, models.FeatureRecord) (float64, error) {
	return 0.8, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Models.Dir = t.TempDir()
	return cfg
}

func TestProvideModelsLocal(t *testing.T) {
	cfg := testConfig(t)
	writeModels(t, cfg.Models.Dir)

	m, err := ProvideModels(cfg, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", m.Backend)
	assert.Contains(t, m.Namespace, ":")
	assert.NotNil(t, m.Fraud)
	assert.NotNil(t, m.Approval)
}

func TestProvideModelsMissingArtifacts(t *testing.T) {
	cfg := testConfig(t)

	_, err := ProvideModels(cfg, applogger.Nop())
	assert.ErrorIs(t, err, artifact.ErrModelLoad)
}

func TestProvideModelsHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.Backend = "http"
	cfg.ClassifierService.URL = "http://scoring:8000"

	m, err := ProvideModels(cfg, applogger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http", m.Backend)
	assert.Equal(t, "http:http://scoring:8000", m.Namespace)
	assert.False(t, m.Cacheable())
}

func TestProvideDecisionEngineSkipsCacheForRemoteModels(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = true
	l := applogger.Nop()

	fraud := &countingFraud{}
	approval := &countingApproval{}
	m := &Models{Fraud: fraud, Approval: approval, Backend: "http", Namespace: "http:http://scoring:8000"}
	sink, err := ProvideDecisionSink(cfg, nil, nil, nil, l)
	require.NoError(t, err)
	store, err := ProvideCacheStore(cfg)
	require.NoError(t, err)

	engine := ProvideDecisionEngine(cfg, m, sink, store, nil, l)
	app := models.Application{Income: 50000, LoanAmount: 10000, CreditScore: 720, Tenure: 36}
	for i := 0; i < 2; i++ {
		_, err := engine.Decide(context.Background(), app)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, fraud.calls)
	assert.Equal(t, 2, approval.calls)
	assert.Zero(t, store.(*icache.TTLCache).Len())
}

func TestProvideCacheStore(t *testing.T) {
	cfg := testConfig(t)

	store, err := ProvideCacheStore(cfg)
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg.Cache.Enabled = true
	store, err = ProvideCacheStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &icache.TTLCache{}, store)

	mr := miniredis.RunT(t)
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()
	store, err = ProvideCacheStore(cfg)
	require.NoError(t, err)
	require.IsType(t, &icache.RedisCache{}, store)
	require.NoError(t, store.(*icache.RedisCache).Close())

	mr.Close()
	_, err = ProvideCacheStore(cfg)
	assert.Error(t, err)
}

func TestDisabledInfrastructureIsNil(t *testing.T) {
	cfg := testConfig(t)

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)

	client, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, client)

	assert.False(t, bool(ProvideLogShipping(cfg, applogger.Nop(), nil)))

	sink, err := ProvideDecisionSink(cfg, nil, nil, nil, applogger.Nop())
	require.NoError(t, err)
	assert.Zero(t, sink.Len())
}

func TestProvideDecisionEngineWithCache(t *testing.T) {
	cfg := testConfig(t)
	writeModels(t, cfg.Models.Dir)
	cfg.Cache.Enabled = true
	l := applogger.Nop()

	m, err := ProvideModels(cfg, l)
	require.NoError(t, err)
	sink, err := ProvideDecisionSink(cfg, nil, nil, nil, l)
	require.NoError(t, err)
	store, err := ProvideCacheStore(cfg)
	require.NoError(t, err)

	engine := ProvideDecisionEngine(cfg, m, sink, store, nil, l)
	app := models.Application{Income: 90000, LoanAmount: 5000, CreditScore: 790, Tenure: 36}

	first, err := engine.Decide(context.Background(), app)
	require.NoError(t, err)
	second, err := engine.Decide(context.Background(), app)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Reason, second.Reason)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, store.(*icache.TTLCache).Len())
}
