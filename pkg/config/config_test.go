package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 5000, c.Server.Port)
	assert.Equal(t, "models", c.Models.Dir)
	assert.Equal(t, "local", c.Models.Backend)
	assert.Equal(t, "models/loan_model.json", c.Models.ApprovalPath())
	assert.Equal(t, "models/fraud_model.json", c.Models.FraudPath())
	assert.Equal(t, "models/encoders.json", c.Models.EncodersPath())
	assert.Equal(t, []string{"income", "loan_amount", "credit_score", "tenure"}, c.Training.Features)
	assert.Equal(t, 200, c.Training.Trees)
	assert.Equal(t, int64(42), c.Training.Seed)
	assert.InDelta(t, 0.2, c.Training.TestSize, 1e-12)
	assert.Equal(t, 100, c.Training.Fraud.Trees)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.ClickHouse.Enabled)
	assert.False(t, c.Cache.Enabled)
	require.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
server:
  port: 8080
models:
  dir: /srv/models
training:
  features: []
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "/srv/models/loan_model.json", c.Models.ApprovalPath())
	assert.Empty(t, c.Training.Features)
	// untouched sections keep their defaults
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "Loan_Approved", c.Training.Target)
}

func TestLoadWithEnv(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_DIR", "/tmp/m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("CLICKHOUSE_HOST", "ch")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "/tmp/m", c.Models.Dir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "cache:6379", c.Cache.Redis.Addr)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("PORT", "not-a-port")

	_, err := LoadWithEnv(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Models.Backend = "grpc" }},
		{"http backend without url", func(c *Config) {
			c.Models.Backend = "http"
			c.ClassifierService.URL = ""
		}},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
		{"unknown cache backend", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Backend = "memcached"
		}},
		{"test size out of range", func(c *Config) { c.Training.TestSize = 1 }},
		{"contamination out of range", func(c *Config) { c.Training.Fraud.Contamination = 0.7 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
