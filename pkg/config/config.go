package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"5000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Models            ModelsConfig            `yaml:"models"`
	ClassifierService ClassifierServiceConfig `yaml:"classifier_service"`
	Cache             CacheConfig             `yaml:"cache"`
	Kafka             struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"loan.decisions"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"5ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"2s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"2s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"smartloan"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"2s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Training TrainingConfig `yaml:"training"`
}

type ModelsConfig struct {
	Dir      string `yaml:"dir" default:"models"`
	Approval string `yaml:"approval" default:"loan_model.json"`
	Fraud    string `yaml:"fraud" default:"fraud_model.json"`
	Encoders string `yaml:"encoders" default:"encoders.json"`
	// local loads the JSON artifacts, http delegates to ClassifierService.
	Backend string `yaml:"backend" default:"local"`
}

// ApprovalPath, FraudPath and EncodersPath resolve the artifact files
// inside Dir.
func (m ModelsConfig) ApprovalPath() string { return joinPath(m.Dir, m.Approval) }
func (m ModelsConfig) FraudPath() string    { return joinPath(m.Dir, m.Fraud) }
func (m ModelsConfig) EncodersPath() string { return joinPath(m.Dir, m.Encoders) }

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}

type ClassifierServiceConfig struct {
	URL     string        `yaml:"url" default:"http://localhost:8000"`
	Timeout time.Duration `yaml:"timeout" default:"2s"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend" default:"memory"` // memory or redis
	TTL     time.Duration `yaml:"ttl" default:"5m"`
	Redis   struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// TrainingConfig drives cmd/trainer. It carries mapstructure tags as well so
// the CLI can decode it through viper.
type TrainingConfig struct {
	Dataset     string   `yaml:"dataset" mapstructure:"dataset" default:"loan_data.xlsx"`
	IDColumn    string   `yaml:"id_column" mapstructure:"id_column" default:"ID"`
	Target      string   `yaml:"target" mapstructure:"target" default:"Loan_Approved"`
	Features    []string `yaml:"features" mapstructure:"features" default:"[\"income\",\"loan_amount\",\"credit_score\",\"tenure\"]"`
	TestSize    float64  `yaml:"test_size" mapstructure:"test_size" default:"0.2"`
	Seed        int64    `yaml:"seed" mapstructure:"seed" default:"42"`
	Trees       int      `yaml:"trees" mapstructure:"trees" default:"200"`
	MaxDepth    int      `yaml:"max_depth" mapstructure:"max_depth"`
	OutputDir   string   `yaml:"output_dir" mapstructure:"output_dir" default:"models"`
	MinAccuracy float64  `yaml:"min_accuracy" mapstructure:"min_accuracy"`
	Fraud       struct {
		Trees         int     `yaml:"trees" mapstructure:"trees" default:"100"`
		MaxSamples    int     `yaml:"max_samples" mapstructure:"max_samples" default:"256"`
		Contamination float64 `yaml:"contamination" mapstructure:"contamination"`
		Seed          int64   `yaml:"seed" mapstructure:"seed" default:"42"`
	} `yaml:"fraud" mapstructure:"fraud"`
}

// Default returns a Config populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Models.Dir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}
	switch c.Models.Backend {
	case "local":
	case "http":
		if c.ClassifierService.URL == "" {
			return fmt.Errorf("classifier_service.url is required for the http backend")
		}
	default:
		return fmt.Errorf("models.backend must be 'local' or 'http', got '%s'", c.Models.Backend)
	}
	if c.Cache.Enabled && c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return c.Training.Validate()
}

// Validate checks the training section in isolation; the trainer CLI calls
// it after applying flag overrides.
func (t *TrainingConfig) Validate() error {
	if t.Target == "" {
		return fmt.Errorf("training.target is required")
	}
	if t.TestSize <= 0 || t.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0, 1), got %v", t.TestSize)
	}
	if t.Trees <= 0 {
		return fmt.Errorf("training.trees must be positive")
	}
	if t.MinAccuracy < 0 || t.MinAccuracy > 1 {
		return fmt.Errorf("training.min_accuracy must be in [0, 1]")
	}
	if t.Fraud.Trees <= 0 {
		return fmt.Errorf("training.fraud.trees must be positive")
	}
	if t.Fraud.Contamination < 0 || t.Fraud.Contamination > 0.5 {
		return fmt.Errorf("training.fraud.contamination must be in [0, 0.5]")
	}
	return nil
}
