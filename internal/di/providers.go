package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"SmartLoan/internal/domain/repository"
	domsvc "SmartLoan/internal/domain/service"
	"SmartLoan/internal/handler/api"
	internalrepo "SmartLoan/internal/repository"
	icache "SmartLoan/internal/service/cache"
	svcmetrics "SmartLoan/internal/service/metrics"
	"SmartLoan/internal/services/classifier"
	"SmartLoan/internal/usecase"
	"SmartLoan/pkg/artifact"
	pkgch "SmartLoan/pkg/clickhouse"
	"SmartLoan/pkg/config"
	xhttp "SmartLoan/pkg/http"
	pkgkafka "SmartLoan/pkg/kafka"
	applogger "SmartLoan/pkg/logger"
	"SmartLoan/pkg/metrics"
	"SmartLoan/pkg/server"
)

const (
	schemaTimeout    = 10 * time.Second
	cachePingTimeout = 3 * time.Second
	memoryCacheSize  = 10000
)

// Models is the loaded classifier pair. Namespace identifies the exact
// artifacts so cached decisions never outlive a retrain.
type Models struct {
	Fraud     domsvc.FraudClassifier
	Approval  domsvc.ApprovalClassifier
	Backend   string
	Namespace string
}

// Cacheable reports whether Namespace changes whenever the models do. The
// http backend only knows the service URL, so its decisions are not cached.
func (m *Models) Cacheable() bool { return m.Backend == "local" }

// ProvideLogger builds the process logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "smartloan"), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideModels loads both classifiers. Any local load failure wraps
// artifact.ErrModelLoad and aborts startup.
func ProvideModels(cfg *config.Config, l *applogger.Logger) (*Models, error) {
	if cfg.Models.Backend == "http" {
		fraud := classifier.NewHTTPFraudClassifier(cfg.ClassifierService)
		approval := classifier.NewHTTPApprovalClassifier(cfg.ClassifierService)
		l.Info("using remote classifier service", applogger.String("url", cfg.ClassifierService.URL))
		return &Models{
			Fraud:     fraud,
			Approval:  approval,
			Backend:   "http",
			Namespace: approval.Fingerprint(),
		}, nil
	}

	fraud, err := classifier.LoadFraud(cfg.Models.FraudPath())
	if err != nil {
		svcmetrics.ObserveLoad(artifact.KindFraud, "", err)
		return nil, err
	}
	svcmetrics.ObserveLoad(artifact.KindFraud, fraud.Fingerprint(), nil)

	approval, err := classifier.LoadApproval(cfg.Models.ApprovalPath())
	if err != nil {
		svcmetrics.ObserveLoad(artifact.KindApproval, "", err)
		return nil, err
	}
	svcmetrics.ObserveLoad(artifact.KindApproval, approval.Fingerprint(), nil)

	encoders, err := classifier.CheckEncoders(cfg.Models.EncodersPath())
	if err != nil {
		return nil, err
	}

	l.Info("models loaded",
		applogger.String("fraud", fraud.Fingerprint()),
		applogger.String("approval", approval.Fingerprint()),
		applogger.Strings("encoded_columns", encoders.Columns()),
	)
	return &Models{
		Fraud:     fraud,
		Approval:  approval,
		Backend:   "local",
		Namespace: fraud.Fingerprint() + ":" + approval.Fingerprint(),
	}, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogShipping forwards aggregated error logs to the log topic when
// one is configured. It reports whether shipping was enabled.
func ProvideLogShipping(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer) server.LogShipping {
	if producer == nil || cfg.Kafka.LogTopic == "" {
		return false
	}
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogTopic,
		Publisher:      producer,
	})
	return true
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when the
// audit store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(context.Background(),
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideDecisionSink fans decisions out to every enabled backend. With
// nothing enabled the sink is empty and Record is a no-op.
func ProvideDecisionSink(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	m repository.Metrics,
	l *applogger.Logger,
) (*internalrepo.FanoutSink, error) {
	var sinks []internalrepo.NamedSink

	if ch != nil {
		store := internalrepo.NewCHDecisionStore(ch, l)
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		sinks = append(sinks, internalrepo.NamedSink{Name: "clickhouse", Sink: store})
		l.Info("decision audit store ready", applogger.String("database", ch.Database()))
	}

	if producer != nil {
		pub := internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.Topic)
		sinks = append(sinks, internalrepo.NamedSink{Name: "kafka", Sink: pub})
		l.Info("decision events enabled",
			applogger.Strings("brokers", cfg.Kafka.Brokers),
			applogger.String("topic", cfg.Kafka.Topic),
		)
	}

	return internalrepo.NewFanoutSink(m, l, sinks...), nil
}

// ProvideCacheStore returns the byte store behind the decision cache, or nil
// when caching is off.
func ProvideCacheStore(cfg *config.Config) (icache.BytesCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if cfg.Cache.Backend != "redis" {
		return icache.NewTTLCache(memoryCacheSize), nil
	}

	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cachePingTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return rc, nil
}

// ProvideDecisionEngine builds the shared decision engine.
func ProvideDecisionEngine(
	cfg *config.Config,
	m *Models,
	sink *internalrepo.FanoutSink,
	store icache.BytesCache,
	rec repository.Metrics,
	l *applogger.Logger,
) *usecase.LoanDecisionEngine {
	opts := []usecase.EngineOption{
		usecase.WithMetrics(rec),
		usecase.WithLogger(l),
		usecase.WithBackend(m.Backend),
	}
	if sink.Len() > 0 {
		opts = append(opts, usecase.WithSink(sink))
	}
	switch {
	case store == nil:
	case !m.Cacheable():
		l.Warn("decision cache disabled: remote models can change without notice",
			applogger.String("backend", m.Backend))
	default:
		opts = append(opts, usecase.WithCache(icache.NewDecisionCache(store, cfg.Cache.TTL, m.Namespace, l)))
	}
	return usecase.NewLoanDecisionEngine(m.Fraud, m.Approval, opts...)
}

// ProvideLoanHandler exposes the engine over HTTP.
func ProvideLoanHandler(l *applogger.Logger, engine *usecase.LoanDecisionEngine) xhttp.Handler {
	return api.NewLoanEchoHandler(l, engine)
}

// ProvideHTTPServer applies the server section to the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, xhttp.WithCORS(cfg.Server.CORSOrigins...))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideApp assembles the application and its shutdown order.
func ProvideApp(
	cfg *config.Config,
	srv *xhttp.Server,
	sink *internalrepo.FanoutSink,
	store icache.BytesCache,
	shipping server.LogShipping,
	l *applogger.Logger,
) *server.App {
	var closers []server.NamedCloser
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, server.NamedCloser{Name: "cache", Closer: c})
	}
	return server.New(cfg, srv, sink, shipping, l, closers...)
}
