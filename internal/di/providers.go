package di

import (
	"context"
	"fmt"
	"time"

	"CryptoEdge/internal/domain/repository"
	"CryptoEdge/internal/handler/api"
	"CryptoEdge/internal/handler/ws"
	internalrepo "CryptoEdge/internal/repository"
	"CryptoEdge/internal/service/kraken"
	"CryptoEdge/internal/service/ratelimit"
	"CryptoEdge/internal/services/learning"
	"CryptoEdge/internal/services/liquidity"
	"CryptoEdge/internal/services/reasoning"
	"CryptoEdge/internal/usecase"
	"CryptoEdge/pkg/cache"
	pkgch "CryptoEdge/pkg/clickhouse"
	"CryptoEdge/pkg/config"
	xhttp "CryptoEdge/pkg/http"
	pkgkafka "CryptoEdge/pkg/kafka"
	"CryptoEdge/pkg/logger"
	"CryptoEdge/pkg/metrics"
	"CryptoEdge/pkg/postgres"
	"CryptoEdge/pkg/server"
)

const initTimeout = 15 * time.Second

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideErrorCollector aggregates warn/error logs for the diagnostics
// endpoint and, with Kafka enabled, ships them to the errors topic.
func ProvideErrorCollector(cfg *config.Config, l *logger.Logger, producer *pkgkafka.Producer) (*logger.Collector, func()) {
	cc := logger.CollectorConfig{MaxEntries: 200}
	if producer != nil {
		cc.Publisher = internalrepo.NewKafkaPublisher(producer, nil)
		cc.Topic = cfg.Kafka.Topics.Errors
		cc.FlushInterval = 30 * time.Second
	}
	c := logger.NewCollector(cc)
	l.AttachCollector(c)
	return c, c.Close
}

// ProvideCache returns an in-process cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.LocalSize))
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.Pool.Size, cfg.Redis.Pool.MinIdle, cfg.Redis.Pool.Timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", logger.String("host", cfg.Redis.Host), logger.Int("port", cfg.Redis.Port))
	lc := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Redis.LocalSize),
		cache.WithLayeredMemoryTTL(cfg.Redis.LocalTTL),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideSignalStore opens the configured storage driver and ensures its
// schema.
func ProvideSignalStore(cfg *config.Config, l *logger.Logger) (repository.SignalStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var (
		store   repository.SignalStore
		release = func() {}
	)
	switch cfg.Storage.Driver {
	case "memory":
		store = internalrepo.NewMemoryStore()
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN,
			postgres.WithConns(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
			postgres.WithMaxConnLifetime(cfg.Postgres.MaxConnLifetime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store = internalrepo.NewPGSignalStore(pool, l)
	default:
		ch, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store = internalrepo.NewCHSignalStore(ch, l)
		release = func() { _ = ch.Close() }
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		release()
		return nil, nil, fmt.Errorf("%s schema: %w", cfg.Storage.Driver, err)
	}
	l.Info("storage ready", logger.String("driver", cfg.Storage.Driver))
	return store, func() {
		_ = store.Close()
		release()
	}, nil
}

// ProvideTradeFeed reads closed trades from the same backend as signals.
func ProvideTradeFeed(store repository.SignalStore) (repository.TradeFeed, error) {
	feed, ok := store.(repository.TradeFeed)
	if !ok {
		return nil, fmt.Errorf("storage %T has no closed-trade feed", store)
	}
	return feed, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMarketData creates the Kraken public REST client.
func ProvideMarketData(cfg *config.Config, l *logger.Logger) repository.MarketData {
	return kraken.New(l,
		kraken.WithBaseURL(cfg.Exchange.BaseURL),
		kraken.WithTimeout(cfg.Exchange.Timeout),
		kraken.WithCacheTTL(cfg.Exchange.CacheTTL),
	)
}

func ProvideLiquidity(cfg *config.Config, l *logger.Logger, c cache.Service) *liquidity.Service {
	return liquidity.NewService(l,
		liquidity.WithURL(cfg.Liquidity.URL),
		liquidity.WithTimeout(cfg.Liquidity.Timeout),
		liquidity.WithTTL(cfg.Liquidity.CacheTTL),
		liquidity.WithCache(c),
	)
}

func ProvideLearningMemory(cfg *config.Config, store repository.SignalStore, feed repository.TradeFeed, c cache.Service, l *logger.Logger) *learning.Memory {
	return learning.NewMemory(store, feed, l,
		learning.WithPath(cfg.Learning.Path),
		learning.WithCache(c),
	)
}

func ProvideReasoner(cfg *config.Config, l *logger.Logger, mem *learning.Memory) *reasoning.Client {
	return reasoning.NewClient(l,
		reasoning.WithAPIURL(cfg.Reasoning.APIURL),
		reasoning.WithAPIKey(cfg.Reasoning.APIKey),
		reasoning.WithModel(cfg.Reasoning.Model),
		reasoning.WithTimeout(cfg.Reasoning.Timeout),
		reasoning.WithTemperature(cfg.Reasoning.Temperature),
		reasoning.WithMaxTokens(cfg.Reasoning.MaxTokens),
		reasoning.WithMaxLearningChars(cfg.Reasoning.MaxLearningChars),
		reasoning.WithDisabled(cfg.Reasoning.Disabled),
		reasoning.WithLearning(mem),
	)
}

func ProvideHub(l *logger.Logger) (*ws.Hub, func()) {
	h := ws.NewHub(l)
	return h, h.Close
}

// ProvidePublisher fans cycle broadcasts out to websocket subscribers and,
// when enabled, the Kafka signals topic.
func ProvidePublisher(cfg *config.Config, hub *ws.Hub, producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return internalrepo.NewFanoutPublisher(hub)
	}
	kp := internalrepo.NewKafkaPublisher(producer, map[string]string{usecase.TopicSignals: cfg.Kafka.Topics.Signals})
	return internalrepo.NewFanoutPublisher(hub, kp)
}

func ProvideSignalGenerator(
	cfg *config.Config,
	market repository.MarketData,
	liq *liquidity.Service,
	reasoner *reasoning.Client,
	store repository.SignalStore,
	m repository.Metrics,
	c cache.Service,
	l *logger.Logger,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(market, liq, reasoner, store, m, l,
		usecase.GeneratorConfig{
			Timeframe:      repository.NormalizeTimeframe(cfg.Signals.CandleInterval),
			OrderBookDepth: cfg.Signals.OrderBookDepth,
			LatestTTL:      2 * cfg.Signals.Interval,
		},
		usecase.WithLatestCache(c),
	)
}

func ProvideScheduler(
	cfg *config.Config,
	gen *usecase.SignalGenerator,
	reasoner *reasoning.Client,
	pub repository.Publisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Scheduler {
	return usecase.NewScheduler(gen, reasoner, pub, m, l, cfg.Signals.Pairs, cfg.Signals.Interval, cfg.Signals.CycleTimeout)
}

func ProvideSignalQuery(cfg *config.Config, store repository.SignalStore, mem *learning.Memory, c cache.Service, l *logger.Logger) *usecase.SignalQuery {
	return usecase.NewSignalQuery(store, mem, c, cfg.Signals.Pairs, l)
}

// ProvideKafkaConsumer creates the closed-trade consumer, or nil when Kafka
// is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, mem *learning.Memory) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewTradeClosedHandler(cfg.Kafka.Topics.ClosedTrades, mem, l))
	return consumer, nil
}

func ProvideSignalsHandler(
	cfg *config.Config,
	l *logger.Logger,
	query *usecase.SignalQuery,
	sched *usecase.Scheduler,
	liq *liquidity.Service,
	reasoner *reasoning.Client,
	collector *logger.Collector,
) *api.SignalsEchoHandler {
	limiter := ratelimit.New(cfg.Server.RefreshRate, cfg.Server.RefreshRate)
	return api.NewSignalsEchoHandler(l, query, sched, liq, reasoner, collector, limiter)
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, signals *api.SignalsEchoHandler, hub *ws.Hub) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{signals, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	sched *usecase.Scheduler,
	mem *learning.Memory,
	consumer *pkgkafka.Consumer,
	srv *xhttp.Server,
) *server.App {
	return server.New(cfg, l, sched, mem, consumer, srv)
}
