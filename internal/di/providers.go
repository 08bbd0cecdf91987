package di

import (
	"context"
	"fmt"
	"time"

	domrepo "ChainPull/internal/domain/repository"
	domsvc "ChainPull/internal/domain/service"
	"ChainPull/internal/handler/api"
	mid "ChainPull/internal/middleware"
	internalrepo "ChainPull/internal/repository"
	"ChainPull/internal/service/binance"
	icache "ChainPull/internal/service/cache"
	"ChainPull/internal/service/forecast"
	"ChainPull/internal/usecase"
	pkgch "ChainPull/pkg/clickhouse"
	"ChainPull/pkg/config"
	xhttp "ChainPull/pkg/http"
	pkgkafka "ChainPull/pkg/kafka"
	applogger "ChainPull/pkg/logger"
	"ChainPull/pkg/metrics"
	"ChainPull/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePublisher creates the Kafka publisher when the sink is kafka,
// nil otherwise.
func ProvidePublisher(cfg *config.Config) (domrepo.Publisher, error) {
	if cfg.Sink.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideStorage creates ClickHouse label storage when the sink is
// clickhouse, nil otherwise. The schema is ensured on startup.
func ProvideStorage(cfg *config.Config) (domrepo.Storage, error) {
	if cfg.Sink.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".labeled_candles (" +
			"timeframe String, open_time DateTime64(3), " +
			"open Float64, high Float64, low Float64, close Float64, " +
			"label String) ENGINE=MergeTree ORDER BY (timeframe, open_time)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return internalrepo.NewClickHouseStorage(client.DB(), db+".labeled_candles"), nil
}

// ProvideLabelProcessor creates the sink backend router.
func ProvideLabelProcessor(
	pub domrepo.Publisher,
	store domrepo.Storage,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.LabelProcessor {
	return usecase.NewLabelProcessor(pub, store, m, cfg.Sink.Type)
}

// ProvideSinkBuffer wraps the processor in an async buffer so sink
// slowness never blocks the candle pipelines.
func ProvideSinkBuffer(proc *usecase.LabelProcessor, m domrepo.Metrics) *mid.SinkBuffer {
	return mid.NewSinkBuffer(proc, m, mid.WithBufferSize(256))
}

// ProvideHistory creates the REST backfill client.
func ProvideHistory(cfg *config.Config) domrepo.History {
	return binance.NewRestClient(
		cfg.Binance.RestURL,
		cfg.Binance.Symbol,
		cfg.Binance.Backfill.PageLimit,
		0,
	)
}

// ProvideStreamFactory creates a WebSocket stream builder, one stream
// per timeframe interval.
func ProvideStreamFactory(cfg *config.Config, log *applogger.Logger) domrepo.StreamFactory {
	return func(interval string) domrepo.KlineStream {
		return binance.NewStream(
			cfg.Binance.WebSocketURL,
			cfg.Binance.Symbol,
			interval,
			cfg.Binance.ReconnectDelay,
			cfg.Binance.PingInterval,
			log,
		)
	}
}

// ProvideForecaster creates the forecast service client.
func ProvideForecaster(cfg *config.Config) domsvc.Forecaster {
	return forecast.New(forecast.Config{
		BaseURL: cfg.Forecast.BaseURL,
		APIKey:  cfg.Forecast.APIKey,
		Mode:    cfg.Forecast.Mode,
		Timeout: cfg.Forecast.Timeout,
	})
}

// ProvideOrchestrator creates the multi-timeframe supervisor.
func ProvideOrchestrator(
	cfg *config.Config,
	streams domrepo.StreamFactory,
	history domrepo.History,
	forecaster domsvc.Forecaster,
	sink *mid.SinkBuffer,
	m domrepo.Metrics,
	log *applogger.Logger,
) *usecase.Orchestrator {
	tfs := make([]domrepo.Timeframe, len(cfg.Binance.Timeframes))
	for i, t := range cfg.Binance.Timeframes {
		tfs[i] = domrepo.Timeframe(t)
	}
	return usecase.NewOrchestrator(
		tfs,
		cfg.Window.Capacity,
		cfg.Binance.Backfill.Target,
		streams,
		history,
		forecaster,
		sink,
		m,
		log,
	)
}

// ProvideCache selects Redis or the in-process TTL cache for API
// snapshot memoization.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	cache icache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewCandlesHandler(log, orch)
	h.SetCache(cache, cfg.Cache.TTL)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	orch *usecase.Orchestrator,
	sink *mid.SinkBuffer,
	proc *usecase.LabelProcessor,
	handler xhttp.Handler,
) *server.App {
	app := server.New(cfg, log, orch, sink, proc)
	app.SetHTTPHandler(handler)
	return app
}
