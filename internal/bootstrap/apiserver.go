// Package bootstrap wires the full API server dependency graph from
// configuration.  It is shared by the apiserver binary and the CLI's serve
// command so both run the identical stack.
package bootstrap

import (
	"context"
	"os"

	"github.com/propsignal/propsignal/internal/application/cma"
	appflip "github.com/propsignal/propsignal/internal/application/flip"
	"github.com/propsignal/propsignal/internal/config"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres/repositories"
	"github.com/propsignal/propsignal/internal/infrastructure/database/redis"
	"github.com/propsignal/propsignal/internal/infrastructure/messaging/kafka"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/prometheus"
	httpiface "github.com/propsignal/propsignal/internal/interfaces/http"
	"github.com/propsignal/propsignal/internal/interfaces/http/handlers"
)

// RunAPIServer builds the whole HTTP stack and serves until ctx is canceled
// or the listener fails.  Shutdown drains in-flight requests.
func RunAPIServer(ctx context.Context, configPath, version string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("apiserver")

	metrics := prometheus.NewMetrics()

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	cache := NewCache(redisClient, cfg.Redis, logger)

	producer := kafka.NewProducer(cfg.Kafka, "apiserver", logger)
	defer func() { _ = producer.Close() }()

	engine, err := valuation.NewEngine(cfg.ValuationPolicy())
	if err != nil {
		return err
	}
	analyzer, err := domainflip.NewAnalyzer(cfg.FlipPolicy())
	if err != nil {
		return err
	}

	propertyRepo := repositories.NewPropertyRepository(conn.DB(), logger)
	marketRepo := repositories.NewMarketRepository(conn.DB(), logger)
	reportRepo := repositories.NewReportRepository(conn.DB(), logger)
	flipRepo := repositories.NewFlipRepository(conn.DB(), logger)

	// Snapshots change at most daily; serve market reads through Redis.
	cachedMarkets := redis.NewMarketCache(marketRepo, cache, logger, cfg.Redis.DefaultTTL)

	cmaService := cma.NewService(engine, propertyRepo, reportRepo, cache, producer, logger, cma.ServiceConfig{
		CompWindowMonths: cfg.Valuation.CompWindowMonths,
		CacheTTL:         cfg.Redis.DefaultTTL,
	})
	flipService := appflip.NewService(analyzer, cmaService, cachedMarkets, flipRepo, producer, logger)

	health := handlers.NewHealthHandler(version, map[string]handlers.Pinger{
		"postgres": handlers.PingerFunc(conn.HealthCheck),
		"redis":    handlers.PingerFunc(redisClient.Ping),
	})

	router := httpiface.NewRouter(httpiface.RouterConfig{
		ReportHandler:   handlers.NewReportHandler(cmaService),
		FlipHandler:     handlers.NewFlipHandler(flipService),
		PropertyHandler: handlers.NewPropertyHandler(propertyRepo),
		MarketHandler:   handlers.NewMarketHandler(cachedMarkets),
		HealthHandler:   health,
		Server:          cfg.Server,
		Logger:          logger,
		Metrics:         metrics,
	})
	server := httpiface.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return server.Shutdown(context.Background())
}

// NewCache builds the shared JSON cache with the config's prefix and TTL
// overrides applied.
func NewCache(client *redis.Client, cfg config.RedisConfig, logger logging.Logger) *redis.Cache {
	opts := []redis.CacheOption{}
	if cfg.KeyPrefix != "" {
		opts = append(opts, redis.WithPrefix(cfg.KeyPrefix))
	}
	if cfg.DefaultTTL > 0 {
		opts = append(opts, redis.WithDefaultTTL(cfg.DefaultTTL))
	}
	return redis.NewCache(client, logger, opts...)
}

// LoadConfig prefers the config file but falls back to environment-only
// configuration when the file is absent.
func LoadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := "json"
	if cfg.Format == "text" {
		format = "console"
	}
	outputs := []string{"stdout"}
	if cfg.Output != "" {
		outputs = []string{cfg.Output}
	}
	return logging.NewLogger(logging.Config{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: outputs,
	})
}
