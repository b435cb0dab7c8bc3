// The worker binary consumes report and analysis events: it archives
// finished reports to object storage and re-runs valuations on request, both
// off the request path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/propsignal/propsignal/internal/application/cma"
	appflip "github.com/propsignal/propsignal/internal/application/flip"
	"github.com/propsignal/propsignal/internal/bootstrap"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres/repositories"
	"github.com/propsignal/propsignal/internal/infrastructure/database/redis"
	"github.com/propsignal/propsignal/internal/infrastructure/messaging/kafka"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/internal/infrastructure/storage/minio"
	"github.com/propsignal/propsignal/pkg/types/common"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	storageClient, err := minio.NewClient(cfg.MinIO, logger)
	if err != nil {
		return err
	}
	archive := minio.NewReportArchive(storageClient, logger)
	reportRepo := repositories.NewReportRepository(conn.DB(), logger)
	propertyRepo := repositories.NewPropertyRepository(conn.DB(), logger)

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()
	cache := bootstrap.NewCache(redisClient, cfg.Redis, logger)

	producer := kafka.NewProducer(cfg.Kafka, "worker", logger)
	defer func() { _ = producer.Close() }()

	// Revaluation runs write back through the same service the API uses, so
	// history entries, report.updated events, and cache invalidation happen
	// exactly as they would for an interactive rerun.  The cache must point
	// at the same Redis the API reads, or revalued reports stay stale there
	// until the TTL expires.
	engine, err := valuation.NewEngine(cfg.ValuationPolicy())
	if err != nil {
		return err
	}
	cmaService := cma.NewService(engine, propertyRepo, reportRepo, cache, producer, logger, cma.ServiceConfig{
		CompWindowMonths: cfg.Valuation.CompWindowMonths,
		CacheTTL:         cfg.Redis.DefaultTTL,
	})

	topics := []string{
		kafka.TopicReportCompleted,
		kafka.TopicAnalysisCompleted,
		kafka.TopicAnalysisRequested,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Consumers share one group; the broker spreads partitions across them.
	concurrency := cfg.Kafka.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger.Info("worker starting",
		logging.Any("topics", topics),
		logging.Int("concurrency", concurrency),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := kafka.NewConsumer(cfg.Kafka, topics, producer, logger)
		consumer.RegisterHandler(cma.EventReportCompleted, archiveReport(reportRepo, archive, logger))
		consumer.RegisterHandler(appflip.EventAnalysisCompleted, logAnalysis(logger))
		consumer.RegisterHandler(kafka.TopicAnalysisRequested, revalueReport(cmaService, logger))
		defer func() { _ = consumer.Close() }()

		g.Go(func() error { return consumer.Run(ctx) })
	}
	return g.Wait()
}

// revalueReport re-runs the valuation behind an existing report against the
// current candidate pool, keeping the stored overrides.
func revalueReport(svc *cma.Service, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, envelope *kafka.EventEnvelope) error {
		var payload kafka.AnalysisRequestedPayload
		if err := envelope.DecodePayload(&payload); err != nil {
			return err
		}
		report, err := svc.RerunReport(ctx, common.ID(payload.ReportID), nil)
		if err != nil {
			return err
		}
		logger.Info("report revalued",
			logging.String("report_id", string(report.ID)),
			logging.String("reason", payload.Reason),
		)
		return nil
	}
}

// archiveReport loads the finished report and writes it to object storage.
func archiveReport(repo cma.Repository, archive cma.Archiver, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, envelope *kafka.EventEnvelope) error {
		var payload kafka.ReportCompletedPayload
		if err := envelope.DecodePayload(&payload); err != nil {
			return err
		}
		report, err := repo.GetByID(ctx, common.ID(payload.ReportID))
		if err != nil {
			return err
		}
		key, err := archive.Archive(ctx, report)
		if err != nil {
			return err
		}
		logger.Info("report archived",
			logging.String("report_id", payload.ReportID),
			logging.String("object_key", key),
		)
		return nil
	}
}

// logAnalysis records completed analyses; downstream consumers (alerting,
// lead routing) hang off this event.
func logAnalysis(logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, envelope *kafka.EventEnvelope) error {
		var payload kafka.AnalysisCompletedPayload
		if err := envelope.DecodePayload(&payload); err != nil {
			return err
		}
		logger.Info("flip analysis completed",
			logging.String("analysis_id", payload.AnalysisID),
			logging.String("property_id", payload.PropertyID),
			logging.Float64("total_score", payload.TotalScore),
			logging.Bool("disqualified", payload.Disqualified),
		)
		return nil
	}
}
