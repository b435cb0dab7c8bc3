// The propsignal binary is the operator CLI: run valuations and flip
// analyses, inspect stored reports, and manage the schema.
package main

import (
	"fmt"
	"os"

	"github.com/propsignal/propsignal/internal/application/cma"
	appflip "github.com/propsignal/propsignal/internal/application/flip"
	"github.com/propsignal/propsignal/internal/config"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres"
	"github.com/propsignal/propsignal/internal/infrastructure/database/postgres/repositories"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/internal/interfaces/cli"
)

func main() {
	root := cli.NewRootCommand(buildDependencies)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// buildDependencies wires the full service graph against the database.  The
// CLI runs without Redis or Kafka; caching and event publishing are
// API-server concerns.
func buildDependencies(configPath string) (*cli.Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	migrator, err := postgres.NewMigrator(conn.DB(), cfg.Database.MigrationPath, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	engine, err := valuation.NewEngine(cfg.ValuationPolicy())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	analyzer, err := domainflip.NewAnalyzer(cfg.FlipPolicy())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	propertyRepo := repositories.NewPropertyRepository(conn.DB(), logger)
	marketRepo := repositories.NewMarketRepository(conn.DB(), logger)
	reportRepo := repositories.NewReportRepository(conn.DB(), logger)
	flipRepo := repositories.NewFlipRepository(conn.DB(), logger)

	cmaService := cma.NewService(engine, propertyRepo, reportRepo, nil, nil, logger, cma.ServiceConfig{
		CompWindowMonths: cfg.Valuation.CompWindowMonths,
	})
	flipService := appflip.NewService(analyzer, cmaService, marketRepo, flipRepo, nil, logger)

	return &cli.Dependencies{
		Reports: cmaService,
		Flips:   flipService,
		Migrate: migrator,
		Close:   conn.Close,
	}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat("configs/config.yaml"); err == nil {
		return config.Load("configs/config.yaml")
	}
	return config.LoadFromEnv()
}
