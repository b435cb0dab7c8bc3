// Package cli implements the propsignal command-line interface.  Commands
// receive their dependencies through a lazily-invoked factory so that
// metadata commands (version, help) never touch the database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/propsignal/propsignal/internal/application/cma"
	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ReportService is the slice of the CMA service the CLI consumes.
type ReportService interface {
	RunReport(ctx context.Context, req cma.RunReportRequest) (*cma.Report, error)
	GetReport(ctx context.Context, id common.ID) (*cma.Report, error)
	ListReports(ctx context.Context, filter cma.ListFilter) ([]*cma.Report, int64, error)
	RerunReport(ctx context.Context, reportID common.ID, overrides *property.Overrides) (*cma.Report, error)
	ValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*cma.ValueHistoryEntry, error)
}

// FlipService is the slice of the flip service the CLI consumes.
type FlipService interface {
	RunAnalysis(ctx context.Context, req appflip.RunAnalysisRequest) (*appflip.Analysis, error)
	GetAnalysis(ctx context.Context, id common.ID) (*appflip.Analysis, error)
	ListAnalyses(ctx context.Context, filter appflip.ListFilter) ([]*appflip.Analysis, int64, error)
	UpdateInputs(ctx context.Context, id common.ID, inputs domainflip.FinancialInputs) (*appflip.Analysis, error)
}

// Migrator is the schema migration contract.
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
}

// Dependencies aggregates everything the commands need.
type Dependencies struct {
	Reports ReportService
	Flips   FlipService
	Migrate Migrator
	Close   func() error
}

// DependencyFactory builds the dependency graph on first use.  The config
// path comes from the --config persistent flag.
type DependencyFactory func(configPath string) (*Dependencies, error)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath   string
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand builds the root command and mounts the subcommands.
func NewRootCommand(factory DependencyFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "propsignal",
		Short:         "PropSignal CLI — comparable valuation and deal scoring for residential real estate",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./configs/config.yaml)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")

	cmd.AddCommand(
		newAnalyzeCmd(factory, opts),
		newReportCmd(factory, opts),
		newFlipCmd(factory, opts),
		newServeCmd(opts),
		newMigrateCmd(factory, opts),
	)
	return cmd
}

// withDeps runs fn against freshly built dependencies and closes them after.
func withDeps(factory DependencyFactory, opts *RootOptions, fn func(ctx context.Context, deps *Dependencies) error) error {
	deps, err := factory(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if deps.Close != nil {
		defer func() { _ = deps.Close() }()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	return fn(ctx, deps)
}

// printResult renders data in the selected output format.
func printResult(cmd *cobra.Command, opts *RootOptions, data interface{}) error {
	if strings.EqualFold(opts.OutputFormat, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}
