package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// newReportCmd groups the stored-report subcommands.
func newReportCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect and rerun stored CMA reports",
	}
	cmd.AddCommand(
		newReportGetCmd(factory, opts),
		newReportListCmd(factory, opts),
		newReportRerunCmd(factory, opts),
		newReportHistoryCmd(factory, opts),
	)
	return cmd
}

func newReportGetCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <report-id>",
		Short: "Show a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				report, err := deps.Reports.GetReport(ctx, common.ID(args[0]))
				if err != nil {
					return err
				}
				return printResult(cmd, opts, report)
			})
		},
	}
}

func newReportListCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var (
		city     string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := cma.ListFilter{
				City:       city,
				Pagination: common.Pagination{Page: page, PageSize: pageSize},
			}
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				reports, total, err := deps.Reports.ListReports(ctx, filter)
				if err != nil {
					return err
				}
				if strings.EqualFold(opts.OutputFormat, "json") {
					return printResult(cmd, opts, reports)
				}
				for _, r := range reports {
					line := fmt.Sprintf("%s  %s", r.ID, r.Subject.City)
					if r.Estimate != nil && r.Estimate.Mid != nil {
						line += fmt.Sprintf("  mid=%s  comps=%d", r.Estimate.Mid.StringFixed(0), len(r.Comparables))
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "filter by subject city")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func newReportRerunCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rerun <report-id>",
		Short: "Rerun a report against current market data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				report, err := deps.Reports.RerunReport(ctx, common.ID(args[0]), nil)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, report)
			})
		},
	}
}

func newReportHistoryCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <report-id>",
		Short: "Show a report's valuation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				entries, err := deps.Reports.ValueHistory(ctx, common.ID(args[0]), limit)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, entries)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	return cmd
}
