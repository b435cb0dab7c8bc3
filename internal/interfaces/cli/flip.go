package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// newFlipCmd groups the flip deal-analysis subcommands.
func newFlipCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flip",
		Short: "Price and score flip deals",
	}
	cmd.AddCommand(
		newFlipRunCmd(factory, opts),
		newFlipGetCmd(factory, opts),
		newFlipListCmd(factory, opts),
		newFlipRepriceCmd(factory, opts),
	)
	return cmd
}

// flipInputFlags collects the deal-term flags shared by run and reprice.
type flipInputFlags struct {
	purchase string
	rehab    string
	months   int
}

func (f *flipInputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.purchase, "purchase", "", "purchase price (required)")
	cmd.Flags().StringVar(&f.rehab, "rehab", "", "rehab cost (required)")
	cmd.Flags().IntVar(&f.months, "months", 6, "hold period in months")
	_ = cmd.MarkFlagRequired("purchase")
	_ = cmd.MarkFlagRequired("rehab")
}

func (f *flipInputFlags) inputs() (domainflip.FinancialInputs, error) {
	var in domainflip.FinancialInputs
	purchase, err := parseMoneyFlag(f.purchase, "purchase")
	if err != nil {
		return in, err
	}
	rehab, err := parseMoneyFlag(f.rehab, "rehab")
	if err != nil {
		return in, err
	}
	if purchase == nil || rehab == nil {
		return in, fmt.Errorf("--purchase and --rehab are required")
	}
	in.PurchasePrice = *purchase
	in.RehabCost = *rehab
	in.HoldMonths = f.months
	return in, nil
}

func newFlipRunCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var (
		propertyID string
		reportID   string
		flags      flipInputFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full flip analysis",
		Example: `  propsignal flip run --property 5f1b... --purchase 180000 --rehab 45000
  propsignal flip run --report 9c2a... --purchase 180000 --rehab 45000 --months 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := flags.inputs()
			if err != nil {
				return err
			}
			req := appflip.RunAnalysisRequest{
				PropertyID: common.ID(propertyID),
				ReportID:   common.ID(reportID),
				Inputs:     inputs,
			}
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				analysis, err := deps.Flips.RunAnalysis(ctx, req)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, analysis)
			})
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "subject property ID")
	cmd.Flags().StringVar(&reportID, "report", "", "existing CMA report ID to price against")
	flags.register(cmd)
	return cmd
}

func newFlipGetCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <analysis-id>",
		Short: "Show a stored flip analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				analysis, err := deps.Flips.GetAnalysis(ctx, common.ID(args[0]))
				if err != nil {
					return err
				}
				return printResult(cmd, opts, analysis)
			})
		},
	}
}

func newFlipListCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var (
		propertyID   string
		disqualified bool
		page         int
		pageSize     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored flip analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := appflip.ListFilter{
				PropertyID:       common.ID(propertyID),
				DisqualifiedOnly: disqualified,
				Pagination:       common.Pagination{Page: page, PageSize: pageSize},
			}
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				analyses, total, err := deps.Flips.ListAnalyses(ctx, filter)
				if err != nil {
					return err
				}
				if err := printResult(cmd, opts, analyses); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "total: %d\n", total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&propertyID, "property", "", "filter by subject property ID")
	cmd.Flags().BoolVar(&disqualified, "disqualified", false, "only disqualified deals")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "page size")
	return cmd
}

func newFlipRepriceCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var flags flipInputFlags
	cmd := &cobra.Command{
		Use:   "reprice <analysis-id>",
		Short: "Reprice a stored analysis with new deal terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := flags.inputs()
			if err != nil {
				return err
			}
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				analysis, err := deps.Flips.UpdateInputs(ctx, common.ID(args[0]), inputs)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, analysis)
			})
		},
	}
	flags.register(cmd)
	return cmd
}
