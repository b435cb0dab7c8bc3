package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// newAnalyzeCmd runs a CMA valuation for a subject property.  With --file it
// runs the engine directly over a subject and candidate pool read from JSON,
// touching no backing services.
func newAnalyzeCmd(factory DependencyFactory, opts *RootOptions) *cobra.Command {
	var (
		propertyID    string
		inputFile     string
		maxRadius     float64
		minPrice      string
		maxPrice      string
		includeActive bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a comparable market analysis for a property",
		Example: `  propsignal analyze --property 5f1b... -o json
  propsignal analyze --property 5f1b... --max-radius 1.0 --include-active
  propsignal analyze --file subject_and_comps.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputFile == "" && propertyID == "" {
				return fmt.Errorf("either --property or --file is required")
			}

			filters := struct {
				maxRadius *float64
				minPrice  *decimal.Decimal
				maxPrice  *decimal.Decimal
			}{}
			if maxRadius > 0 {
				filters.maxRadius = &maxRadius
			}
			var err error
			if filters.minPrice, err = parseMoneyFlag(minPrice, "min-price"); err != nil {
				return err
			}
			if filters.maxPrice, err = parseMoneyFlag(maxPrice, "max-price"); err != nil {
				return err
			}

			if inputFile != "" {
				return analyzeFromFile(cmd, opts, inputFile, valuation.SelectionFilters{
					MaxRadiusMiles: filters.maxRadius,
					MinPrice:       filters.minPrice,
					MaxPrice:       filters.maxPrice,
				})
			}

			req := cma.RunReportRequest{
				PropertyID:     common.ID(propertyID),
				IncludeActive:  includeActive,
				MaxRadiusMiles: filters.maxRadius,
				MinPrice:       filters.minPrice,
				MaxPrice:       filters.maxPrice,
			}
			return withDeps(factory, opts, func(ctx context.Context, deps *Dependencies) error {
				report, err := deps.Reports.RunReport(ctx, req)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, report)
			})
		},
	}

	cmd.Flags().StringVar(&propertyID, "property", "", "subject property ID")
	cmd.Flags().StringVar(&inputFile, "file", "", "JSON file with subject and candidate pool; runs offline")
	cmd.Flags().Float64Var(&maxRadius, "max-radius", 0, "cap the comp search radius in miles")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "minimum comparable sale price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum comparable sale price")
	cmd.Flags().BoolVar(&includeActive, "include-active", false, "include active listings in the pool")
	cmd.MarkFlagsMutuallyExclusive("property", "file")
	return cmd
}

// analyzeInput is the offline pool format: the subject plus the candidates
// the engine may select from.
type analyzeInput struct {
	Subject    *property.SubjectProperty       `json:"subject"`
	Candidates []*property.ComparableCandidate `json:"candidates"`
}

// analyzeFromFile runs the valuation engine with its default policy over a
// pool supplied as JSON.  No database, cache, or broker is involved.
func analyzeFromFile(cmd *cobra.Command, opts *RootOptions, path string, filters valuation.SelectionFilters) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var input analyzeInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	engine, err := valuation.NewEngine(valuation.DefaultPolicy())
	if err != nil {
		return err
	}
	scored, estimate, err := engine.Run(input.Subject, input.Candidates, filters, time.Now().UTC())
	if err != nil {
		return err
	}
	return printResult(cmd, opts, struct {
		Comparables []*valuation.ScoredComparable `json:"comparables"`
		Estimate    *valuation.ValuationEstimate  `json:"estimate"`
	}{Comparables: scored, Estimate: estimate})
}

// parseMoneyFlag converts an optional dollar-amount flag to decimal.
func parseMoneyFlag(raw, name string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %q is not a number", name, raw)
	}
	return &d, nil
}
