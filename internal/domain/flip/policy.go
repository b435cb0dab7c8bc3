package flip

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/pkg/errors"
)

// CostRates is the deal cost structure applied by the financial model.
// Percentages are decimal fractions (0.06 = 6%).
type CostRates struct {
	// SaleCostPct of ARV covers agent commission and seller closing.
	SaleCostPct decimal.Decimal `json:"sale_cost_pct" mapstructure:"sale_cost_pct"`
	// PurchaseClosingPct of purchase price.
	PurchaseClosingPct decimal.Decimal `json:"purchase_closing_pct" mapstructure:"purchase_closing_pct"`
	// MonthlyHoldingCost is the flat carry per month held (taxes, insurance,
	// utilities).
	MonthlyHoldingCost decimal.Decimal `json:"monthly_holding_cost" mapstructure:"monthly_holding_cost"`

	// TargetProfitPct of ARV is the minimum margin the adjusted MAO protects.
	TargetProfitPct decimal.Decimal `json:"target_profit_pct" mapstructure:"target_profit_pct"`

	// Financed-scenario terms.
	DownPaymentPct    decimal.Decimal `json:"down_payment_pct" mapstructure:"down_payment_pct"`
	AnnualInterestPct decimal.Decimal `json:"annual_interest_pct" mapstructure:"annual_interest_pct"`
}

// ScoringRubric holds the composite-scoring weights, gates, and reference
// points.
type ScoringRubric struct {
	// Sub-score weights for the total; must sum to 1.
	FinancialWeight float64 `json:"financial_weight" mapstructure:"financial_weight"`
	PropertyWeight  float64 `json:"property_weight" mapstructure:"property_weight"`
	LocationWeight  float64 `json:"location_weight" mapstructure:"location_weight"`
	MarketWeight    float64 `json:"market_weight" mapstructure:"market_weight"`

	// Per-strategy re-weightings of the same four sub-scores; each row must
	// sum to 1.
	FlipWeights   [4]float64 `json:"flip_weights" mapstructure:"flip_weights"`
	RentalWeights [4]float64 `json:"rental_weights" mapstructure:"rental_weights"`
	BRRRRWeights  [4]float64 `json:"brrrr_weights" mapstructure:"brrrr_weights"`

	// ROITarget is the cash ROI at which the ROI component of the financial
	// score maxes out.
	ROITarget float64 `json:"roi_target" mapstructure:"roi_target"`
	// MAOMarginTarget is the (MAO-adjusted − purchase)/purchase headroom at
	// which the margin-of-safety component maxes out.
	MAOMarginTarget float64 `json:"mao_margin_target" mapstructure:"mao_margin_target"`

	// Market rubric reference points.
	DOMCeilingDays   float64 `json:"dom_ceiling_days" mapstructure:"dom_ceiling_days"`
	SupplyCeilingMo  float64 `json:"supply_ceiling_months" mapstructure:"supply_ceiling_months"`
	TrendRisingBonus float64 `json:"trend_rising_bonus" mapstructure:"trend_rising_bonus"`

	// Strategy gates.
	MinFlipROI float64 `json:"min_flip_roi" mapstructure:"min_flip_roi"`
	// GrossRentYieldPct of ARV estimates monthly market rent for the rental
	// gate (the "1% rule" family).
	GrossRentYieldPct decimal.Decimal `json:"gross_rent_yield_pct" mapstructure:"gross_rent_yield_pct"`
	// MonthlyOwnershipCost is the carry a rental must clear to be viable.
	MonthlyOwnershipCost decimal.Decimal `json:"monthly_ownership_cost" mapstructure:"monthly_ownership_cost"`
	// RefiLTVPct of ARV is the cash a BRRRR refinance returns; the strategy
	// is viable when that covers RecoveryPct of invested cash.
	RefiLTVPct  decimal.Decimal `json:"refi_ltv_pct" mapstructure:"refi_ltv_pct"`
	RecoveryPct decimal.Decimal `json:"recovery_pct" mapstructure:"recovery_pct"`
}

// Policy bundles everything tunable about flip analysis.  Grade bands are
// shared with comparability grading so letter grades mean the same thing
// across the system.
type Policy struct {
	Costs  CostRates            `json:"costs" mapstructure:"costs"`
	Rubric ScoringRubric        `json:"rubric" mapstructure:"rubric"`
	Grades valuation.GradeBands `json:"grades" mapstructure:"grades"`
}

// DefaultPolicy returns the baseline flip policy.
func DefaultPolicy() Policy {
	return Policy{
		Costs: CostRates{
			SaleCostPct:        decimal.NewFromFloat(0.06),
			PurchaseClosingPct: decimal.NewFromFloat(0.02),
			MonthlyHoldingCost: decimal.NewFromInt(1500),
			TargetProfitPct:    decimal.NewFromFloat(0.20),
			DownPaymentPct:     decimal.NewFromFloat(0.20),
			AnnualInterestPct:  decimal.NewFromFloat(0.10),
		},
		Rubric: ScoringRubric{
			FinancialWeight: 0.40,
			PropertyWeight:  0.20,
			LocationWeight:  0.20,
			MarketWeight:    0.20,

			FlipWeights:   [4]float64{0.55, 0.15, 0.15, 0.15},
			RentalWeights: [4]float64{0.30, 0.20, 0.30, 0.20},
			BRRRRWeights:  [4]float64{0.40, 0.20, 0.20, 0.20},

			ROITarget:       0.25,
			MAOMarginTarget: 0.15,

			DOMCeilingDays:   120,
			SupplyCeilingMo:  9,
			TrendRisingBonus: 10,

			MinFlipROI:           0.10,
			GrossRentYieldPct:    decimal.NewFromFloat(0.008),
			MonthlyOwnershipCost: decimal.NewFromInt(1800),
			RefiLTVPct:           decimal.NewFromFloat(0.75),
			RecoveryPct:          decimal.NewFromFloat(0.90),
		},
		Grades: valuation.GradeBands{A: 90, B: 75, C: 60, D: 40},
	}
}

// Validate rejects a policy the analyzer cannot run with.
func (p Policy) Validate() error {
	one := decimal.NewFromInt(1)
	if p.Costs.SaleCostPct.Sign() < 0 || p.Costs.SaleCostPct.GreaterThanOrEqual(one) {
		return errors.New(errors.ErrCodeDealScoringPolicy, "sale_cost_pct must be in [0, 1)")
	}
	if p.Costs.PurchaseClosingPct.Sign() < 0 || p.Costs.PurchaseClosingPct.GreaterThanOrEqual(one) {
		return errors.New(errors.ErrCodeDealScoringPolicy, "purchase_closing_pct must be in [0, 1)")
	}
	if p.Costs.MonthlyHoldingCost.Sign() < 0 {
		return errors.New(errors.ErrCodeDealScoringPolicy, "monthly_holding_cost cannot be negative")
	}
	if p.Costs.TargetProfitPct.Sign() <= 0 || p.Costs.TargetProfitPct.GreaterThanOrEqual(one) {
		return errors.New(errors.ErrCodeDealScoringPolicy, "target_profit_pct must be in (0, 1)")
	}
	if p.Costs.DownPaymentPct.Sign() <= 0 || p.Costs.DownPaymentPct.GreaterThan(one) {
		return errors.New(errors.ErrCodeDealScoringPolicy, "down_payment_pct must be in (0, 1]")
	}
	total := p.Rubric.FinancialWeight + p.Rubric.PropertyWeight + p.Rubric.LocationWeight + p.Rubric.MarketWeight
	if math.Abs(total-1.0) > 1e-9 {
		return errors.Newf(errors.ErrCodeDealScoringPolicy, "total score weights sum to %v, want 1", total)
	}
	for _, w := range [][4]float64{p.Rubric.FlipWeights, p.Rubric.RentalWeights, p.Rubric.BRRRRWeights} {
		sum := w[0] + w[1] + w[2] + w[3]
		if math.Abs(sum-1.0) > 1e-9 {
			return errors.Newf(errors.ErrCodeDealScoringPolicy, "strategy weights sum to %v, want 1", sum)
		}
	}
	if p.Rubric.ROITarget <= 0 || p.Rubric.MAOMarginTarget <= 0 {
		return errors.New(errors.ErrCodeDealScoringPolicy, "roi and margin targets must be positive")
	}
	if p.Rubric.DOMCeilingDays <= 0 || p.Rubric.SupplyCeilingMo <= 0 {
		return errors.New(errors.ErrCodeDealScoringPolicy, "market rubric ceilings must be positive")
	}
	if !(p.Grades.A > p.Grades.B && p.Grades.B > p.Grades.C && p.Grades.C > p.Grades.D) {
		return errors.New(errors.ErrCodeDealScoringPolicy, "grade bands must be strictly decreasing A > B > C > D")
	}
	return nil
}
