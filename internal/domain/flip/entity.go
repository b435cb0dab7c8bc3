// Package flip implements the investment analysis layered on top of a
// valuation: the cash and financed flip financial model (profit, ROI, the
// two MAO formulas, breakeven ARV) and the composite deal score with
// strategy classification and disqualification gates.
//
// Like the valuation engine, everything here is a pure function of its
// inputs.  The ARV comes in from a valuation estimate; cost structure and
// scoring rubrics come in as policy.
package flip

import (
	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/valuation"
)

// FinancialModel is the complete flip arithmetic for one deal.  Dollar
// fields are decimal; ratios are plain floats.
type FinancialModel struct {
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	RehabCost     decimal.Decimal `json:"rehab_cost"`
	ARV           decimal.Decimal `json:"arv"`
	HoldMonths    int             `json:"hold_months"`

	SaleCosts           decimal.Decimal `json:"sale_costs"`
	HoldingCosts        decimal.Decimal `json:"holding_costs"`
	PurchaseClosingCost decimal.Decimal `json:"purchase_closing_cost"`

	// Cash-purchase scenario.
	CashInvestment decimal.Decimal `json:"cash_investment"`
	CashProfit     decimal.Decimal `json:"cash_profit"`
	CashROI        float64         `json:"cash_roi"`

	// Financed scenario: a down payment plus rehab and carrying costs form
	// the equity base, and loan interest comes out of the profit.
	DownPayment    decimal.Decimal `json:"down_payment"`
	LoanAmount     decimal.Decimal `json:"loan_amount"`
	LoanInterest   decimal.Decimal `json:"loan_interest"`
	FinancedProfit decimal.Decimal `json:"financed_profit"`
	CashOnCashROI  float64         `json:"cash_on_cash_roi"`
	AnnualizedROI  float64         `json:"annualized_roi"`

	MAOClassic   decimal.Decimal `json:"mao_classic"`
	MAOAdjusted  decimal.Decimal `json:"mao_adjusted"`
	BreakevenARV decimal.Decimal `json:"breakeven_arv"`
}

// Strategy is an investment exit strategy.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyFlip   Strategy = "flip"
	StrategyRental Strategy = "rental"
	StrategyBRRRR  Strategy = "brrrr"
)

// StrategyScore is one strategy's weighted score plus its viability gate
// outcome.  A non-viable strategy keeps its score for visibility but can
// never be selected as best.
type StrategyScore struct {
	Strategy Strategy `json:"strategy"`
	Score    float64  `json:"score"`
	Viable   bool     `json:"viable"`
	// Reason explains a failed gate; empty when viable.
	Reason string `json:"reason,omitempty"`
}

// CompositeScore is the full deal assessment: four 0-100 sub-scores, their
// weighted total, per-strategy scores, and the disqualification verdict.
type CompositeScore struct {
	FinancialScore float64 `json:"financial_score"`
	PropertyScore  float64 `json:"property_score"`
	LocationScore  float64 `json:"location_score"`
	MarketScore    float64 `json:"market_score"`

	TotalScore    float64         `json:"total_score"`
	DealRiskGrade valuation.Grade `json:"deal_risk_grade"`

	FlipScore   StrategyScore `json:"flip_score"`
	RentalScore StrategyScore `json:"rental_score"`
	BRRRRScore  StrategyScore `json:"brrrr_score"`

	BestStrategy Strategy `json:"best_strategy"`

	Disqualified       bool   `json:"disqualified"`
	DisqualifiedReason string `json:"disqualified_reason,omitempty"`
}

// Strategies returns the three per-strategy scores in a fixed order.
func (c *CompositeScore) Strategies() []StrategyScore {
	return []StrategyScore{c.FlipScore, c.RentalScore, c.BRRRRScore}
}
