package flip

import (
	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/pkg/errors"
)

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
	// seventyPct is the classic "70% rule" constant.  It is part of the MAO
	// formula itself, not tunable cost policy.
	seventyPct = decimal.NewFromFloat(0.70)
)

// FinancialInputs are the user-supplied deal terms.
type FinancialInputs struct {
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	RehabCost     decimal.Decimal `json:"rehab_cost"`
	HoldMonths    int             `json:"hold_months"`
}

// Validate rejects deal terms the model cannot price.  Zero or negative
// rehab and hold inputs are hard errors, never silently clamped.
func (in FinancialInputs) Validate() error {
	if in.PurchasePrice.Sign() <= 0 {
		return errors.New(errors.ErrCodeFinancialInput, "purchase price must be positive")
	}
	if in.RehabCost.Sign() <= 0 {
		return errors.New(errors.ErrCodeFinancialInput, "rehab cost must be positive")
	}
	if in.HoldMonths <= 0 {
		return errors.New(errors.ErrCodeFinancialInput, "hold months must be positive")
	}
	return nil
}

// ComputeFinancials prices a flip deal.
//
// Cash scenario:
//
//	cashProfit = arv − purchase − rehab − saleCosts − holdingCosts − closing
//	cashROI    = cashProfit / (purchase + rehab + closing + holdingCosts)
//
// Financed scenario: the equity base shrinks to the down payment plus rehab,
// closing, and carry, and loan interest comes out of the profit; the
// cash-on-cash ROI annualizes by 12/holdMonths.
//
// maoClassic is the industry 70% rule, arv×0.70 − rehab, exactly.
// maoAdjusted back-solves the purchase price at which the cash profit equals
// the target margin.  breakevenARV back-solves the ARV at which the cash
// profit is zero.
func (a *Analyzer) ComputeFinancials(in FinancialInputs, arv decimal.Decimal) (*FinancialModel, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if arv.Sign() <= 0 {
		return nil, errors.New(errors.ErrCodeFinancialInput, "arv must be positive")
	}
	c := a.policy.Costs

	m := &FinancialModel{
		PurchasePrice: in.PurchasePrice,
		RehabCost:     in.RehabCost,
		ARV:           arv,
		HoldMonths:    in.HoldMonths,
	}

	m.SaleCosts = arv.Mul(c.SaleCostPct).Round(2)
	m.HoldingCosts = c.MonthlyHoldingCost.Mul(decimal.NewFromInt(int64(in.HoldMonths))).Round(2)
	m.PurchaseClosingCost = in.PurchasePrice.Mul(c.PurchaseClosingPct).Round(2)

	m.CashInvestment = in.PurchasePrice.Add(in.RehabCost).Add(m.PurchaseClosingCost).Add(m.HoldingCosts)
	m.CashProfit = arv.Sub(in.PurchasePrice).Sub(in.RehabCost).Sub(m.SaleCosts).Sub(m.HoldingCosts).Sub(m.PurchaseClosingCost)
	m.CashROI = m.CashProfit.Div(m.CashInvestment).InexactFloat64()

	m.DownPayment = in.PurchasePrice.Mul(c.DownPaymentPct).Round(2)
	m.LoanAmount = in.PurchasePrice.Sub(m.DownPayment)
	months := decimal.NewFromInt(int64(in.HoldMonths))
	m.LoanInterest = m.LoanAmount.Mul(c.AnnualInterestPct).Mul(months).Div(twelve).Round(2)
	m.FinancedProfit = m.CashProfit.Sub(m.LoanInterest)

	equity := m.DownPayment.Add(in.RehabCost).Add(m.PurchaseClosingCost).Add(m.HoldingCosts)
	m.CashOnCashROI = m.FinancedProfit.Div(equity).InexactFloat64()
	m.AnnualizedROI = m.CashOnCashROI * 12 / float64(in.HoldMonths)

	m.MAOClassic = arv.Mul(seventyPct).Sub(in.RehabCost)

	// Purchase price P such that profit == arv×target, with closing costs
	// proportional to P:  P×(1+closingPct) = arv − rehab − sale − holding −
	// arv×target.
	m.MAOAdjusted = arv.Sub(in.RehabCost).Sub(m.SaleCosts).Sub(m.HoldingCosts).Sub(arv.Mul(c.TargetProfitPct)).
		Div(one.Add(c.PurchaseClosingPct)).Round(2)

	// ARV at which cashProfit == 0, with sale costs proportional to ARV.
	m.BreakevenARV = in.PurchasePrice.Add(in.RehabCost).Add(m.HoldingCosts).Add(m.PurchaseClosingCost).
		Div(one.Sub(c.SaleCostPct)).Round(2)

	return m, nil
}
