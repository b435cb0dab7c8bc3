package flip

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
)

// DealContext is everything ScoreDeal consumes beyond the financial model.
// Market may be nil when no snapshot exists for the area; the market rubric
// then scores a neutral 50.
type DealContext struct {
	Subject     *property.SubjectProperty
	Estimate    *valuation.ValuationEstimate
	Comparables []*valuation.ScoredComparable
	Market      *market.Snapshot
	AsOf        time.Time
}

// ScoreDeal produces the composite deal assessment.
//
// Hard gates run first: a negative cash profit, a no-confidence valuation,
// or zero selected comparables disqualifies the deal outright.  A
// disqualified deal still carries its sub-scores for visibility, but every
// strategy reports non-viable and BestStrategy is "none".
func (a *Analyzer) ScoreDeal(m *FinancialModel, ctx DealContext) *CompositeScore {
	r := a.policy.Rubric

	cs := &CompositeScore{
		FinancialScore: a.financialScore(m),
		PropertyScore:  a.propertyScore(ctx),
		LocationScore:  a.locationScore(ctx),
		MarketScore:    a.marketScore(ctx.Market),
	}

	sub := [4]float64{cs.FinancialScore, cs.PropertyScore, cs.LocationScore, cs.MarketScore}
	cs.TotalScore = round1(r.FinancialWeight*sub[0] + r.PropertyWeight*sub[1] + r.LocationWeight*sub[2] + r.MarketWeight*sub[3])
	cs.DealRiskGrade = a.policy.Grades.Grade(cs.TotalScore)

	if reason := a.disqualify(m, ctx); reason != "" {
		cs.Disqualified = true
		cs.DisqualifiedReason = reason
		cs.FlipScore = StrategyScore{Strategy: StrategyFlip, Viable: false, Reason: reason}
		cs.RentalScore = StrategyScore{Strategy: StrategyRental, Viable: false, Reason: reason}
		cs.BRRRRScore = StrategyScore{Strategy: StrategyBRRRR, Viable: false, Reason: reason}
		cs.BestStrategy = StrategyNone
		return cs
	}

	cs.FlipScore = a.strategyScore(StrategyFlip, r.FlipWeights, sub, a.flipGate(m))
	cs.RentalScore = a.strategyScore(StrategyRental, r.RentalWeights, sub, a.rentalGate(m))
	cs.BRRRRScore = a.strategyScore(StrategyBRRRR, r.BRRRRWeights, sub, a.brrrrGate(m))

	cs.BestStrategy = StrategyNone
	best := math.Inf(-1)
	for _, s := range cs.Strategies() {
		if s.Viable && s.Score > best {
			best = s.Score
			cs.BestStrategy = s.Strategy
		}
	}
	return cs
}

func (a *Analyzer) disqualify(m *FinancialModel, ctx DealContext) string {
	if m.CashProfit.Sign() < 0 {
		return "negative cash profit"
	}
	if ctx.Estimate == nil || ctx.Estimate.ConfidenceLevel == valuation.ConfidenceNone {
		return "no valuation confidence"
	}
	selected := 0
	for _, c := range ctx.Comparables {
		if c != nil && c.IsSelected {
			selected++
		}
	}
	if selected == 0 {
		return "no viable comparables"
	}
	return ""
}

func (a *Analyzer) strategyScore(st Strategy, w [4]float64, sub [4]float64, gateReason string) StrategyScore {
	s := StrategyScore{
		Strategy: st,
		Score:    round1(w[0]*sub[0] + w[1]*sub[1] + w[2]*sub[2] + w[3]*sub[3]),
		Viable:   gateReason == "",
		Reason:   gateReason,
	}
	return s
}

func (a *Analyzer) flipGate(m *FinancialModel) string {
	if m.CashROI < a.policy.Rubric.MinFlipROI {
		return "cash ROI below flip minimum"
	}
	return ""
}

func (a *Analyzer) rentalGate(m *FinancialModel) string {
	rent := m.ARV.Mul(a.policy.Rubric.GrossRentYieldPct)
	if rent.LessThanOrEqual(a.policy.Rubric.MonthlyOwnershipCost) {
		return "estimated rent does not cover ownership cost"
	}
	return ""
}

func (a *Analyzer) brrrrGate(m *FinancialModel) string {
	refiCash := m.ARV.Mul(a.policy.Rubric.RefiLTVPct)
	needed := m.CashInvestment.Mul(a.policy.Rubric.RecoveryPct)
	if refiCash.LessThan(needed) {
		return "refinance would not recover invested cash"
	}
	return ""
}

// financialScore rewards ROI up to the target (60 points) and headroom
// between the adjusted MAO and the actual purchase price (40 points).
func (a *Analyzer) financialScore(m *FinancialModel) float64 {
	r := a.policy.Rubric

	roi := clampRatio(m.CashROI / r.ROITarget)

	margin := 0.0
	if m.PurchasePrice.Sign() > 0 {
		headroom := m.MAOAdjusted.Sub(m.PurchasePrice).Div(m.PurchasePrice).InexactFloat64()
		margin = clampRatio(headroom / r.MAOMarginTarget)
	}
	return round1(roi*60 + margin*40)
}

// propertyScore blends structural signals: age, bedroom count in the
// rentable sweet spot, garage presence, and distress/renovation flags among
// the comps (distressed comps suggest discounted acquisition stock;
// renovated comps pin the post-rehab ceiling).
func (a *Analyzer) propertyScore(ctx DealContext) float64 {
	score := 50.0
	if ctx.Subject == nil {
		return score
	}
	f := ctx.Subject.Features

	asOf := ctx.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	if f.YearBuilt != nil {
		age := asOf.Year() - *f.YearBuilt
		switch {
		case age <= 15:
			score += 20
		case age <= 40:
			score += 10
		case age > 80:
			score -= 10
		}
	}
	if f.Bedrooms != nil && *f.Bedrooms >= 3 && *f.Bedrooms <= 4 {
		score += 15
	}
	if f.GarageSpaces != nil && *f.GarageSpaces > 0 {
		score += 5
	}

	renovated := 0
	for _, c := range ctx.Comparables {
		if c != nil && c.IsSelected && c.IsRenovated {
			renovated++
		}
	}
	if renovated > 0 {
		score += 10
	}
	return clampScore(score)
}

// locationScore leans on the valuation's own quality signals: comp density
// and proximity stand in for neighborhood liquidity, and the confidence
// level reflects how well the market around the subject is behaving.
func (a *Analyzer) locationScore(ctx DealContext) float64 {
	score := 40.0
	if ctx.Estimate != nil {
		switch ctx.Estimate.ConfidenceLevel {
		case valuation.ConfidenceHigh:
			score += 30
		case valuation.ConfidenceMedium:
			score += 20
		case valuation.ConfidenceLow:
			score += 5
		}
	}

	n, sumDist := 0, 0.0
	for _, c := range ctx.Comparables {
		if c != nil && c.IsSelected {
			n++
			sumDist += c.Comparable.DistanceMiles
		}
	}
	if n > 0 {
		avg := sumDist / float64(n)
		switch {
		case avg <= 0.5:
			score += 30
		case avg <= 1.0:
			score += 20
		case avg <= 3.0:
			score += 10
		}
	}
	return clampScore(score)
}

// marketScore reads the snapshot: faster sales and tighter supply score
// higher, and a rising trend earns a bonus.  No snapshot scores a neutral
// 50.
func (a *Analyzer) marketScore(s *market.Snapshot) float64 {
	if s == nil {
		return 50
	}
	r := a.policy.Rubric

	dom := clampRatio(1 - s.AvgDaysOnMarket/r.DOMCeilingDays)
	supply := clampRatio(1 - s.MonthsOfSupply/r.SupplyCeilingMo)

	score := dom*45 + supply*45
	if s.Trend() == market.TrendRising {
		score += r.TrendRisingBonus
	}
	return clampScore(round1(score))
}

// EstimateMonthlyRent exposes the rental gate's rent model for report
// display.
func (a *Analyzer) EstimateMonthlyRent(arv decimal.Decimal) decimal.Decimal {
	return arv.Mul(a.policy.Rubric.GrossRentYieldPct).Round(2)
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
