package flip

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/pkg/types/common"
)

var scoreAsOf = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func dealSubject() *property.SubjectProperty {
	return &property.SubjectProperty{
		ID:           common.NewID(),
		City:         "Fort Worth",
		PropertyType: property.TypeSingleFamily,
		Features: property.Features{
			Bedrooms:  intp(3),
			YearBuilt: intp(1962),
		},
	}
}

func dealEstimate(level valuation.ConfidenceLevel) *valuation.ValuationEstimate {
	mid := decimal.NewFromInt(320000)
	return &valuation.ValuationEstimate{
		Low: &mid, Mid: &mid, High: &mid,
		ConfidenceLevel:  level,
		ComparablesCount: 3,
	}
}

func dealComps(distances ...float64) []*valuation.ScoredComparable {
	out := make([]*valuation.ScoredComparable, 0, len(distances))
	for i, dist := range distances {
		out = append(out, &valuation.ScoredComparable{
			Comparable: property.ComparableCandidate{
				ID:            common.ID(string(rune('a' + i))),
				DistanceMiles: dist,
			},
			IsSelected: true,
		})
	}
	return out
}

func dealSnapshot() *market.Snapshot {
	return &market.Snapshot{
		City:            "Fort Worth",
		MedianSalePrice: decimal.NewFromInt(310000),
		AvgDaysOnMarket: 34,
		MonthsOfSupply:  2.1,
		TrendPct:        0.024,
		CapturedAt:      scoreAsOf.AddDate(0, 0, -10),
	}
}

func goodDeal(t *testing.T, a *Analyzer) (*FinancialModel, DealContext) {
	t.Helper()
	m, err := a.ComputeFinancials(FinancialInputs{
		PurchasePrice: d(200000),
		RehabCost:     d(50000),
		HoldMonths:    4,
	}, d(320000))
	require.NoError(t, err)
	return m, DealContext{
		Subject:     dealSubject(),
		Estimate:    dealEstimate(valuation.ConfidenceHigh),
		Comparables: dealComps(0.2, 0.3, 0.4),
		Market:      dealSnapshot(),
		AsOf:        scoreAsOf,
	}
}

func TestScoreDeal_ViableDealPicksHighestScoringStrategy(t *testing.T) {
	a := testAnalyzer(t)
	m, ctx := goodDeal(t, a)

	cs := a.ScoreDeal(m, ctx)
	assert.False(t, cs.Disqualified)

	for _, s := range cs.Strategies() {
		assert.True(t, s.Viable, "%s should pass its gate", s.Strategy)
		assert.Greater(t, s.Score, 0.0)
	}

	best, bestScore := StrategyNone, -1.0
	for _, s := range cs.Strategies() {
		if s.Score > bestScore {
			best, bestScore = s.Strategy, s.Score
		}
	}
	assert.Equal(t, best, cs.BestStrategy)
	assert.Equal(t, a.Policy().Grades.Grade(cs.TotalScore), cs.DealRiskGrade)
}

func TestScoreDeal_NegativeProfitDisqualifies(t *testing.T) {
	a := testAnalyzer(t)
	_, ctx := goodDeal(t, a)

	// Overpaying flips the profit negative.
	m, err := a.ComputeFinancials(FinancialInputs{
		PurchasePrice: d(300000),
		RehabCost:     d(50000),
		HoldMonths:    4,
	}, d(320000))
	require.NoError(t, err)
	require.True(t, m.CashProfit.Sign() < 0)

	cs := a.ScoreDeal(m, ctx)
	assert.True(t, cs.Disqualified)
	assert.Equal(t, "negative cash profit", cs.DisqualifiedReason)
	assert.Equal(t, StrategyNone, cs.BestStrategy)
	for _, s := range cs.Strategies() {
		assert.False(t, s.Viable)
		assert.NotEmpty(t, s.Reason)
	}
	// Sub-scores are still reported for visibility.
	assert.NotZero(t, cs.PropertyScore)
}

func TestScoreDeal_NoConfidenceDisqualifies(t *testing.T) {
	a := testAnalyzer(t)
	m, ctx := goodDeal(t, a)

	ctx.Estimate = dealEstimate(valuation.ConfidenceNone)
	cs := a.ScoreDeal(m, ctx)
	assert.True(t, cs.Disqualified)
	assert.Equal(t, "no valuation confidence", cs.DisqualifiedReason)

	ctx.Estimate = nil
	cs = a.ScoreDeal(m, ctx)
	assert.True(t, cs.Disqualified)
}

func TestScoreDeal_NoSelectedComparablesDisqualifies(t *testing.T) {
	a := testAnalyzer(t)
	m, ctx := goodDeal(t, a)

	for _, c := range ctx.Comparables {
		c.IsSelected = false
	}
	cs := a.ScoreDeal(m, ctx)
	assert.True(t, cs.Disqualified)
	assert.Equal(t, "no viable comparables", cs.DisqualifiedReason)
}

func TestScoreDeal_ThinMarginFailsFlipGateOnly(t *testing.T) {
	a := testAnalyzer(t)
	_, ctx := goodDeal(t, a)

	// Positive but thin: ROI well under the 10% flip floor.
	m, err := a.ComputeFinancials(FinancialInputs{
		PurchasePrice: d(260000),
		RehabCost:     d(20000),
		HoldMonths:    4,
	}, d(320000))
	require.NoError(t, err)
	require.True(t, m.CashProfit.Sign() > 0)
	require.Less(t, m.CashROI, a.Policy().Rubric.MinFlipROI)

	cs := a.ScoreDeal(m, ctx)
	assert.False(t, cs.Disqualified)
	assert.False(t, cs.FlipScore.Viable)
	assert.NotEmpty(t, cs.FlipScore.Reason)
	assert.True(t, cs.RentalScore.Viable)
	assert.NotEqual(t, StrategyFlip, cs.BestStrategy)
	assert.NotEqual(t, StrategyNone, cs.BestStrategy)
}

func TestScoreDeal_MarketRubric(t *testing.T) {
	a := testAnalyzer(t)

	// Hot market: quick sales, tight supply, rising prices.
	hot := a.marketScore(dealSnapshot())
	// Cold market: slow sales, glut, falling prices.
	cold := a.marketScore(&market.Snapshot{
		AvgDaysOnMarket: 110,
		MonthsOfSupply:  8.5,
		TrendPct:        -0.05,
	})
	assert.Greater(t, hot, cold)

	// No snapshot at all is neutral.
	assert.Equal(t, 50.0, a.marketScore(nil))
}

func TestScoreDeal_PropertyAndLocationRubrics(t *testing.T) {
	a := testAnalyzer(t)
	_, ctx := goodDeal(t, a)

	base := a.propertyScore(ctx)
	ctx.Comparables[0].IsRenovated = true
	assert.Greater(t, a.propertyScore(ctx), base)

	nearLoc := a.locationScore(ctx)
	farCtx := ctx
	farCtx.Comparables = dealComps(2.5, 2.8, 2.9)
	assert.Greater(t, nearLoc, a.locationScore(farCtx))

	lowConf := ctx
	lowConf.Estimate = dealEstimate(valuation.ConfidenceLow)
	assert.Greater(t, nearLoc, a.locationScore(lowConf))
}

func TestAnalyze_EndToEnd(t *testing.T) {
	a := testAnalyzer(t)
	_, ctx := goodDeal(t, a)

	m, cs, err := a.Analyze(FinancialInputs{
		PurchasePrice: d(200000),
		RehabCost:     d(50000),
		HoldMonths:    4,
	}, ctx)
	require.NoError(t, err)
	assert.True(t, m.CashProfit.Equal(d(40800)))
	assert.False(t, cs.Disqualified)

	ctx.Estimate = nil
	_, _, err = a.Analyze(FinancialInputs{
		PurchasePrice: d(200000),
		RehabCost:     d(50000),
		HoldMonths:    4,
	}, ctx)
	assert.Error(t, err)
}
