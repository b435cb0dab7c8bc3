package valuation

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate combines the selected scored comparables into a valuation
// estimate.
//
// Comparables with IsSelected=false do not participate at all: they are
// excluded from the weighted mid, the spread, the per-sqft average, and the
// confidence inputs.  With zero selected comparables the band pointers stay
// nil and the confidence level is "none"; with exactly one, the band
// collapses to that comparable's adjusted price and confidence is forced to
// "low" regardless of its score.
func (e *Engine) Aggregate(comps []*ScoredComparable, asOf time.Time) *ValuationEstimate {
	selected := make([]*ScoredComparable, 0, len(comps))
	for _, c := range comps {
		if c != nil && c.IsSelected {
			selected = append(selected, c)
		}
	}

	est := &ValuationEstimate{
		ConfidenceLevel:  ConfidenceNone,
		ComparablesCount: len(selected),
		ComputedAt:       asOf,
	}
	if len(selected) == 0 {
		return est
	}

	// Weighted mid.  If every weight is zero (all scores bottomed out),
	// fall back to equal weighting rather than dividing by zero.
	totalWeight := 0.0
	for _, c := range selected {
		totalWeight += c.Weight
	}
	weightOf := func(c *ScoredComparable) float64 { return c.Weight }
	if totalWeight == 0 {
		totalWeight = float64(len(selected))
		weightOf = func(*ScoredComparable) float64 { return 1 }
	}
	sum := decimal.Zero
	for _, c := range selected {
		sum = sum.Add(c.AdjustedPrice.Mul(decimal.NewFromFloat(weightOf(c))))
	}
	mid := sum.Div(decimal.NewFromFloat(totalWeight)).Round(2)

	// Unweighted dispersion of adjusted prices drives the band spread and
	// the variance component of confidence.
	mean, stdev := priceStats(selected)
	spread := stdev * e.policy.Aggregation.SpreadMultiplier * (1 + 1/float64(len(selected)))
	sd := decimal.NewFromFloat(spread).Round(2)
	low := mid.Sub(sd)
	high := mid.Add(sd)

	if len(selected) == 1 {
		// Zero variance by construction; the band is the single price.
		p := selected[0].AdjustedPrice
		low, mid, high = p, p, p
	}

	est.Low, est.Mid, est.High = &low, &mid, &high
	est.AvgPricePerSqFt = avgPricePerSqFt(selected)

	est.ConfidenceScore = e.confidenceScore(selected, mean, stdev)
	est.ConfidenceLevel = e.confidenceLevel(len(selected), est.ConfidenceScore)
	return est
}

// confidenceScore blends comparable count (saturating), average
// comparability score, and price dispersion.  Each component is monotone in
// the right direction: more comps, better comps, and tighter prices never
// lower the score.
func (e *Engine) confidenceScore(selected []*ScoredComparable, mean, stdev float64) float64 {
	p := e.policy.Confidence

	n := len(selected)
	if n > p.CountSaturation {
		n = p.CountSaturation
	}
	countScore := float64(n) / float64(p.CountSaturation) * 100

	avg := 0.0
	for _, c := range selected {
		avg += c.ComparabilityScore
	}
	avg /= float64(len(selected))

	varScore := 100.0
	if mean > 0 {
		cv := stdev / mean
		if cv > p.CVCeiling {
			cv = p.CVCeiling
		}
		varScore = (1 - cv/p.CVCeiling) * 100
	}

	score := p.CountWeight*countScore + p.ScoreWeight*avg + p.VarianceWeight*varScore
	return math.Round(clamp01(score/100)*1000) / 10
}

func (e *Engine) confidenceLevel(count int, score float64) ConfidenceLevel {
	switch {
	case count == 0:
		return ConfidenceNone
	case count == 1:
		return ConfidenceLow
	case score >= e.policy.Confidence.HighThreshold:
		return ConfidenceHigh
	case score >= e.policy.Confidence.MediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// priceStats returns the mean and population standard deviation of the
// adjusted prices.  Dispersion statistics tolerate float math; only the
// dollar results themselves stay decimal.
func priceStats(selected []*ScoredComparable) (mean, stdev float64) {
	n := float64(len(selected))
	for _, c := range selected {
		mean += c.AdjustedPrice.InexactFloat64()
	}
	mean /= n
	var ss float64
	for _, c := range selected {
		d := c.AdjustedPrice.InexactFloat64() - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

func avgPricePerSqFt(selected []*ScoredComparable) *decimal.Decimal {
	sum := decimal.Zero
	n := 0
	for _, c := range selected {
		sqft := c.Comparable.Features.LivingAreaSqFt
		if sqft == nil || *sqft <= 0 {
			continue
		}
		sum = sum.Add(c.AdjustedPrice.Div(decimal.NewFromInt(int64(*sqft))))
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum.Div(decimal.NewFromInt(int64(n))).Round(2)
	return &avg
}
