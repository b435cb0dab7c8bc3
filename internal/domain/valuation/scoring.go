package valuation

import (
	"math"
	"time"

	"github.com/propsignal/propsignal/internal/domain/property"
)

// ScoreComparable computes the 0-100 comparability score for one candidate
// against the subject, as of the given reference time.
//
// The score is a weighted blend of four components, each normalized to 0-1:
// distance (closer is better, zero at the policy ceiling), recency (newer
// close date is better), size similarity (smaller relative living-area delta
// is better; neutral 0.5 when either side lacks sqft), and type match (full
// credit for an exact sub-type match, partial for the same broad type).
func (e *Engine) ScoreComparable(subject *property.SubjectProperty, c *property.ComparableCandidate, asOf time.Time) (float64, ScoreBreakdown) {
	p := e.policy.Scoring

	dist := 1.0 - c.DistanceMiles/p.DistanceCeilingMiles
	dist = clamp01(dist)

	ageDays := asOf.Sub(c.CloseDate).Hours() / 24
	rec := 1.0 - ageDays/p.RecencyCeilingDays
	rec = clamp01(rec)

	size := 0.5
	if subject.Features.LivingAreaSqFt != nil && c.Features.LivingAreaSqFt != nil && *subject.Features.LivingAreaSqFt > 0 {
		rel := math.Abs(float64(*subject.Features.LivingAreaSqFt-*c.Features.LivingAreaSqFt)) / float64(*subject.Features.LivingAreaSqFt)
		size = clamp01(1.0 - rel/p.SizeDeltaCeilingPct)
	}

	match := 0.0
	switch {
	case subject.PropertySubType != "" && subject.PropertySubType == c.PropertySubType:
		match = 1.0
	case subject.PropertyType == c.PropertyType:
		match = 0.6
	}

	bd := ScoreBreakdown{
		Distance:  dist * p.DistanceWeight * 100,
		Recency:   rec * p.RecencyWeight * 100,
		Size:      size * p.SizeWeight * 100,
		TypeMatch: match * p.TypeMatchWeight * 100,
	}
	score := bd.Distance + bd.Recency + bd.Size + bd.TypeMatch
	return math.Round(score*10) / 10, bd
}

// WeightForScore maps a comparability score to its aggregation weight.  The
// transform is quadratic, (score/100)^2, so the best comps dominate the
// weighted average rather than being diluted by marginal ones.
func WeightForScore(score float64) float64 {
	s := clamp01(score / 100)
	return s * s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
