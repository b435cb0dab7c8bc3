package valuation

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
)

// SelectionFilters optionally narrow the candidate pool before the
// progressive radius search runs.  Nil fields mean "no constraint".
type SelectionFilters struct {
	PropertyType   *property.Type
	MaxRadiusMiles *float64
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	SoldAfter      *time.Time
}

// SelectComparables picks the comparables for a valuation run from the
// supplied candidate pool.
//
// Distances are computed here (haversine over the great circle) and written
// back onto the returned candidates.  The radius widens progressively through
// the policy's steps until at least MinComparables candidates fall inside;
// when even the last step comes up short the whole filtered pool ("citywide")
// is used.  Retained candidates are ordered by ascending distance, then most
// recent close date, then smallest absolute living-area delta against the
// subject, then candidate ID, and capped at MaxComparables.
//
// An empty pool yields an empty slice, never an error; the aggregator turns
// that into a no-confidence estimate.
func (e *Engine) SelectComparables(subject *property.SubjectProperty, pool []*property.ComparableCandidate, filters SelectionFilters) []*property.ComparableCandidate {
	filtered := make([]*property.ComparableCandidate, 0, len(pool))
	for _, c := range pool {
		if c == nil || c.ClosePrice.Sign() <= 0 {
			continue
		}
		// A candidate without coordinates cannot be distance-ranked; its
		// zero distance would place it closest to every subject.
		if c.Location.IsZero() {
			continue
		}
		if filters.PropertyType != nil && c.PropertyType != *filters.PropertyType {
			continue
		}
		if filters.MinPrice != nil && c.ClosePrice.LessThan(*filters.MinPrice) {
			continue
		}
		if filters.MaxPrice != nil && c.ClosePrice.GreaterThan(*filters.MaxPrice) {
			continue
		}
		if filters.SoldAfter != nil && c.CloseDate.Before(*filters.SoldAfter) {
			continue
		}
		cc := *c
		cc.DistanceMiles = property.DistanceMiles(subject.Location, c.Location)
		if filters.MaxRadiusMiles != nil && cc.DistanceMiles > *filters.MaxRadiusMiles {
			continue
		}
		filtered = append(filtered, &cc)
	}
	if len(filtered) == 0 {
		return filtered
	}

	// Progressive radius widening: low-inventory areas fall through to the
	// next step instead of returning an empty set.
	radii := append([]float64{}, e.policy.Selection.RadiusStepsMiles...)
	radii = append(radii, math.Inf(1)) // citywide
	var retained []*property.ComparableCandidate
	for _, r := range radii {
		retained = retained[:0]
		for _, c := range filtered {
			if c.DistanceMiles <= r {
				retained = append(retained, c)
			}
		}
		if len(retained) >= e.policy.Selection.MinComparables {
			break
		}
	}

	sortCandidates(retained, subject)

	if max := e.policy.Selection.MaxComparables; len(retained) > max {
		retained = retained[:max]
	}
	return retained
}

func sortCandidates(cands []*property.ComparableCandidate, subject *property.SubjectProperty) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		if !a.CloseDate.Equal(b.CloseDate) {
			return a.CloseDate.After(b.CloseDate)
		}
		da, db := sqftDelta(subject, a), sqftDelta(subject, b)
		if da != db {
			return da < db
		}
		return a.ID < b.ID
	})
}

// sqftDelta returns the absolute living-area difference, or a sentinel that
// sorts missing-sqft candidates last among otherwise-equal peers.
func sqftDelta(subject *property.SubjectProperty, c *property.ComparableCandidate) int {
	if subject.Features.LivingAreaSqFt == nil || c.Features.LivingAreaSqFt == nil {
		return math.MaxInt32
	}
	d := *subject.Features.LivingAreaSqFt - *c.Features.LivingAreaSqFt
	if d < 0 {
		d = -d
	}
	return d
}
