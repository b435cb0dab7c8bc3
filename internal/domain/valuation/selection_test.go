package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/types/common"
)

func TestSelectComparables_ProgressiveRadiusWidening(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -3, 0)

	// One comp inside 0.5mi, one more inside 1mi, two more inside 3mi.
	// MinComparables=3 forces widening past the first two steps.
	pool := []*property.ComparableCandidate{
		candAt("near", 0.3, 250000, closed),
		candAt("mid", 0.8, 252000, closed),
		candAt("far1", 2.0, 255000, closed),
		candAt("far2", 2.5, 249000, closed),
	}

	got := e.SelectComparables(subject, pool, SelectionFilters{})
	require.Len(t, got, 4)
	assert.Equal(t, "near", string(got[0].ID))
	assert.InDelta(t, 0.3, got[0].DistanceMiles, 0.05)
}

func TestSelectComparables_StopsAtFirstSatisfiedRadius(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -3, 0)

	pool := []*property.ComparableCandidate{
		candAt("a", 0.1, 250000, closed),
		candAt("b", 0.2, 252000, closed),
		candAt("c", 0.3, 255000, closed),
		candAt("distant", 2.9, 200000, closed),
	}

	got := e.SelectComparables(subject, pool, SelectionFilters{})
	require.Len(t, got, 3)
	for _, c := range got {
		assert.NotEqual(t, "distant", string(c.ID))
	}
}

func TestSelectComparables_DeterministicOrdering(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	newer := testAsOf.AddDate(0, -1, 0)
	older := testAsOf.AddDate(0, -5, 0)

	samePlaceNewer := candAt("z-newer", 0.2, 250000, newer)
	samePlaceOlder := candAt("a-older", 0.2, 250000, older)
	closest := candAt("closest", 0.1, 250000, older)
	// Same spot and date as samePlaceNewer but worse sqft match; ID breaks
	// the final tie deterministically.
	sizeMismatch := candAt("y-big", 0.2, 250000, newer)
	sizeMismatch.Features.LivingAreaSqFt = intp(2400)

	pool := []*property.ComparableCandidate{samePlaceOlder, sizeMismatch, samePlaceNewer, closest}

	got := e.SelectComparables(subject, pool, SelectionFilters{})
	require.Len(t, got, 4)
	assert.Equal(t, "closest", string(got[0].ID)) // distance first
	assert.Equal(t, "z-newer", string(got[1].ID)) // then recency, then sqft delta
	assert.Equal(t, "y-big", string(got[2].ID))
	assert.Equal(t, "a-older", string(got[3].ID))
}

func TestSelectComparables_Filters(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -3, 0)

	condo := candAt("condo", 0.1, 250000, closed)
	condo.PropertyType = property.TypeCondo
	cheap := candAt("cheap", 0.2, 80000, closed)
	stale := candAt("stale", 0.3, 250000, testAsOf.AddDate(-2, 0, 0))
	keeper := candAt("keeper", 0.4, 250000, closed)

	pt := property.TypeSingleFamily
	minPrice := decimal.NewFromInt(100000)
	soldAfter := testAsOf.AddDate(-1, 0, 0)
	got := e.SelectComparables(subject, []*property.ComparableCandidate{condo, cheap, stale, keeper}, SelectionFilters{
		PropertyType: &pt,
		MinPrice:     &minPrice,
		SoldAfter:    &soldAfter,
	})
	require.Len(t, got, 1)
	assert.Equal(t, "keeper", string(got[0].ID))
}

func TestSelectComparables_DropsCoordinatelessCandidates(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -3, 0)

	// A comp with no coordinates would otherwise compute distance zero and
	// outrank every located comp.
	unlocated := candAt("unlocated", 0.1, 250000, closed)
	unlocated.Location = common.LatLng{}

	pool := []*property.ComparableCandidate{
		unlocated,
		candAt("a", 0.2, 250000, closed),
		candAt("b", 0.3, 252000, closed),
		candAt("c", 0.4, 255000, closed),
	}

	got := e.SelectComparables(subject, pool, SelectionFilters{})
	require.Len(t, got, 3)
	assert.Equal(t, "a", string(got[0].ID))
	for _, c := range got {
		assert.NotEqual(t, "unlocated", string(c.ID))
	}
}

func TestSelectComparables_MaxCapAndEmptyPool(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -3, 0)

	var pool []*property.ComparableCandidate
	for i := 0; i < 15; i++ {
		pool = append(pool, candAt(string(rune('a'+i)), 0.1+float64(i)*0.01, 250000, closed))
	}
	got := e.SelectComparables(subject, pool, SelectionFilters{})
	assert.Len(t, got, e.Policy().Selection.MaxComparables)

	assert.Empty(t, e.SelectComparables(subject, nil, SelectionFilters{}))
}

func TestSelectComparables_DoesNotMutatePool(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	c := candAt("c1", 0.5, 250000, testAsOf.AddDate(0, -3, 0))

	got := e.SelectComparables(subject, []*property.ComparableCandidate{c}, SelectionFilters{})
	require.Len(t, got, 1)
	assert.NotZero(t, got[0].DistanceMiles)
	assert.Zero(t, c.DistanceMiles, "selection must work on copies")
}
