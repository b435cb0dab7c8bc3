package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// One degree of latitude is about 69 miles, so this offset is ~1 mile due
// north.
const oneMileLat = 1.0 / 69.0

var testAsOf = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func testSubject() *property.SubjectProperty {
	return &property.SubjectProperty{
		ID:              common.NewID(),
		Address:         "812 Hemphill St",
		City:            "Fort Worth",
		State:           "TX",
		Zip:             "76104",
		Location:        common.LatLng{Lat: 32.7254, Lng: -97.3307},
		PropertyType:    property.TypeSingleFamily,
		PropertySubType: "Single Family Residence",
		Features: property.Features{
			Bedrooms:       intp(3),
			Bathrooms:      floatp(2),
			LivingAreaSqFt: intp(1650),
			YearBuilt:      intp(1962),
		},
	}
}

func candAt(id string, milesNorth float64, price int64, closed time.Time) *property.ComparableCandidate {
	return &property.ComparableCandidate{
		ID:              common.ID(id),
		Location:        common.LatLng{Lat: 32.7254 + milesNorth*oneMileLat, Lng: -97.3307},
		PropertyType:    property.TypeSingleFamily,
		PropertySubType: "Single Family Residence",
		Status:          property.StatusSold,
		ClosePrice:      decimal.NewFromInt(price),
		CloseDate:       closed,
		Features: property.Features{
			Bedrooms:       intp(3),
			Bathrooms:      floatp(2),
			LivingAreaSqFt: intp(1650),
			YearBuilt:      intp(1962),
		},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPolicy())
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsBadPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.Scoring.DistanceWeight = 0.9 // weights no longer sum to 1
	_, err := NewEngine(p)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.Rates.MaxDimensionPct = decimal.Zero
	_, err = NewEngine(p)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.Selection.RadiusStepsMiles = []float64{1, 1}
	_, err = NewEngine(p)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.Grades = GradeBands{A: 60, B: 75, C: 50, D: 40}
	_, err = NewEngine(p)
	assert.Error(t, err)
}

func TestEngine_Run_EndToEnd(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	closed := testAsOf.AddDate(0, -2, 0)

	pool := []*property.ComparableCandidate{
		candAt("c1", 0.2, 255000, closed),
		candAt("c2", 0.3, 248000, closed.AddDate(0, -1, 0)),
		candAt("c3", 0.4, 262000, closed),
	}
	// Make c2 differ so it picks up adjustments.
	pool[1].Features.Bedrooms = intp(2)
	pool[1].Features.LivingAreaSqFt = intp(1500)

	scored, est, err := e.Run(subject, pool, SelectionFilters{}, testAsOf)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	for _, sc := range scored {
		assert.True(t, sc.IsSelected)
		// Exact identity, not approximate: adjusted = close + sum(amounts).
		sum := decimal.Zero
		for _, a := range sc.Adjustments {
			sum = sum.Add(a.Amount)
		}
		assert.True(t, sc.AdjustedPrice.Equal(sc.Comparable.ClosePrice.Add(sum)),
			"adjusted price identity broken for %s", sc.Comparable.ID)
		assert.Equal(t, sc.AdjustmentTotal, sum)
		assert.Equal(t, e.Policy().Grades.Grade(sc.ComparabilityScore), sc.ComparabilityGrade)
	}

	require.NotNil(t, est.Mid)
	assert.True(t, est.Low.LessThanOrEqual(*est.Mid))
	assert.True(t, est.Mid.LessThanOrEqual(*est.High))
	assert.Equal(t, 3, est.ComparablesCount)
	assert.NotEqual(t, ConfidenceNone, est.ConfidenceLevel)
}

func TestEngine_Run_RejectsInvalidSubject(t *testing.T) {
	e := testEngine(t)
	subject := testSubject()
	subject.Features.LivingAreaSqFt = intp(-1)

	_, _, err := e.Run(subject, nil, SelectionFilters{}, testAsOf)
	assert.Error(t, err)
}

func TestEngine_Run_EmptyPool(t *testing.T) {
	e := testEngine(t)

	scored, est, err := e.Run(testSubject(), nil, SelectionFilters{}, testAsOf)
	require.NoError(t, err)
	assert.Empty(t, scored)
	assert.Equal(t, ConfidenceNone, est.ConfidenceLevel)
	assert.Nil(t, est.Mid)
}
