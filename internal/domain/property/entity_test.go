package property

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func validSubject() *SubjectProperty {
	return &SubjectProperty{
		ID:           common.NewID(),
		Address:      "812 Hemphill St",
		City:         "Fort Worth",
		State:        "TX",
		Zip:          "76104",
		Location:     common.LatLng{Lat: 32.7254, Lng: -97.3307},
		PropertyType: TypeSingleFamily,
		Features: Features{
			Bedrooms:       intp(3),
			Bathrooms:      floatp(2),
			LivingAreaSqFt: intp(1650),
			YearBuilt:      intp(1962),
		},
	}
}

func TestSubjectProperty_Validate(t *testing.T) {
	s := validSubject()
	require.NoError(t, s.Validate())

	missing := validSubject()
	missing.Location = common.LatLng{}
	assert.True(t, errors.IsValidation(missing.Validate()))

	negative := validSubject()
	negative.Features.LivingAreaSqFt = intp(-100)
	assert.True(t, errors.IsValidation(negative.Validate()))

	badPrice := validSubject()
	zero := decimal.Zero
	badPrice.ListPrice = &zero
	assert.True(t, errors.IsValidation(badPrice.Validate()))
}

func TestFeatures_Validate_MissingIsFine(t *testing.T) {
	assert.NoError(t, Features{}.Validate())
}

func TestApplyOverrides_CopiesWithoutMutating(t *testing.T) {
	s := validSubject()
	out := s.ApplyOverrides(Overrides{Bedrooms: intp(4), LivingAreaSqFt: intp(1900)})

	assert.Equal(t, 4, *out.Features.Bedrooms)
	assert.Equal(t, 1900, *out.Features.LivingAreaSqFt)
	// untouched fields carried over
	assert.Equal(t, 1962, *out.Features.YearBuilt)
	// original unchanged
	assert.Equal(t, 3, *s.Features.Bedrooms)
	assert.Equal(t, 1650, *s.Features.LivingAreaSqFt)
}

func TestOverrides_IsZero(t *testing.T) {
	assert.True(t, Overrides{}.IsZero())
	assert.False(t, Overrides{GarageSpaces: intp(2)}.IsZero())
}

func TestComparableCandidate_Validate(t *testing.T) {
	c := &ComparableCandidate{
		ID:         common.NewID(),
		Location:   common.LatLng{Lat: 32.72, Lng: -97.33},
		Status:     StatusSold,
		ClosePrice: decimal.NewFromInt(250000),
		CloseDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Validate())

	c2 := *c
	c2.ClosePrice = decimal.NewFromInt(-1)
	assert.True(t, errors.IsValidation(c2.Validate()))

	c3 := *c
	c3.CloseDate = time.Time{}
	assert.True(t, errors.IsValidation(c3.Validate()))

	c4 := *c
	c4.DaysOnMarket = intp(-5)
	assert.True(t, errors.IsValidation(c4.Validate()))
}

func TestDistanceMiles(t *testing.T) {
	// Fort Worth downtown to Arlington: roughly 12 miles.
	fw := common.LatLng{Lat: 32.7555, Lng: -97.3308}
	arl := common.LatLng{Lat: 32.7357, Lng: -97.1081}
	d := DistanceMiles(fw, arl)
	assert.InDelta(t, 12.9, d, 1.0)

	// Identity and missing-coordinate guard.
	assert.Equal(t, 0.0, DistanceMiles(fw, fw))
	assert.Equal(t, 0.0, DistanceMiles(fw, common.LatLng{}))
}

func TestMarketCell_StableAndLocal(t *testing.T) {
	a := common.LatLng{Lat: 32.7254, Lng: -97.3307}
	b := common.LatLng{Lat: 32.7255, Lng: -97.3308} // ~15 meters away
	far := common.LatLng{Lat: 29.7604, Lng: -95.3698}

	assert.Equal(t, MarketCell(a), MarketCell(b))
	assert.NotEqual(t, MarketCell(a), MarketCell(far))
	assert.Empty(t, MarketCell(common.LatLng{}))
}

func TestBoundingBox_ContainsCenterAndRadius(t *testing.T) {
	center := common.LatLng{Lat: 32.7254, Lng: -97.3307}
	latMin, latMax, lngMin, lngMax := BoundingBox(center, 1.0)

	assert.Less(t, latMin, center.Lat)
	assert.Greater(t, latMax, center.Lat)
	assert.Less(t, lngMin, center.Lng)
	assert.Greater(t, lngMax, center.Lng)

	// A point just inside 1 mile due north must fall inside the box.
	north := common.LatLng{Lat: center.Lat + 0.0144, Lng: center.Lng}
	assert.GreaterOrEqual(t, north.Lat, latMin)
	assert.LessOrEqual(t, north.Lat, latMax)
}
