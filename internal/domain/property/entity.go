// Package property defines the property inventory entities consumed by the
// valuation engine: the subject property being valued and the sold/active
// listings that serve as comparable candidates.
//
// Attribute fields that are routinely absent from MLS feeds (bedrooms, living
// area, lot size, year built, garage) are pointers.  A nil pointer means
// "unknown" and is handled explicitly by the adjustment calculator — it is
// never coerced to zero.
package property

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// Type classifies a property at the coarse level.
type Type string

const (
	TypeSingleFamily Type = "single_family"
	TypeCondo        Type = "condo"
	TypeTownhouse    Type = "townhouse"
	TypeMultiFamily  Type = "multi_family"
	TypeLand         Type = "land"
)

// ListingStatus is the market state of a comparable candidate.
type ListingStatus string

const (
	StatusSold    ListingStatus = "sold"
	StatusActive  ListingStatus = "active"
	StatusPending ListingStatus = "pending"
)

// Features holds the physical attributes shared by subjects and comparables.
// All fields are optional; Validate rejects malformed values but never
// requires presence.
type Features struct {
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	LivingAreaSqFt *int     `json:"living_area_sqft,omitempty"`
	LotSizeSqFt    *int     `json:"lot_size_sqft,omitempty"`
	YearBuilt      *int     `json:"year_built,omitempty"`
	GarageSpaces   *int     `json:"garage_spaces,omitempty"`
}

// Validate rejects structurally impossible attribute values.  Missing values
// are fine; negative ones are not.
func (f Features) Validate() error {
	if f.Bedrooms != nil && *f.Bedrooms < 0 {
		return errors.Validation("bedrooms cannot be negative")
	}
	if f.Bathrooms != nil && *f.Bathrooms < 0 {
		return errors.Validation("bathrooms cannot be negative")
	}
	if f.LivingAreaSqFt != nil && *f.LivingAreaSqFt <= 0 {
		return errors.Validation("living area must be positive when present")
	}
	if f.LotSizeSqFt != nil && *f.LotSizeSqFt <= 0 {
		return errors.Validation("lot size must be positive when present")
	}
	if f.YearBuilt != nil && (*f.YearBuilt < 1800 || *f.YearBuilt > time.Now().Year()+1) {
		return errors.Validation("year built out of range")
	}
	if f.GarageSpaces != nil && *f.GarageSpaces < 0 {
		return errors.Validation("garage spaces cannot be negative")
	}
	return nil
}

// SubjectProperty is the property being valued.  It is an immutable input to
// a valuation run; user-supplied overrides are applied with ApplyOverrides,
// which returns a copy.
type SubjectProperty struct {
	ID              common.ID        `json:"id"`
	Address         string           `json:"address"`
	City            string           `json:"city"`
	State           string           `json:"state"`
	Zip             string           `json:"zip"`
	Location        common.LatLng    `json:"location"`
	PropertyType    Type             `json:"property_type"`
	PropertySubType string           `json:"property_sub_type,omitempty"`
	Features        Features         `json:"features"`
	ListPrice       *decimal.Decimal `json:"list_price,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks the subject for malformed input before a valuation run.
func (s *SubjectProperty) Validate() error {
	if s.ID == "" {
		return errors.Validation("subject property id is required")
	}
	if s.Location.IsZero() {
		return errors.Validation("subject property location is required")
	}
	if s.PropertyType == "" {
		return errors.Validation("subject property type is required")
	}
	if s.ListPrice != nil && s.ListPrice.Sign() <= 0 {
		return errors.Validation("list price must be positive when present")
	}
	return s.Features.Validate()
}

// Overrides carries user-supplied attribute corrections applied on top of the
// inventory record for a single valuation run.  Nil fields leave the
// underlying attribute untouched.
type Overrides struct {
	Bedrooms       *int     `json:"bedrooms,omitempty"`
	Bathrooms      *float64 `json:"bathrooms,omitempty"`
	LivingAreaSqFt *int     `json:"living_area_sqft,omitempty"`
	LotSizeSqFt    *int     `json:"lot_size_sqft,omitempty"`
	YearBuilt      *int     `json:"year_built,omitempty"`
	GarageSpaces   *int     `json:"garage_spaces,omitempty"`
}

// IsZero reports whether no override is set.
func (o Overrides) IsZero() bool {
	return o.Bedrooms == nil && o.Bathrooms == nil && o.LivingAreaSqFt == nil &&
		o.LotSizeSqFt == nil && o.YearBuilt == nil && o.GarageSpaces == nil
}

// ApplyOverrides returns a copy of the subject with non-nil override fields
// replacing the inventory values.  The receiver is not mutated.
func (s *SubjectProperty) ApplyOverrides(o Overrides) *SubjectProperty {
	out := *s
	if o.Bedrooms != nil {
		out.Features.Bedrooms = o.Bedrooms
	}
	if o.Bathrooms != nil {
		out.Features.Bathrooms = o.Bathrooms
	}
	if o.LivingAreaSqFt != nil {
		out.Features.LivingAreaSqFt = o.LivingAreaSqFt
	}
	if o.LotSizeSqFt != nil {
		out.Features.LotSizeSqFt = o.LotSizeSqFt
	}
	if o.YearBuilt != nil {
		out.Features.YearBuilt = o.YearBuilt
	}
	if o.GarageSpaces != nil {
		out.Features.GarageSpaces = o.GarageSpaces
	}
	return &out
}

// ComparableCandidate is a sold or active listing pulled from the market
// area.  For active listings ClosePrice/CloseDate carry the list price and
// list date; DaysOnMarket is the market time either way.
type ComparableCandidate struct {
	ID              common.ID       `json:"id"`
	MLSNumber       string          `json:"mls_number,omitempty"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	Zip             string          `json:"zip"`
	Location        common.LatLng   `json:"location"`
	PropertyType    Type            `json:"property_type"`
	PropertySubType string          `json:"property_sub_type,omitempty"`
	Features        Features        `json:"features"`
	Status          ListingStatus   `json:"status"`
	ClosePrice      decimal.Decimal `json:"close_price"`
	CloseDate       time.Time       `json:"close_date"`
	DaysOnMarket    *int            `json:"days_on_market,omitempty"`

	// DistanceMiles is computed against the subject during selection; it is
	// zero until then.
	DistanceMiles float64 `json:"distance_miles"`
}

// Validate checks a candidate for malformed numeric input.  Missing optional
// attributes are expected and pass; impossible values are hard errors.
func (c *ComparableCandidate) Validate() error {
	if c.ID == "" {
		return errors.Validation("comparable candidate id is required")
	}
	if c.ClosePrice.Sign() <= 0 {
		return errors.Validation("comparable close price must be positive").
			WithDetail("id=" + string(c.ID))
	}
	if c.CloseDate.IsZero() {
		return errors.Validation("comparable close date is required").
			WithDetail("id=" + string(c.ID))
	}
	if c.DaysOnMarket != nil && *c.DaysOnMarket < 0 {
		return errors.Validation("days on market cannot be negative")
	}
	return c.Features.Validate()
}
