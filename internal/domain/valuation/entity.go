// Package valuation implements the comparable valuation engine: selecting
// comparable sales for a subject property, computing per-dimension dollar
// adjustments, scoring comparability, and aggregating adjusted prices into a
// low/mid/high estimate band with a confidence level.
//
// Every function in this package is deterministic and side-effect free.  All
// inputs (subject, candidate pool, policy, reference time) arrive as
// arguments; persistence and transport are the caller's concern.  Dollar
// amounts are decimal throughout; floats appear only in scores and weights.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
)

// Dimension names one adjustable feature axis between a subject and a
// comparable.
type Dimension string

const (
	DimBedrooms   Dimension = "bedrooms"
	DimBathrooms  Dimension = "bathrooms"
	DimLivingArea Dimension = "living_area"
	DimLotSize    Dimension = "lot_size"
	DimYearBuilt  Dimension = "year_built"
	DimGarage     Dimension = "garage"
)

// Adjustment is one signed dollar correction applied to a comparable's close
// price to account for a feature difference against the subject.  A positive
// amount means the subject is superior on this dimension, so the comparable's
// price is adjusted upward.
type Adjustment struct {
	Dimension Dimension       `json:"dimension"`
	Amount    decimal.Decimal `json:"amount"`
	// Rule describes the arithmetic that produced the amount, for display in
	// the report ("3 bd vs 2 bd @ $15000/bd").
	Rule string `json:"rule"`
	// Clamped is set when the raw amount exceeded the per-dimension cap and
	// was trimmed to it.
	Clamped bool `json:"clamped,omitempty"`
}

// AdjustmentResult bundles the adjustments computed for one comparable.
// Dimensions that could not be evaluated because either side is missing the
// attribute are listed in Skipped rather than silently treated as zero.
type AdjustmentResult struct {
	Adjustments []Adjustment    `json:"adjustments"`
	Skipped     []Dimension     `json:"skipped,omitempty"`
	Total       decimal.Decimal `json:"total"`
	// AdjustedPrice = close price + Total, exactly.
	AdjustedPrice decimal.Decimal `json:"adjusted_price"`
}

// Grade is the letter band a comparability or deal score falls into.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ScoreBreakdown exposes the weighted components behind a comparability
// score, for report display.
type ScoreBreakdown struct {
	Distance  float64 `json:"distance"`
	Recency   float64 `json:"recency"`
	Size      float64 `json:"size"`
	TypeMatch float64 `json:"type_match"`
}

// ScoredComparable is a candidate that survived selection, carrying its
// adjustments, comparability score, and aggregation weight.  It is computed
// once per valuation run and persisted as a child of the report; only the
// user-toggleable flags change afterward.
type ScoredComparable struct {
	Comparable property.ComparableCandidate `json:"comparable"`

	Adjustments       []Adjustment    `json:"adjustments"`
	SkippedDimensions []Dimension     `json:"skipped_dimensions,omitempty"`
	AdjustmentTotal   decimal.Decimal `json:"adjustment_total"`
	AdjustedPrice     decimal.Decimal `json:"adjusted_price"`

	ComparabilityScore float64        `json:"comparability_score"`
	ComparabilityGrade Grade          `json:"comparability_grade"`
	ScoreBreakdown     ScoreBreakdown `json:"score_breakdown"`
	Weight             float64        `json:"weight"`

	IsSelected   bool `json:"is_selected"`
	IsRenovated  bool `json:"is_renovated"`
	IsDistressed bool `json:"is_distressed"`
}

// ConfidenceLevel buckets a confidence score for display.
type ConfidenceLevel string

const (
	ConfidenceNone   ConfidenceLevel = "none"
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ValuationEstimate is the aggregate output of a run.  The band pointers are
// nil in the zero-comparable case; otherwise Low <= Mid <= High always holds.
type ValuationEstimate struct {
	Low  *decimal.Decimal `json:"low"`
	Mid  *decimal.Decimal `json:"mid"`
	High *decimal.Decimal `json:"high"`

	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`

	AvgPricePerSqFt  *decimal.Decimal `json:"avg_price_per_sqft"`
	ComparablesCount int              `json:"comparables_count"`

	ComputedAt time.Time `json:"computed_at"`
}

// ARV returns the mid estimate as the after-repair value input for flip
// modeling, or false when no estimate exists.
func (e *ValuationEstimate) ARV() (decimal.Decimal, bool) {
	if e == nil || e.Mid == nil {
		return decimal.Zero, false
	}
	return *e.Mid, true
}
