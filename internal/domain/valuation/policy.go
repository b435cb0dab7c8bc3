package valuation

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Numeric policy
//
// Every tunable constant the engine consumes lives here, in one injected
// struct, so the business policy is auditable and testable separately from
// the arithmetic that applies it.  The defaults are starting-point values for
// a mid-priced US metro; operators override them through configuration.
// ─────────────────────────────────────────────────────────────────────────────

// AdjustmentRates holds the per-unit dollar values used by the adjustment
// calculator, plus the per-dimension clamp.
type AdjustmentRates struct {
	PerBedroom         decimal.Decimal `json:"per_bedroom" mapstructure:"per_bedroom"`
	PerFullBath        decimal.Decimal `json:"per_full_bath" mapstructure:"per_full_bath"`
	PerHundredSqFt     decimal.Decimal `json:"per_hundred_sqft" mapstructure:"per_hundred_sqft"`
	PerThousandLotSqFt decimal.Decimal `json:"per_thousand_lot_sqft" mapstructure:"per_thousand_lot_sqft"`
	PerYearBuilt       decimal.Decimal `json:"per_year_built" mapstructure:"per_year_built"`
	PerGarageSpace     decimal.Decimal `json:"per_garage_space" mapstructure:"per_garage_space"`

	// MaxDimensionPct caps each single dimension's adjustment at this
	// fraction of the comparable's close price, sign preserved.  Keeps one
	// outlier feature from swinging the adjusted price pathologically.
	MaxDimensionPct decimal.Decimal `json:"max_dimension_pct" mapstructure:"max_dimension_pct"`
}

// ScoringPolicy drives the 0-100 comparability score.  The four weights must
// sum to 1; the ceilings define where each component bottoms out at zero.
type ScoringPolicy struct {
	DistanceWeight  float64 `json:"distance_weight" mapstructure:"distance_weight"`
	RecencyWeight   float64 `json:"recency_weight" mapstructure:"recency_weight"`
	SizeWeight      float64 `json:"size_weight" mapstructure:"size_weight"`
	TypeMatchWeight float64 `json:"type_match_weight" mapstructure:"type_match_weight"`

	// DistanceCeilingMiles is the distance at which the distance component
	// reaches zero.
	DistanceCeilingMiles float64 `json:"distance_ceiling_miles" mapstructure:"distance_ceiling_miles"`
	// RecencyCeilingDays is the sale age at which the recency component
	// reaches zero.
	RecencyCeilingDays float64 `json:"recency_ceiling_days" mapstructure:"recency_ceiling_days"`
	// SizeDeltaCeilingPct is the relative living-area delta at which the
	// size component reaches zero (0.5 = a comp half again the subject's
	// size scores zero on size).
	SizeDeltaCeilingPct float64 `json:"size_delta_ceiling_pct" mapstructure:"size_delta_ceiling_pct"`
}

// SelectionPolicy controls comparable selection.
type SelectionPolicy struct {
	// RadiusStepsMiles is the progressive widening sequence.  Each radius is
	// tried in order until MinComparables candidates fall inside; when the
	// last step still comes up short the search goes citywide (the whole
	// supplied pool).
	RadiusStepsMiles []float64 `json:"radius_steps_miles" mapstructure:"radius_steps_miles"`
	MinComparables   int       `json:"min_comparables" mapstructure:"min_comparables"`
	MaxComparables   int       `json:"max_comparables" mapstructure:"max_comparables"`
}

// ConfidencePolicy controls the confidence score and its level banding.
type ConfidencePolicy struct {
	// The three weights must sum to 1.
	CountWeight    float64 `json:"count_weight" mapstructure:"count_weight"`
	ScoreWeight    float64 `json:"score_weight" mapstructure:"score_weight"`
	VarianceWeight float64 `json:"variance_weight" mapstructure:"variance_weight"`

	// CountSaturation is the comparable count at which the count component
	// maxes out; more comps beyond it add nothing.
	CountSaturation int `json:"count_saturation" mapstructure:"count_saturation"`
	// CVCeiling is the coefficient of variation (stdev/mean of adjusted
	// prices) at which the variance component reaches zero.
	CVCeiling float64 `json:"cv_ceiling" mapstructure:"cv_ceiling"`

	HighThreshold   float64 `json:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold" mapstructure:"medium_threshold"`
}

// AggregationPolicy controls how the estimate band is derived.
type AggregationPolicy struct {
	// SpreadMultiplier scales the adjusted-price standard deviation into the
	// half-width of the low/high band.  The band additionally widens with
	// fewer comparables (by a 1+1/n factor).
	SpreadMultiplier float64 `json:"spread_multiplier" mapstructure:"spread_multiplier"`
}

// GradeBands maps a 0-100 score to a letter grade.  Cutoffs are inclusive:
// a score of exactly A earns an "A".
type GradeBands struct {
	A float64 `json:"a" mapstructure:"a"`
	B float64 `json:"b" mapstructure:"b"`
	C float64 `json:"c" mapstructure:"c"`
	D float64 `json:"d" mapstructure:"d"`
}

// Grade returns the letter band for a score.
func (g GradeBands) Grade(score float64) Grade {
	switch {
	case score >= g.A:
		return GradeA
	case score >= g.B:
		return GradeB
	case score >= g.C:
		return GradeC
	case score >= g.D:
		return GradeD
	default:
		return GradeF
	}
}

// Policy is the full numeric policy injected into the engine.
type Policy struct {
	Rates       AdjustmentRates   `json:"rates" mapstructure:"rates"`
	Scoring     ScoringPolicy     `json:"scoring" mapstructure:"scoring"`
	Selection   SelectionPolicy   `json:"selection" mapstructure:"selection"`
	Confidence  ConfidencePolicy  `json:"confidence" mapstructure:"confidence"`
	Aggregation AggregationPolicy `json:"aggregation" mapstructure:"aggregation"`
	Grades      GradeBands        `json:"grades" mapstructure:"grades"`
}

// DefaultPolicy returns the baseline numeric policy.
func DefaultPolicy() Policy {
	return Policy{
		Rates: AdjustmentRates{
			PerBedroom:         decimal.NewFromInt(15000),
			PerFullBath:        decimal.NewFromInt(7500),
			PerHundredSqFt:     decimal.NewFromInt(5000),
			PerThousandLotSqFt: decimal.NewFromInt(1000),
			PerYearBuilt:       decimal.NewFromInt(500),
			PerGarageSpace:     decimal.NewFromInt(5000),
			MaxDimensionPct:    decimal.NewFromFloat(0.15),
		},
		Scoring: ScoringPolicy{
			DistanceWeight:       0.35,
			RecencyWeight:        0.25,
			SizeWeight:           0.25,
			TypeMatchWeight:      0.15,
			DistanceCeilingMiles: 3.0,
			RecencyCeilingDays:   365,
			SizeDeltaCeilingPct:  0.5,
		},
		Selection: SelectionPolicy{
			RadiusStepsMiles: []float64{0.5, 1.0, 3.0},
			MinComparables:   3,
			MaxComparables:   10,
		},
		Confidence: ConfidencePolicy{
			CountWeight:     0.30,
			ScoreWeight:     0.50,
			VarianceWeight:  0.20,
			CountSaturation: 8,
			CVCeiling:       0.25,
			HighThreshold:   75,
			MediumThreshold: 50,
		},
		Aggregation: AggregationPolicy{
			SpreadMultiplier: 1.0,
		},
		Grades: GradeBands{A: 90, B: 75, C: 60, D: 40},
	}
}

// Validate rejects a policy the engine cannot run with.
func (p Policy) Validate() error {
	if p.Rates.MaxDimensionPct.Sign() <= 0 || p.Rates.MaxDimensionPct.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New(errors.ErrCodeAdjustmentPolicy, "max_dimension_pct must be in (0, 1]")
	}
	sw := p.Scoring.DistanceWeight + p.Scoring.RecencyWeight + p.Scoring.SizeWeight + p.Scoring.TypeMatchWeight
	if math.Abs(sw-1.0) > 1e-9 {
		return errors.Newf(errors.ErrCodeScoringPolicy, "scoring weights sum to %v, want 1", sw)
	}
	if p.Scoring.DistanceCeilingMiles <= 0 || p.Scoring.RecencyCeilingDays <= 0 || p.Scoring.SizeDeltaCeilingPct <= 0 {
		return errors.New(errors.ErrCodeScoringPolicy, "scoring ceilings must be positive")
	}
	if len(p.Selection.RadiusStepsMiles) == 0 {
		return errors.New(errors.ErrCodeScoringPolicy, "at least one selection radius step is required")
	}
	for i := 1; i < len(p.Selection.RadiusStepsMiles); i++ {
		if p.Selection.RadiusStepsMiles[i] <= p.Selection.RadiusStepsMiles[i-1] {
			return errors.New(errors.ErrCodeScoringPolicy, "selection radius steps must be strictly increasing")
		}
	}
	if p.Selection.MinComparables < 1 || p.Selection.MaxComparables < p.Selection.MinComparables {
		return errors.New(errors.ErrCodeScoringPolicy, "selection comparable bounds are inconsistent")
	}
	cw := p.Confidence.CountWeight + p.Confidence.ScoreWeight + p.Confidence.VarianceWeight
	if math.Abs(cw-1.0) > 1e-9 {
		return errors.Newf(errors.ErrCodeScoringPolicy, "confidence weights sum to %v, want 1", cw)
	}
	if p.Confidence.CountSaturation < 1 || p.Confidence.CVCeiling <= 0 {
		return errors.New(errors.ErrCodeScoringPolicy, "confidence saturation and cv ceiling must be positive")
	}
	if p.Confidence.HighThreshold <= p.Confidence.MediumThreshold {
		return errors.New(errors.ErrCodeScoringPolicy, "confidence high threshold must exceed medium threshold")
	}
	if p.Aggregation.SpreadMultiplier < 0 {
		return errors.New(errors.ErrCodeScoringPolicy, "spread multiplier cannot be negative")
	}
	if !(p.Grades.A > p.Grades.B && p.Grades.B > p.Grades.C && p.Grades.C > p.Grades.D) {
		return errors.New(errors.ErrCodeScoringPolicy, "grade bands must be strictly decreasing A > B > C > D")
	}
	return nil
}
