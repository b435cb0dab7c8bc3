package valuation

import (
	"time"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/errors"
)

// Engine runs the valuation pipeline.  It holds only the numeric policy —
// no I/O, no mutable state — so a single instance is safe for concurrent
// runs across goroutines.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and returns an engine bound to it.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the numeric policy the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

// Run executes the full pipeline for one subject: select comparables from
// the pool, adjust and score each one, then aggregate into an estimate.
// Every returned comparable starts with IsSelected=true; callers toggle the
// flag and re-aggregate when the user excludes a comp.
func (e *Engine) Run(subject *property.SubjectProperty, pool []*property.ComparableCandidate, filters SelectionFilters, asOf time.Time) ([]*ScoredComparable, *ValuationEstimate, error) {
	if subject == nil {
		return nil, nil, errors.New(errors.ErrCodeValuationInput, "subject property is required")
	}
	if err := subject.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeValuationInput, "invalid subject")
	}

	candidates := e.SelectComparables(subject, pool, filters)

	scored := make([]*ScoredComparable, 0, len(candidates))
	for _, c := range candidates {
		adj, err := e.ComputeAdjustments(subject, c)
		if err != nil {
			return nil, nil, err
		}
		score, breakdown := e.ScoreComparable(subject, c, asOf)
		scored = append(scored, &ScoredComparable{
			Comparable:         *c,
			Adjustments:        adj.Adjustments,
			SkippedDimensions:  adj.Skipped,
			AdjustmentTotal:    adj.Total,
			AdjustedPrice:      adj.AdjustedPrice,
			ComparabilityScore: score,
			ComparabilityGrade: e.policy.Grades.Grade(score),
			ScoreBreakdown:     breakdown,
			Weight:             WeightForScore(score),
			IsSelected:         true,
		})
	}

	return scored, e.Aggregate(scored, asOf), nil
}
