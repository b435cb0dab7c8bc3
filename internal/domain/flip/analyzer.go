package flip

import (
	"github.com/propsignal/propsignal/pkg/errors"
)

// Analyzer runs the flip financial model and deal scoring.  It holds only
// the numeric policy and is safe for concurrent use.
type Analyzer struct {
	policy Policy
}

// NewAnalyzer validates the policy and returns an analyzer bound to it.
func NewAnalyzer(policy Policy) (*Analyzer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{policy: policy}, nil
}

// Policy returns the policy the analyzer was built with.
func (a *Analyzer) Policy() Policy { return a.policy }

// Analyze prices the deal and scores it in one pass.  The ARV comes from
// the valuation estimate in ctx; a missing estimate is a validation error
// because the model has nothing to price against.
func (a *Analyzer) Analyze(in FinancialInputs, ctx DealContext) (*FinancialModel, *CompositeScore, error) {
	arv, ok := ctx.Estimate.ARV()
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeFinancialInput, "no valuation estimate to derive ARV from")
	}
	m, err := a.ComputeFinancials(in, arv)
	if err != nil {
		return nil, nil, err
	}
	return m, a.ScoreDeal(m, ctx), nil
}
