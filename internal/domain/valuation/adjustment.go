package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/errors"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// ComputeAdjustments derives the per-dimension dollar corrections for one
// comparable against the subject.
//
// Each dimension where both sides carry a value contributes a signed amount
// of (subject − comparable) × per-unit rate, clamped to ±MaxDimensionPct of
// the comparable's close price.  A dimension missing on either side is
// skipped and recorded in Skipped — missing MLS data is expected and must
// not read as "equal to zero".  Amounts are rounded to cents; the adjusted
// price is the close price plus the exact sum of the rounded amounts.
func (e *Engine) ComputeAdjustments(subject *property.SubjectProperty, c *property.ComparableCandidate) (*AdjustmentResult, error) {
	if err := subject.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValuationInput, "invalid subject")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValuationInput, "invalid comparable")
	}

	res := &AdjustmentResult{}
	cap := c.ClosePrice.Mul(e.policy.Rates.MaxDimensionPct)

	addInt := func(dim Dimension, subj, cand *int, unit decimal.Decimal, scale decimal.Decimal, unitLabel string) {
		if subj == nil || cand == nil {
			res.Skipped = append(res.Skipped, dim)
			return
		}
		delta := decimal.NewFromInt(int64(*subj - *cand))
		raw := delta.Div(scale).Mul(unit)
		res.add(clampAdjustment(dim, raw, cap,
			fmt.Sprintf("%d vs %d %s @ $%s per %s", *subj, *cand, unitLabel, unit.StringFixed(0), unitLabel)))
	}

	addInt(DimBedrooms, subject.Features.Bedrooms, c.Features.Bedrooms, e.policy.Rates.PerBedroom, decimal.NewFromInt(1), "bd")

	if subject.Features.Bathrooms == nil || c.Features.Bathrooms == nil {
		res.Skipped = append(res.Skipped, DimBathrooms)
	} else {
		delta := decimal.NewFromFloat(*subject.Features.Bathrooms - *c.Features.Bathrooms)
		raw := delta.Mul(e.policy.Rates.PerFullBath)
		res.add(clampAdjustment(DimBathrooms, raw, cap,
			fmt.Sprintf("%.1f vs %.1f ba @ $%s per bath", *subject.Features.Bathrooms, *c.Features.Bathrooms, e.policy.Rates.PerFullBath.StringFixed(0))))
	}

	addInt(DimLivingArea, subject.Features.LivingAreaSqFt, c.Features.LivingAreaSqFt, e.policy.Rates.PerHundredSqFt, hundred, "sqft")
	addInt(DimLotSize, subject.Features.LotSizeSqFt, c.Features.LotSizeSqFt, e.policy.Rates.PerThousandLotSqFt, thousand, "lot sqft")
	addInt(DimYearBuilt, subject.Features.YearBuilt, c.Features.YearBuilt, e.policy.Rates.PerYearBuilt, decimal.NewFromInt(1), "yr")
	addInt(DimGarage, subject.Features.GarageSpaces, c.Features.GarageSpaces, e.policy.Rates.PerGarageSpace, decimal.NewFromInt(1), "garage")

	res.AdjustedPrice = c.ClosePrice.Add(res.Total)
	return res, nil
}

func (r *AdjustmentResult) add(a Adjustment) {
	r.Adjustments = append(r.Adjustments, a)
	r.Total = r.Total.Add(a.Amount)
}

// clampAdjustment rounds the raw amount to cents and caps its magnitude at
// the per-dimension limit, preserving sign.
func clampAdjustment(dim Dimension, raw, cap decimal.Decimal, rule string) Adjustment {
	amount := raw.Round(2)
	clamped := false
	if amount.Abs().GreaterThan(cap) {
		clamped = true
		if amount.Sign() < 0 {
			amount = cap.Neg()
		} else {
			amount = cap
		}
		amount = amount.Round(2)
	}
	return Adjustment{Dimension: dim, Amount: amount, Rule: rule, Clamped: clamped}
}
