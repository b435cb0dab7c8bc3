// Package market defines the market snapshot entity: a periodic, per-area
// capture of sale trends (median price, days on market, months of supply)
// that feeds the deal-scoring engine's market rubric.
package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// TrendDirection summarizes the recent price movement of a market area.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFlat    TrendDirection = "flat"
	TrendFalling TrendDirection = "falling"
)

// Snapshot is one periodic capture of market conditions for a city/zip
// area.  Snapshots are append-only; a new capture never mutates an old one.
type Snapshot struct {
	ID                 common.ID       `json:"id"`
	City               string          `json:"city"`
	Zip                string          `json:"zip,omitempty"`
	MedianSalePrice    decimal.Decimal `json:"median_sale_price"`
	MedianPricePerSqFt decimal.Decimal `json:"median_price_per_sqft"`
	AvgDaysOnMarket    float64         `json:"avg_days_on_market"`
	MonthsOfSupply     float64         `json:"months_of_supply"`
	SalesCount         int             `json:"sales_count"`
	// TrendPct is the trailing three-month median price change as a decimal
	// fraction (0.03 = +3%).
	TrendPct   float64   `json:"trend_pct"`
	CapturedAt time.Time `json:"captured_at"`
}

// Validate rejects malformed snapshot values.
func (s *Snapshot) Validate() error {
	if s.City == "" {
		return errors.Validation("snapshot city is required")
	}
	if s.MedianSalePrice.Sign() < 0 {
		return errors.Validation("median sale price cannot be negative")
	}
	if s.AvgDaysOnMarket < 0 {
		return errors.Validation("avg days on market cannot be negative")
	}
	if s.MonthsOfSupply < 0 {
		return errors.Validation("months of supply cannot be negative")
	}
	if s.CapturedAt.IsZero() {
		return errors.Validation("captured_at is required")
	}
	return nil
}

// Trend derives the direction bucket from TrendPct.  Movements inside
// ±1% are reported flat.
func (s *Snapshot) Trend() TrendDirection {
	switch {
	case s.TrendPct > 0.01:
		return TrendRising
	case s.TrendPct < -0.01:
		return TrendFalling
	default:
		return TrendFlat
	}
}

// StaleAfter reports whether the snapshot is older than maxAge at the given
// reference time.
func (s *Snapshot) StaleAfter(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CapturedAt) > maxAge
}

// Repository is the persistence contract for market snapshots.
type Repository interface {
	// Latest returns the most recent snapshot for a city, preferring an
	// exact zip match when zip is non-empty.
	Latest(ctx context.Context, city, zip string) (*Snapshot, error)

	// Insert appends a new capture.  Existing snapshots are never updated.
	Insert(ctx context.Context, s *Snapshot) error

	// History lists captures for a city, newest first.
	History(ctx context.Context, city string, limit int) ([]*Snapshot, error)
}
