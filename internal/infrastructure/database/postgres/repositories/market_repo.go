package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// MarketRepository implements market.Repository over the append-only
// market_snapshots table.
type MarketRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewMarketRepository constructs a ready-to-use MarketRepository.
func NewMarketRepository(db queryExecutor, logger logging.Logger) *MarketRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MarketRepository{db: db, logger: logger.Named("market_repo")}
}

const snapshotColumns = `id, city, zip, median_sale_price, median_price_per_sqft,
avg_days_on_market, months_of_supply, sales_count, trend_pct, captured_at`

// Latest returns the most recent snapshot for a city, preferring an exact
// zip match when one exists.
func (r *MarketRepository) Latest(ctx context.Context, city, zip string) (*market.Snapshot, error) {
	if zip != "" {
		s, err := r.scanOne(r.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT %s FROM market_snapshots WHERE city = $1 AND zip = $2 ORDER BY captured_at DESC LIMIT 1`,
			snapshotColumns), city, zip))
		if err == nil {
			return s, nil
		}
		if err != sql.ErrNoRows {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load market snapshot")
		}
		// No zip-level snapshot; fall back to citywide.
	}

	s, err := r.scanOne(r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM market_snapshots WHERE city = $1 ORDER BY captured_at DESC LIMIT 1`,
		snapshotColumns), city))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeSnapshotNotFound, fmt.Sprintf("no market snapshot for %s", city))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load market snapshot")
	}
	return s, nil
}

// Insert appends a new capture.
func (r *MarketRepository) Insert(ctx context.Context, s *market.Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = common.NewID()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO market_snapshots (id, city, zip, median_sale_price, median_price_per_sqft,
	avg_days_on_market, months_of_supply, sales_count, trend_pct, captured_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(s.ID), s.City, s.Zip, s.MedianSalePrice, s.MedianPricePerSqFt,
		s.AvgDaysOnMarket, s.MonthsOfSupply, s.SalesCount, s.TrendPct, s.CapturedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert market snapshot")
	}
	return nil
}

// History lists captures for a city, newest first.
func (r *MarketRepository) History(ctx context.Context, city string, limit int) ([]*market.Snapshot, error) {
	if limit <= 0 {
		limit = 12
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM market_snapshots WHERE city = $1 ORDER BY captured_at DESC LIMIT $2`,
		snapshotColumns), city, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load snapshot history")
	}
	defer rows.Close()

	var out []*market.Snapshot
	for rows.Next() {
		s, err := r.scanOne(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan snapshot row")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *MarketRepository) scanOne(sc scanner) (*market.Snapshot, error) {
	var (
		s  market.Snapshot
		id string
	)
	err := sc.Scan(&id, &s.City, &s.Zip, &s.MedianSalePrice, &s.MedianPricePerSqFt,
		&s.AvgDaysOnMarket, &s.MonthsOfSupply, &s.SalesCount, &s.TrendPct, &s.CapturedAt)
	if err != nil {
		return nil, err
	}
	s.ID = common.ID(id)
	return &s, nil
}
