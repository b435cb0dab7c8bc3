package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// PropertyRepository implements property.Repository over the properties and
// listings tables.  Subject properties live in properties; the sold/active
// comparable inventory lives in listings.
type PropertyRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewPropertyRepository constructs a ready-to-use PropertyRepository.
func NewPropertyRepository(db queryExecutor, logger logging.Logger) *PropertyRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PropertyRepository{db: db, logger: logger.Named("property_repo")}
}

const subjectColumns = `id, address, city, state, zip, lat, lng, property_type, property_sub_type,
bedrooms, bathrooms, living_area_sqft, lot_size_sqft, year_built, garage_spaces, list_price,
created_at, updated_at`

// GetByID loads a single subject property.
func (r *PropertyRepository) GetByID(ctx context.Context, id common.ID) (*property.SubjectProperty, error) {
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE id = $1`, subjectColumns)
	p, err := scanSubject(r.db.QueryRowContext(ctx, query, string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodePropertyNotFound, fmt.Sprintf("property %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load property")
	}
	return p, nil
}

// Search pages through the inventory with optional filters.
func (r *PropertyRepository) Search(ctx context.Context, filter property.SearchFilter) ([]*property.SubjectProperty, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.City != "" {
		where = append(where, "city = "+arg(filter.City))
	}
	if filter.Zip != "" {
		where = append(where, "zip = "+arg(filter.Zip))
	}
	if filter.PropertyType != nil {
		where = append(where, "property_type = "+arg(string(*filter.PropertyType)))
	}
	if filter.MinPrice != nil {
		where = append(where, "list_price >= "+arg(filter.MinPrice.String()))
	}
	if filter.MaxPrice != nil {
		where = append(where, "list_price <= "+arg(filter.MaxPrice.String()))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM properties WHERE " + cond
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count properties")
	}

	filter.Pagination.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		subjectColumns, cond, arg(filter.Pagination.PageSize), arg(filter.Pagination.Offset()))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to search properties")
	}
	defer rows.Close()

	var out []*property.SubjectProperty
	for rows.Next() {
		p, err := scanSubject(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan property row")
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// CandidatePool returns comparable candidates for a market area and date
// window.  With a positive radius the query prefilters on the bounding box
// around the center; the engine applies the exact per-candidate distance
// cut.  With no radius the pool is citywide, which the engine needs for its
// widening fallback.
func (r *PropertyRepository) CandidatePool(ctx context.Context, q property.PoolQuery) ([]*property.ComparableCandidate, error) {
	where := []string{"close_date >= $1"}
	args := []interface{}{q.SoldAfter}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.IncludeActive {
		where = append(where, fmt.Sprintf("status IN (%s, %s)",
			arg(string(property.StatusSold)), arg(string(property.StatusActive))))
	} else {
		where = append(where, "status = "+arg(string(property.StatusSold)))
	}
	if q.PropertyType != nil {
		where = append(where, "property_type = "+arg(string(*q.PropertyType)))
	}
	if q.RadiusMiles > 0 && !q.Center.IsZero() {
		latMin, latMax, lngMin, lngMax := property.BoundingBox(q.Center, q.RadiusMiles)
		where = append(where, fmt.Sprintf("lat BETWEEN %s AND %s", arg(latMin), arg(latMax)))
		where = append(where, fmt.Sprintf("lng BETWEEN %s AND %s", arg(lngMin), arg(lngMax)))
	} else if q.City != "" {
		where = append(where, "city = "+arg(q.City))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`SELECT id, mls_number, address, city, zip, lat, lng, property_type, property_sub_type,
bedrooms, bathrooms, living_area_sqft, lot_size_sqft, year_built, garage_spaces,
status, close_price, close_date, days_on_market
FROM listings WHERE %s ORDER BY close_date DESC LIMIT %s`, strings.Join(where, " AND "), arg(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load candidate pool")
	}
	defer rows.Close()

	var out []*property.ComparableCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan listing row")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert stores a property record from an inventory feed.
func (r *PropertyRepository) Upsert(ctx context.Context, p *property.SubjectProperty) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var listPrice interface{}
	if p.ListPrice != nil {
		listPrice = p.ListPrice.String()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO properties (id, address, city, state, zip, lat, lng, property_type, property_sub_type,
	bedrooms, bathrooms, living_area_sqft, lot_size_sqft, year_built, garage_spaces, list_price,
	created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)
ON CONFLICT (id) DO UPDATE SET
	address = EXCLUDED.address, city = EXCLUDED.city, state = EXCLUDED.state, zip = EXCLUDED.zip,
	lat = EXCLUDED.lat, lng = EXCLUDED.lng,
	property_type = EXCLUDED.property_type, property_sub_type = EXCLUDED.property_sub_type,
	bedrooms = EXCLUDED.bedrooms, bathrooms = EXCLUDED.bathrooms,
	living_area_sqft = EXCLUDED.living_area_sqft, lot_size_sqft = EXCLUDED.lot_size_sqft,
	year_built = EXCLUDED.year_built, garage_spaces = EXCLUDED.garage_spaces,
	list_price = EXCLUDED.list_price, updated_at = EXCLUDED.updated_at`,
		string(p.ID), p.Address, p.City, p.State, p.Zip, p.Location.Lat, p.Location.Lng,
		string(p.PropertyType), p.PropertySubType,
		intArg(p.Features.Bedrooms), floatArg(p.Features.Bathrooms),
		intArg(p.Features.LivingAreaSqFt), intArg(p.Features.LotSizeSqFt),
		intArg(p.Features.YearBuilt), intArg(p.Features.GarageSpaces),
		listPrice, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert property")
	}
	return nil
}

func scanSubject(s scanner) (*property.SubjectProperty, error) {
	var (
		p         property.SubjectProperty
		id        string
		ptype     string
		bedrooms  sql.NullInt64
		bathrooms sql.NullFloat64
		sqft      sql.NullInt64
		lot       sql.NullInt64
		year      sql.NullInt64
		garage    sql.NullInt64
		listPrice decimal.NullDecimal
	)
	err := s.Scan(&id, &p.Address, &p.City, &p.State, &p.Zip, &p.Location.Lat, &p.Location.Lng,
		&ptype, &p.PropertySubType, &bedrooms, &bathrooms, &sqft, &lot, &year, &garage,
		&listPrice, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = common.ID(id)
	p.PropertyType = property.Type(ptype)
	p.Features = property.Features{
		Bedrooms:       nullInt(bedrooms),
		Bathrooms:      nullFloat(bathrooms),
		LivingAreaSqFt: nullInt(sqft),
		LotSizeSqFt:    nullInt(lot),
		YearBuilt:      nullInt(year),
		GarageSpaces:   nullInt(garage),
	}
	if listPrice.Valid {
		p.ListPrice = &listPrice.Decimal
	}
	return &p, nil
}

func scanCandidate(s scanner) (*property.ComparableCandidate, error) {
	var (
		c         property.ComparableCandidate
		id        string
		ptype     string
		status    string
		bedrooms  sql.NullInt64
		bathrooms sql.NullFloat64
		sqft      sql.NullInt64
		lot       sql.NullInt64
		year      sql.NullInt64
		garage    sql.NullInt64
		dom       sql.NullInt64
	)
	err := s.Scan(&id, &c.MLSNumber, &c.Address, &c.City, &c.Zip, &c.Location.Lat, &c.Location.Lng,
		&ptype, &c.PropertySubType, &bedrooms, &bathrooms, &sqft, &lot, &year, &garage,
		&status, &c.ClosePrice, &c.CloseDate, &dom)
	if err != nil {
		return nil, err
	}
	c.ID = common.ID(id)
	c.PropertyType = property.Type(ptype)
	c.Status = property.ListingStatus(status)
	c.Features = property.Features{
		Bedrooms:       nullInt(bedrooms),
		Bathrooms:      nullFloat(bathrooms),
		LivingAreaSqFt: nullInt(sqft),
		LotSizeSqFt:    nullInt(lot),
		YearBuilt:      nullInt(year),
		GarageSpaces:   nullInt(garage),
	}
	c.DaysOnMarket = nullInt(dom)
	return &c, nil
}
