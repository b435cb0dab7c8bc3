package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

var subjectCols = []string{
	"id", "address", "city", "state", "zip", "lat", "lng", "property_type", "property_sub_type",
	"bedrooms", "bathrooms", "living_area_sqft", "lot_size_sqft", "year_built", "garage_spaces",
	"list_price", "created_at", "updated_at",
}

var candidateCols = []string{
	"id", "mls_number", "address", "city", "zip", "lat", "lng", "property_type", "property_sub_type",
	"bedrooms", "bathrooms", "living_area_sqft", "lot_size_sqft", "year_built", "garage_spaces",
	"status", "close_price", "close_date", "days_on_market",
}

func TestPropertyRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id").
		WithArgs("prop-1").
		WillReturnRows(sqlmock.NewRows(subjectCols).AddRow(
			"prop-1", "301 Mockingbird Ln", "Fort Worth", "TX", "76103", 32.7555, -97.3308,
			"single_family", "detached", 3, 2.0, 1650, 7400, 1962, 2, "285000", now, now,
		))

	repo := NewPropertyRepository(db, nil)
	p, err := repo.GetByID(context.Background(), "prop-1")
	require.NoError(t, err)

	assert.Equal(t, common.ID("prop-1"), p.ID)
	assert.Equal(t, property.TypeSingleFamily, p.PropertyType)
	require.NotNil(t, p.Features.Bedrooms)
	assert.Equal(t, 3, *p.Features.Bedrooms)
	require.NotNil(t, p.ListPrice)
	assert.Equal(t, "285000", p.ListPrice.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(subjectCols))

	repo := NewPropertyRepository(db, nil)
	_, err = repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePropertyNotFound, errors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepository_GetByID_NullFeatures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE id").
		WithArgs("prop-2").
		WillReturnRows(sqlmock.NewRows(subjectCols).AddRow(
			"prop-2", "1 Elm St", "Fort Worth", "TX", "76103", 32.75, -97.33,
			"single_family", "", nil, nil, nil, nil, nil, nil, nil, now, now,
		))

	repo := NewPropertyRepository(db, nil)
	p, err := repo.GetByID(context.Background(), "prop-2")
	require.NoError(t, err)

	assert.Nil(t, p.Features.Bedrooms)
	assert.Nil(t, p.Features.LivingAreaSqFt)
	assert.Nil(t, p.ListPrice)
}

func TestPropertyRepository_CandidatePool_Citywide(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	soldAfter := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)
	closed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM listings WHERE close_date").
		WithArgs(soldAfter, "sold", "Fort Worth", 500).
		WillReturnRows(sqlmock.NewRows(candidateCols).AddRow(
			"comp-1", "MLS-100", "14 Oak St", "Fort Worth", "76103", 32.76, -97.33,
			"single_family", "detached", 3, 2.0, 1600, 7000, 1960, 2,
			"sold", "280000", closed, 21,
		))

	repo := NewPropertyRepository(db, nil)
	comps, err := repo.CandidatePool(context.Background(), property.PoolQuery{
		City:      "Fort Worth",
		SoldAfter: soldAfter,
	})
	require.NoError(t, err)
	require.Len(t, comps, 1)

	assert.Equal(t, common.ID("comp-1"), comps[0].ID)
	assert.Equal(t, property.StatusSold, comps[0].Status)
	assert.Equal(t, "280000", comps[0].ClosePrice.String())
	require.NotNil(t, comps[0].DaysOnMarket)
	assert.Equal(t, 21, *comps[0].DaysOnMarket)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepository_CandidatePool_BoundingBox(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	soldAfter := time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)
	// 6 args: sold_after, status, 4 bounding-box bounds, then the limit.
	mock.ExpectQuery("SELECT (.+) FROM listings WHERE close_date (.+) lat BETWEEN").
		WillReturnRows(sqlmock.NewRows(candidateCols))

	repo := NewPropertyRepository(db, nil)
	_, err = repo.CandidatePool(context.Background(), property.PoolQuery{
		Center:      common.LatLng{Lat: 32.7555, Lng: -97.3308},
		RadiusMiles: 1,
		SoldAfter:   soldAfter,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPropertyRepository_Search_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT COUNT(.+) FROM properties").
		WithArgs("Fort Worth").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM properties WHERE (.+) ORDER BY created_at DESC").
		WithArgs("Fort Worth", 20, 0).
		WillReturnRows(sqlmock.NewRows(subjectCols).AddRow(
			"prop-1", "301 Mockingbird Ln", "Fort Worth", "TX", "76103", 32.7555, -97.3308,
			"single_family", "detached", 3, 2.0, 1650, 7400, 1962, 2, "285000", now, now,
		))

	repo := NewPropertyRepository(db, nil)
	out, total, err := repo.Search(context.Background(), property.SearchFilter{City: "Fort Worth"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	assert.Equal(t, "Fort Worth", out[0].City)
	assert.NoError(t, mock.ExpectationsWereMet())
}
