package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/pkg/errors"
)

type mockMarketRepo struct {
	mock.Mock
}

func (m *mockMarketRepo) Latest(ctx context.Context, city, zip string) (*market.Snapshot, error) {
	args := m.Called(ctx, city, zip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*market.Snapshot), args.Error(1)
}

func (m *mockMarketRepo) Insert(ctx context.Context, s *market.Snapshot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockMarketRepo) History(ctx context.Context, city string, limit int) ([]*market.Snapshot, error) {
	args := m.Called(ctx, city, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*market.Snapshot), args.Error(1)
}

func newMarketRouter(repo market.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewMarketHandler(repo)
	r.GET("/markets/:city", h.Latest)
	r.GET("/markets/:city/history", h.History)
	r.POST("/markets", h.Ingest)
	return r
}

func TestMarketHandler_Latest_IncludesTrend(t *testing.T) {
	repo := new(mockMarketRepo)
	repo.On("Latest", mock.Anything, "Fort Worth", "76104").Return(&market.Snapshot{
		ID:              "snap-1",
		City:            "Fort Worth",
		Zip:             "76104",
		MedianSalePrice: decimal.NewFromInt(310000),
		TrendPct:        0.04,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/markets/Fort%20Worth?zip=76104", nil)
	newMarketRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trend":"rising"`)
	repo.AssertExpectations(t)
}

func TestMarketHandler_Latest_NotFound(t *testing.T) {
	repo := new(mockMarketRepo)
	repo.On("Latest", mock.Anything, "Nowhere", "").
		Return(nil, errors.New(errors.ErrCodeSnapshotNotFound, "market snapshot not found"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/markets/Nowhere", nil)
	newMarketRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrCodeSnapshotNotFound))
}

func TestMarketHandler_History_ClampsLimit(t *testing.T) {
	repo := new(mockMarketRepo)
	repo.On("History", mock.Anything, "Dallas", 120).
		Return([]*market.Snapshot{{ID: "snap-1"}, {ID: "snap-2"}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/markets/Dallas/history?limit=9999", nil)
	newMarketRouter(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestMarketHandler_Ingest(t *testing.T) {
	repo := new(mockMarketRepo)
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(s *market.Snapshot) bool {
		return s.City == "Fort Worth" && s.MedianSalePrice.IntPart() == 315000
	})).Return(nil)

	body := bytes.NewBufferString(`{"city":"Fort Worth","zip":"76104","median_sale_price":"315000"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/markets", body)
	req.Header.Set("Content-Type", "application/json")
	newMarketRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	repo.AssertExpectations(t)
}

func TestMarketHandler_Ingest_MalformedBody(t *testing.T) {
	repo := new(mockMarketRepo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/markets", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	newMarketRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Insert")
}
