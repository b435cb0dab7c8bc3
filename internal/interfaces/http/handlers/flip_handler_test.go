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

	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

type mockFlipService struct {
	mock.Mock
}

func (m *mockFlipService) RunAnalysis(ctx context.Context, req appflip.RunAnalysisRequest) (*appflip.Analysis, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appflip.Analysis), args.Error(1)
}

func (m *mockFlipService) GetAnalysis(ctx context.Context, id common.ID) (*appflip.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appflip.Analysis), args.Error(1)
}

func (m *mockFlipService) ListAnalyses(ctx context.Context, filter appflip.ListFilter) ([]*appflip.Analysis, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*appflip.Analysis), args.Get(1).(int64), args.Error(2)
}

func (m *mockFlipService) UpdateInputs(ctx context.Context, id common.ID, inputs domainflip.FinancialInputs) (*appflip.Analysis, error) {
	args := m.Called(ctx, id, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appflip.Analysis), args.Error(1)
}

func (m *mockFlipService) DeleteAnalysis(ctx context.Context, id common.ID) error {
	return m.Called(ctx, id).Error(0)
}

func newFlipRouter(svc FlipService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewFlipHandler(svc)
	r.POST("/flips", h.Run)
	r.GET("/flips", h.List)
	r.GET("/flips/:id", h.Get)
	r.PUT("/flips/:id/inputs", h.UpdateInputs)
	r.DELETE("/flips/:id", h.Delete)
	return r
}

func TestFlipHandler_Run(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	analysis := &appflip.Analysis{ID: "fa-1", PropertyID: "prop-1"}
	svc.On("RunAnalysis", mock.Anything, mock.MatchedBy(func(req appflip.RunAnalysisRequest) bool {
		return req.PropertyID == "prop-1" && req.Inputs.RehabCost.Equal(decimal.NewFromInt(45000))
	})).Return(analysis, nil)

	body := bytes.NewBufferString(`{"property_id":"prop-1","inputs":{"purchase_price":"180000","rehab_cost":"45000","hold_months":6}}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flips", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestFlipHandler_Run_MalformedBody(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flips", bytes.NewBufferString(`{`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "RunAnalysis", mock.Anything, mock.Anything)
}

func TestFlipHandler_Get_NotFound(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	svc.On("GetAnalysis", mock.Anything, common.ID("missing")).
		Return(nil, errors.New(errors.ErrCodeAnalysisNotFound, "flip analysis not found"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/flips/missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrCodeAnalysisNotFound))
}

func TestFlipHandler_List_DisqualifiedFilter(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	svc.On("ListAnalyses", mock.Anything, mock.MatchedBy(func(f appflip.ListFilter) bool {
		return f.DisqualifiedOnly && f.PropertyID == common.ID("prop-1")
	})).Return([]*appflip.Analysis{}, int64(0), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/flips?property_id=prop-1&disqualified=true", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestFlipHandler_UpdateInputs(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	analysis := &appflip.Analysis{ID: "fa-1"}
	svc.On("UpdateInputs", mock.Anything, common.ID("fa-1"),
		mock.MatchedBy(func(in domainflip.FinancialInputs) bool {
			return in.RehabCost.Equal(decimal.NewFromInt(60000))
		})).Return(analysis, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/flips/fa-1/inputs",
		bytes.NewBufferString(`{"purchase_price":"180000","rehab_cost":"60000","hold_months":6}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestFlipHandler_Delete(t *testing.T) {
	svc := new(mockFlipService)
	router := newFlipRouter(svc)

	svc.On("DeleteAnalysis", mock.Anything, common.ID("fa-1")).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/flips/fa-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
