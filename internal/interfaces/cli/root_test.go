package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/application/cma"
	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/pkg/types/common"
)

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) RunReport(ctx context.Context, req cma.RunReportRequest) (*cma.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cma.Report), args.Error(1)
}

func (m *mockReportService) GetReport(ctx context.Context, id common.ID) (*cma.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cma.Report), args.Error(1)
}

func (m *mockReportService) ListReports(ctx context.Context, filter cma.ListFilter) ([]*cma.Report, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*cma.Report), args.Get(1).(int64), args.Error(2)
}

func (m *mockReportService) RerunReport(ctx context.Context, reportID common.ID, overrides *property.Overrides) (*cma.Report, error) {
	args := m.Called(ctx, reportID, overrides)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cma.Report), args.Error(1)
}

func (m *mockReportService) ValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*cma.ValueHistoryEntry, error) {
	args := m.Called(ctx, reportID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cma.ValueHistoryEntry), args.Error(1)
}

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

type mockMigrator struct {
	mock.Mock
}

func (m *mockMigrator) Up() error   { return m.Called().Error(0) }
func (m *mockMigrator) Down() error { return m.Called().Error(0) }
func (m *mockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func staticFactory(deps *Dependencies) DependencyFactory {
	return func(configPath string) (*Dependencies, error) { return deps, nil }
}

func execute(t *testing.T, deps *Dependencies, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(staticFactory(deps))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	reports := new(mockReportService)
	reports.On("RunReport", mock.Anything, mock.MatchedBy(func(req cma.RunReportRequest) bool {
		return req.PropertyID == "prop-1" && req.MaxRadiusMiles != nil && *req.MaxRadiusMiles == 1.0
	})).Return(&cma.Report{ID: "rep-1"}, nil)

	out, err := execute(t, &Dependencies{Reports: reports},
		"analyze", "--property", "prop-1", "--max-radius", "1.0", "-o", "json")

	require.NoError(t, err)
	var got cma.Report
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, common.ID("rep-1"), got.ID)
	reports.AssertExpectations(t)
}

func TestAnalyzeCommand_RequiresProperty(t *testing.T) {
	_, err := execute(t, &Dependencies{Reports: new(mockReportService)}, "analyze")
	assert.Error(t, err)
}

func TestAnalyzeCommand_FromFile(t *testing.T) {
	intp := func(v int) *int { return &v }
	floatp := func(v float64) *float64 { return &v }

	subject := &property.SubjectProperty{
		ID:           "prop-1",
		Address:      "100 Hemphill St",
		City:         "Fort Worth",
		State:        "TX",
		Zip:          "76104",
		Location:     common.LatLng{Lat: 32.735, Lng: -97.33},
		PropertyType: property.TypeSingleFamily,
		Features: property.Features{
			Bedrooms:       intp(3),
			Bathrooms:      floatp(2),
			LivingAreaSqFt: intp(1600),
		},
	}
	var candidates []*property.ComparableCandidate
	for i, price := range []int64{295000, 301000, 310000} {
		candidates = append(candidates, &property.ComparableCandidate{
			ID:           common.ID([]string{"comp-a", "comp-b", "comp-c"}[i]),
			City:         "Fort Worth",
			Zip:          "76104",
			Location:     common.LatLng{Lat: 32.735 + float64(i+1)*0.002, Lng: -97.33},
			PropertyType: property.TypeSingleFamily,
			Features: property.Features{
				Bedrooms:       intp(3),
				Bathrooms:      floatp(2),
				LivingAreaSqFt: intp(1550 + 50*i),
			},
			Status:     property.StatusSold,
			ClosePrice: decimal.NewFromInt(price),
			CloseDate:  time.Now().AddDate(0, -2, 0),
		})
	}

	data, err := json.Marshal(map[string]interface{}{
		"subject":    subject,
		"candidates": candidates,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pool.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// No services are mocked: file mode must never touch the factory.
	out, err := execute(t, nil, "analyze", "--file", path, "-o", "json")

	require.NoError(t, err)
	var got struct {
		Comparables []*valuation.ScoredComparable `json:"comparables"`
		Estimate    *valuation.ValuationEstimate  `json:"estimate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Comparables, 3)
	require.NotNil(t, got.Estimate)
	require.NotNil(t, got.Estimate.Mid)
	assert.True(t, got.Estimate.Mid.IsPositive())
}

func TestAnalyzeCommand_PropertyAndFileAreExclusive(t *testing.T) {
	_, err := execute(t, nil, "analyze", "--property", "prop-1", "--file", "pool.json")
	require.Error(t, err)
}

func TestAnalyzeCommand_BadPriceFlag(t *testing.T) {
	_, err := execute(t, &Dependencies{Reports: new(mockReportService)},
		"analyze", "--property", "prop-1", "--min-price", "not-a-number")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min-price")
}

func TestFlipRunCommand(t *testing.T) {
	flips := new(mockFlipService)
	flips.On("RunAnalysis", mock.Anything, mock.MatchedBy(func(req appflip.RunAnalysisRequest) bool {
		return req.PropertyID == "prop-1" &&
			req.Inputs.PurchasePrice.Equal(decimal.NewFromInt(180000)) &&
			req.Inputs.RehabCost.Equal(decimal.NewFromInt(45000)) &&
			req.Inputs.HoldMonths == 8
	})).Return(&appflip.Analysis{ID: "fa-1"}, nil)

	_, err := execute(t, &Dependencies{Flips: flips},
		"flip", "run", "--property", "prop-1",
		"--purchase", "180000", "--rehab", "45000", "--months", "8")

	require.NoError(t, err)
	flips.AssertExpectations(t)
}

func TestReportGetCommand(t *testing.T) {
	reports := new(mockReportService)
	reports.On("GetReport", mock.Anything, common.ID("rep-1")).
		Return(&cma.Report{ID: "rep-1"}, nil)

	_, err := execute(t, &Dependencies{Reports: reports}, "report", "get", "rep-1")

	require.NoError(t, err)
	reports.AssertExpectations(t)
}

func TestMigrateVersionCommand(t *testing.T) {
	migrator := new(mockMigrator)
	migrator.On("Version").Return(uint(7), false, nil)

	out, err := execute(t, &Dependencies{Migrate: migrator}, "migrate", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "version: 7")
	migrator.AssertExpectations(t)
}

func TestDependenciesClosedAfterRun(t *testing.T) {
	reports := new(mockReportService)
	reports.On("GetReport", mock.Anything, common.ID("rep-1")).
		Return(&cma.Report{ID: "rep-1"}, nil)

	closed := false
	deps := &Dependencies{Reports: reports, Close: func() error { closed = true; return nil }}

	_, err := execute(t, deps, "report", "get", "rep-1")

	require.NoError(t, err)
	assert.True(t, closed)
}
