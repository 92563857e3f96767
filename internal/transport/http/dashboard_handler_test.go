package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "allocdash/internal/errors"
	"allocdash/internal/exporter"
	"allocdash/internal/files"
	"allocdash/internal/services"
	"allocdash/internal/shared/testutil"
	"allocdash/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) CorrelationSelectors(ctx context.Context) (*services.CorrelationSelectors, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CorrelationSelectors), args.Error(1)
}

func (m *MockDashboardService) Correlation(ctx context.Context, q services.CorrelationQuery) (*services.CorrelationResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CorrelationResult), args.Error(1)
}

func (m *MockDashboardService) StressSelectors(ctx context.Context) (*services.SnapshotSelectors, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SnapshotSelectors), args.Error(1)
}

func (m *MockDashboardService) StressView(ctx context.Context, q services.SnapshotQuery) (*services.StressViewResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StressViewResult), args.Error(1)
}

func (m *MockDashboardService) StressComparison(ctx context.Context, q services.ComparisonQuery) (*services.StressComparisonResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StressComparisonResult), args.Error(1)
}

func (m *MockDashboardService) StressHistory(ctx context.Context, q services.HistoryQuery) (*services.HistoryResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.HistoryResult), args.Error(1)
}

func (m *MockDashboardService) ExposureSelectors(ctx context.Context) (*services.SnapshotSelectors, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SnapshotSelectors), args.Error(1)
}

func (m *MockDashboardService) ExposureView(ctx context.Context, q services.SnapshotQuery) (*services.ExposureViewResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExposureViewResult), args.Error(1)
}

func (m *MockDashboardService) ExposureComparison(ctx context.Context, q services.ComparisonQuery) (*services.ExposureComparisonResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExposureComparisonResult), args.Error(1)
}

func (m *MockDashboardService) ExposureHistory(ctx context.Context, q services.HistoryQuery) (*services.HistoryResult, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.HistoryResult), args.Error(1)
}

func (m *MockDashboardService) Legend(ctx context.Context) (*services.LegendResult, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LegendResult), args.Error(1)
}

func (m *MockDashboardService) Workbooks(ctx context.Context) ([]files.FileInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]files.FileInfo), args.Error(1)
}

func (m *MockDashboardService) Export(ctx context.Context, req services.ExportRequest) (*services.Export, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Export), args.Error(1)
}

func (m *MockDashboardService) Reload(ctx context.Context, trigger string) services.ReloadResult {
	args := m.Called(trigger)
	return args.Get(0).(services.ReloadResult)
}

func newTestRouter(t *testing.T, svc *MockDashboardService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewDashboardHandler(svc, logger, apierrors.NewErrorHandler(logger, false)).Routes()
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestDashboardHandler_Correlation(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Correlation", services.CorrelationQuery{
		Start: date("2024-01-01"),
		End:   date("2024-06-30"),
		Codes: []string{"SPX", "BUND", "GOLD"},
	}).Return(&services.CorrelationResult{
		Summary:  []domain.SummaryStats{{Ticker: "SPX", Name: "S&P 500", Mean: 12.5}},
		Warnings: []services.Warning{},
	}, nil)

	rec := serve(newTestRouter(t, svc), "GET", "/correlation?start=2024-01-01&end=2024-06-30&codes=SPX,BUND&codes=GOLD")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
		Data   struct {
			Summary []domain.SummaryStats `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "S&P 500", body.Data.Summary[0].Name)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		field  string
	}{
		{"bad start date", "/correlation?start=31/01/2024", "start"},
		{"bad snapshot date", "/stress?date=yesterday", "date"},
		{"missing scenario", "/stress/history", "scenario"},
		{"unknown metric", "/exposure/history?metric=Beta", "metric"},
		{"unknown export", "/exports/pdf", "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			rec := serve(newTestRouter(t, svc), "GET", tt.target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"VALIDATION_FAILED"`)
			assert.Contains(t, rec.Body.String(), `"field":"`+tt.field+`"`)
			svc.AssertNotCalled(t, "Correlation", mock.Anything)
		})
	}
}

func TestDashboardHandler_SnapshotListSemantics(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("StressView", services.SnapshotQuery{}).
		Return(&services.StressViewResult{Rows: domain.StressTable{}}, nil).Once()
	svc.On("StressView", services.SnapshotQuery{
		Date:       date("2024-02-29"),
		Portfolios: []string{},
	}).Return(&services.StressViewResult{Rows: domain.StressTable{}}, nil).Once()

	router := newTestRouter(t, svc)

	assert.Equal(t, http.StatusOK, serve(router, "GET", "/stress").Code)
	assert.Equal(t, http.StatusOK, serve(router, "GET", "/stress?date=2024-02-29&portfolios=").Code)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"schema", apperrorsSchema(), http.StatusUnprocessableEntity, `"/errors/workbook/schema"`},
		{"parse", apierrors.NewParsingError("bad date in row 4", nil), http.StatusUnprocessableEntity, `"PARSING"`},
		{"missing workbook", apierrors.NewNotFoundError("stress workbook"), http.StatusNotFound, `stress workbook not found`},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, `"Internal Server Error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("StressComparison", services.ComparisonQuery{Subject: "E7X"}).Return(nil, tt.err)

			rec := serve(newTestRouter(t, svc), "GET", "/stress/comparison?subject=E7X")

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			svc.AssertExpectations(t)
		})
	}
}

func apperrorsSchema() error {
	return apierrors.NewSchemaError("sheet MeasuresSeries has 5 columns, need 7")
}

func TestDashboardHandler_History(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("ExposureHistory", services.HistoryQuery{Key: "Duration", Portfolios: []string{"E7X"}}).
		Return(&services.HistoryResult{Dataset: domain.DatasetExposure, Key: "Duration"}, nil)

	rec := serve(newTestRouter(t, svc), "GET", "/exposure/history?metric=Duration&portfolios=E7X")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"Duration"`)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_DownloadExport(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Export", services.ExportRequest{
		Kind:       services.ExportStressComparison,
		Comparison: services.ComparisonQuery{Date: date("2024-02-29")},
	}).Return(&services.Export{
		Filename: "stress_comparison.xlsx",
		Tables: []exporter.Table{{
			Name:    exporter.SheetStressComparison,
			Headers: []string{"ScenarioName", "E7X"},
			Rows:    [][]interface{}{{"Rates Up", -10.0}},
		}},
	}, nil)

	rec := serve(newTestRouter(t, svc), "GET", "/exports/stress_comparison?date=2024-02-29")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="stress_comparison.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK", rec.Body.String()[:2], "xlsx files are zip archives")
	svc.AssertExpectations(t)
}

func TestDashboardHandler_ReloadAndWorkbooks(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Reload", ReloadTriggerHTTP).Return(services.ReloadResult{Evicted: 4, Trigger: ReloadTriggerHTTP})
	svc.On("Workbooks").Return([]files.FileInfo{{Name: "Legenda.xlsx"}}, nil)
	router := newTestRouter(t, svc)

	rec := serve(router, "POST", "/reload")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"evicted":4`)

	rec = serve(router, "GET", "/workbooks")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusMethodNotAllowed, serve(router, "GET", "/reload").Code)
	svc.AssertExpectations(t)
}

func TestQueryList(t *testing.T) {
	req := httptest.NewRequest("GET", "/?a=x,%20y&a=z&b=", nil)
	q := req.URL.Query()

	assert.Equal(t, []string{"x", "y", "z"}, queryList(q, "a"))
	assert.Equal(t, []string{}, queryList(q, "b"))
	assert.Nil(t, queryList(q, "c"))
}
