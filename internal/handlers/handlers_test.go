package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/dto"
	"github.com/SscSPs/cbr_rates/internal/handlers"
	"github.com/SscSPs/cbr_rates/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock RateQueryService ---
type MockRateQueryService struct {
	mock.Mock
}

func (m *MockRateQueryService) GetLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateQueryService) GetRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date) (*domain.RateRecord, error) {
	args := m.Called(ctx, currency, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateQueryService) GetRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error) {
	args := m.Called(ctx, currency, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RateRecord), args.Error(1)
}

var _ portssvc.RateQuerySvc = (*MockRateQueryService)(nil)

// --- Mock IngestionService ---
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) IngestOne(ctx context.Context, date civil.Date, currencies []domain.CurrencyCode) (*domain.IngestionRun, error) {
	args := m.Called(ctx, date, currencies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionRun), args.Error(1)
}

func (m *MockIngestionService) IngestRange(ctx context.Context, from, to civil.Date, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error) {
	args := m.Called(ctx, from, to, currencies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IngestionRun), args.Error(1)
}

func (m *MockIngestionService) IngestMonth(ctx context.Context, month time.Month, year int, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error) {
	args := m.Called(ctx, month, year, currencies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IngestionRun), args.Error(1)
}

func (m *MockIngestionService) IngestToday(ctx context.Context) (*domain.IngestionRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionRun), args.Error(1)
}

var _ portssvc.IngestionSvc = (*MockIngestionService)(nil)

// --- Test Suite Setup ---
type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	query     *MockRateQueryService
	ingestion *MockIngestionService
}

func date(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.March, Day: day}
}

func usdRecord() *domain.RateRecord {
	delta := decimal.RequireFromString("0.70")
	return &domain.RateRecord{
		ID:                  7,
		CurrencyCode:        domain.USD,
		RequestedDate:       date(3),
		SourceEffectiveDate: date(2),
		Rate:                decimal.RequireFromString("91.2"),
		Trend:               domain.TrendIncreased,
		Delta:               &delta,
	}
}

func newRouter(cfg *config.Config, services *portssvc.ServiceContainer) (*gin.Engine, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "cbr_ingestion_runs_total 1")
	})
	return handlers.NewRouter(cfg, services, metrics, logger)
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.query = new(MockRateQueryService)
	s.ingestion = new(MockIngestionService)

	router, err := newRouter(&config.Config{}, &portssvc.ServiceContainer{Ingestion: s.ingestion, Query: s.query})
	s.Require().NoError(err)
	s.router = router
}

func (s *HandlerTestSuite) TearDownTest() {
	s.query.AssertExpectations(s.T())
	s.ingestion.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "cbr_ingestion_runs_total")
}

func (s *HandlerTestSuite) TestGetLatestRate_Success() {
	s.query.On("GetLatestRate", mock.Anything, domain.USD).Return(usdRecord(), nil).Once()

	w := s.do(http.MethodGet, "/api/v1/rates/usd/latest", "")

	s.Equal(http.StatusOK, w.Code)
	var resp dto.RateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("91.20", resp.Rate)
	s.Equal("02.03.2024", resp.EffectiveDate)
	s.Equal("increased", resp.Trend)
	s.Require().NotNil(resp.Delta)
	s.Equal("0.70", *resp.Delta)
}

func (s *HandlerTestSuite) TestGetLatestRate_ErrorMapping() {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"no data", apperrors.NewNotFoundError("no USD rates"), http.StatusNotFound, "No data found"},
		{"storage down", apperrors.NewStorageError("query failed", errors.New("conn refused")), http.StatusServiceUnavailable, "Temporarily unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Failed to retrieve latest rate"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.query.On("GetLatestRate", mock.Anything, domain.USD).Return(nil, tt.err).Once()

			w := s.do(http.MethodGet, "/api/v1/rates/USD/latest", "")

			s.Equal(tt.wantStatus, w.Code)
			s.Contains(w.Body.String(), tt.wantBody)
		})
	}
}

func (s *HandlerTestSuite) TestGetLatestRate_UnsupportedCurrency() {
	w := s.do(http.MethodGet, "/api/v1/rates/GBP/latest", "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.query.AssertNotCalled(s.T(), "GetLatestRate", mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestGetRateOn() {
	s.query.On("GetRateOn", mock.Anything, domain.USD, date(3)).Return(usdRecord(), nil).Once()

	w := s.do(http.MethodGet, "/api/v1/rates/USD/on/03.03.2024", "")
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/rates/USD/on/2024-03-03", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestListRates() {
	recs := []domain.RateRecord{*usdRecord()}
	s.query.On("GetRatesBetween", mock.Anything, domain.EUR, date(1), date(5)).Return(recs, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/rates/EUR?from=01.03.2024&to=05.03.2024", "")

	s.Equal(http.StatusOK, w.Code)
	var resp dto.RateListResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("EUR", resp.CurrencyCode)
	s.Len(resp.Rates, 1)
}

func (s *HandlerTestSuite) TestListRates_MissingBound() {
	w := s.do(http.MethodGet, "/api/v1/rates/EUR?from=01.03.2024", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestListRates_InvalidRangeFromService() {
	s.query.On("GetRatesBetween", mock.Anything, domain.EUR, date(5), date(1)).
		Return(nil, fmt.Errorf("%w: reversed", apperrors.ErrInvalidInput)).Once()

	w := s.do(http.MethodGet, "/api/v1/rates/EUR?from=05.03.2024&to=01.03.2024", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestCreateIngestion_Today() {
	run := &domain.IngestionRun{RunID: "r1", Mode: domain.ModeSingle, RequestedDate: date(3), Records: []domain.RateRecord{*usdRecord()}}
	s.ingestion.On("IngestToday", mock.Anything).Return(run, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", "")

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.CreateIngestionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Runs, 1)
	s.Equal("r1", resp.Runs[0].RunID)
	s.Empty(resp.Errors)
}

func (s *HandlerTestSuite) TestCreateIngestion_Date() {
	run := &domain.IngestionRun{RunID: "r2", Mode: domain.ModeSingle, RequestedDate: date(2)}
	s.ingestion.On("IngestOne", mock.Anything, date(2), []domain.CurrencyCode{domain.CNY}).Return(run, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", `{"date":"02.03.2024","currencies":["cny"]}`)
	s.Equal(http.StatusCreated, w.Code)
}

func (s *HandlerTestSuite) TestCreateIngestion_Month() {
	feb1 := civil.Date{Year: 2024, Month: time.February, Day: 1}
	feb29 := civil.Date{Year: 2024, Month: time.February, Day: 29}
	s.ingestion.On("IngestRange", mock.Anything, feb1, feb29, []domain.CurrencyCode(nil)).
		Return([]domain.IngestionRun{{RunID: "a"}, {RunID: "b"}}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", `{"period":"02.2024"}`)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.CreateIngestionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Runs, 2)
}

func (s *HandlerTestSuite) TestCreateIngestion_PartialRange() {
	failures := errors.Join(
		fmt.Errorf("%w: 02.03.2024", apperrors.ErrSourceUnavailable),
		fmt.Errorf("%w: 03.03.2024", apperrors.ErrSourceUnavailable),
	)
	s.ingestion.On("IngestRange", mock.Anything, date(1), date(3), []domain.CurrencyCode(nil)).
		Return([]domain.IngestionRun{{RunID: "a"}}, failures).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", `{"period":"01.03.2024-03.03.2024"}`)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.CreateIngestionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Runs, 1)
	s.Len(resp.Errors, 2)
}

func (s *HandlerTestSuite) TestCreateIngestion_SourceUnavailable() {
	s.ingestion.On("IngestOne", mock.Anything, date(2), []domain.CurrencyCode(nil)).
		Return(nil, fmt.Errorf("%w: timeout", apperrors.ErrSourceUnavailable)).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", `{"date":"02.03.2024"}`)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlerTestSuite) TestCreateIngestion_MalformedSourceDocument() {
	s.ingestion.On("IngestToday", mock.Anything).
		Return(nil, fmt.Errorf("%w: USD", apperrors.ErrCurrencyNotFound)).Once()

	w := s.do(http.MethodPost, "/api/v1/ingestions", "")
	s.Equal(http.StatusBadGateway, w.Code)
}

func (s *HandlerTestSuite) TestCreateIngestion_RejectsBadInput() {
	bodies := []string{
		`{"date":"2024-03-02"}`,
		`{"period":"march"}`,
		`{"date":"02.03.2024","period":"02.2024"}`,
		`{"currencies":["GBP"]}`,
		`{"currencies":["DOLLAR"]}`,
		`not json`,
	}
	for _, body := range bodies {
		w := s.do(http.MethodPost, "/api/v1/ingestions", body)
		s.Equal(http.StatusBadRequest, w.Code, body)
	}
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	query := new(MockRateQueryService)
	query.On("GetLatestRate", mock.Anything, domain.USD).Return(usdRecord(), nil)

	router, err := newRouter(&config.Config{RateLimit: "1-M"}, &portssvc.ServiceContainer{Query: query, Ingestion: new(MockIngestionService)})
	if err != nil {
		t.Fatal(err)
	}

	codes := make([]int, 0, 2)
	for range 2 {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rates/USD/latest", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("want [200 429], got %v", codes)
	}
}
