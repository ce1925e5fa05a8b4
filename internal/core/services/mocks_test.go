package services_test

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock SourceClient ---
type MockSourceClient struct {
	mock.Mock
}

func (m *MockSourceClient) FetchDaily(ctx context.Context, date civil.Date) (sources.RawDocument, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(sources.RawDocument), args.Error(1)
}

func (m *MockSourceClient) FetchPeriod(ctx context.Context, currency domain.Currency, from, to civil.Date) (sources.RawDocument, error) {
	args := m.Called(ctx, currency, from, to)
	return args.Get(0).(sources.RawDocument), args.Error(1)
}

// --- Mock RateExtractor ---
type MockRateExtractor struct {
	mock.Mock
}

func (m *MockRateExtractor) Extract(doc sources.RawDocument, currency domain.CurrencyCode) (decimal.Decimal, civil.Date, error) {
	args := m.Called(doc, currency)
	return args.Get(0).(decimal.Decimal), args.Get(1).(civil.Date), args.Error(2)
}

func (m *MockRateExtractor) ExtractAll(doc sources.RawDocument) iter.Seq2[domain.PeriodRate, error] {
	args := m.Called(doc)
	return args.Get(0).(iter.Seq2[domain.PeriodRate, error])
}

// --- Mock RateRepository ---
type MockRateRepository struct {
	mock.Mock
}

func (m *MockRateRepository) FindLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateRepository) FindRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date, basis domain.DateBasis) (*domain.RateRecord, error) {
	args := m.Called(ctx, currency, date, basis)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockRateRepository) ListRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error) {
	args := m.Called(ctx, currency, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RateRecord), args.Error(1)
}

func (m *MockRateRepository) FindPreviousRate(ctx context.Context, currency domain.CurrencyCode, excluding civil.Date) (*decimal.Decimal, error) {
	args := m.Called(ctx, currency, excluding)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*decimal.Decimal), args.Error(1)
}

func (m *MockRateRepository) AppendRate(ctx context.Context, record domain.RateRecord) (int64, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRateRepository) SaveRun(ctx context.Context, run domain.IngestionRun) (*domain.IngestionRun, error) {
	args := m.Called(ctx, run)
	if fn, ok := args.Get(0).(func(context.Context, domain.IngestionRun) *domain.IngestionRun); ok {
		return fn(ctx, run), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionRun), args.Error(1)
}

// --- Mock LatestRateCache ---
type MockLatestRateCache struct {
	mock.Mock
}

func (m *MockLatestRateCache) GetLatest(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	args := m.Called(ctx, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RateRecord), args.Error(1)
}

func (m *MockLatestRateCache) SetLatest(ctx context.Context, record domain.RateRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// --- Mock RunPublisher ---
type MockRunPublisher struct {
	mock.Mock
}

func (m *MockRunPublisher) PublishRun(ctx context.Context, run domain.IngestionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// --- Recording IngestionRecorder ---
type recordingRecorder struct {
	fetches []error
	runs    []error
	records int
}

func (r *recordingRecorder) ObserveFetch(_ string, _ time.Duration, err error) {
	r.fetches = append(r.fetches, err)
}

func (r *recordingRecorder) ObserveRun(_ domain.IngestionMode, err error) {
	r.runs = append(r.runs, err)
}

func (r *recordingRecorder) ObserveRecord(domain.RateRecord) {
	r.records++
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func periodSeq(rates ...domain.PeriodRate) iter.Seq2[domain.PeriodRate, error] {
	return func(yield func(domain.PeriodRate, error) bool) {
		for _, r := range rates {
			if !yield(r, nil) {
				return
			}
		}
	}
}
