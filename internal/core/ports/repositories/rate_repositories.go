package repositories

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RateReader defines read operations for stored rate records.
// Every lookup returns an error matching apperrors.ErrNotFound when no record
// exists and apperrors.ErrStorageUnavailable when the store cannot be reached.
type RateReader interface {
	// FindLatestRate returns the most recently inserted record of a currency.
	FindLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error)

	// FindRateOn returns the most recently inserted record whose date matches on the given basis.
	FindRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date, basis domain.DateBasis) (*domain.RateRecord, error)

	// ListRatesBetween returns one record per effective date in [from, to], ascending.
	ListRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error)
}

// PreviousRateFinder selects the rate the dynamics of a new record are computed against.
type PreviousRateFinder interface {
	// FindPreviousRate returns the rate of the most recently inserted record whose
	// source effective date differs from excluding, or (nil, nil) when there is none.
	FindPreviousRate(ctx context.Context, currency domain.CurrencyCode, excluding civil.Date) (*decimal.Decimal, error)
}

// RateWriter defines append-only write operations.
type RateWriter interface {
	// AppendRate inserts a record and returns its insertion id. It never deduplicates.
	AppendRate(ctx context.Context, record domain.RateRecord) (int64, error)

	// SaveRun persists the run and all of its records atomically, returning the run with ids set.
	SaveRun(ctx context.Context, run domain.IngestionRun) (*domain.IngestionRun, error)
}

// RateRepositoryFacade combines all rate-related repository interfaces.
type RateRepositoryFacade interface {
	RateReader
	PreviousRateFinder
	RateWriter
}

// LatestRateCache keeps the latest record per currency close to the readers.
// Get returns (nil, nil) on a cache miss.
type LatestRateCache interface {
	GetLatest(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error)
	SetLatest(ctx context.Context, record domain.RateRecord) error
}
