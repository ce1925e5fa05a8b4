package services

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
)

// RateQuerySvc defines the read-side operations consumers depend on.
type RateQuerySvc interface {
	// GetLatestRate returns the most recently ingested record of a currency.
	GetLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error)

	// GetRateOn returns the record stored for a currency on date.
	GetRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date) (*domain.RateRecord, error)

	// GetRatesBetween returns one record per effective date in [from, to].
	GetRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error)
}

// IngestionSvc defines the write-side pipeline.
type IngestionSvc interface {
	// IngestOne fetches, diffs and stores the rates of currencies for date as one run.
	IngestOne(ctx context.Context, date civil.Date, currencies []domain.CurrencyCode) (*domain.IngestionRun, error)

	// IngestRange ingests every date in [from, to] that is not in the future.
	IngestRange(ctx context.Context, from, to civil.Date, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error)

	// IngestMonth ingests the days of a calendar month up to today.
	IngestMonth(ctx context.Context, month time.Month, year int, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error)

	// IngestToday ingests today's rates for the configured currencies.
	IngestToday(ctx context.Context) (*domain.IngestionRun, error)
}
