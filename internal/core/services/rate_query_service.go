package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
)

// maxRangeDays bounds GetRatesBetween.
const maxRangeDays = 366

type rateQueryService struct {
	BaseService
	rateRepo portsrepo.RateReader
	cache    portsrepo.LatestRateCache
	basis    domain.DateBasis
}

// QueryOption is a functional option for configuring the query service
type QueryOption func(*rateQueryService)

// WithReadCache makes GetLatestRate read through the cache
func WithReadCache(c portsrepo.LatestRateCache) QueryOption {
	return func(s *rateQueryService) {
		s.cache = c
	}
}

// WithDateBasis selects the column GetRateOn matches. Period ingestion stores
// effective dates, so it pairs with domain.ByEffectiveDate.
func WithDateBasis(basis domain.DateBasis) QueryOption {
	return func(s *rateQueryService) {
		s.basis = basis
	}
}

// NewRateQueryService creates a new query service
func NewRateQueryService(repo portsrepo.RateReader, options ...QueryOption) portssvc.RateQuerySvc {
	svc := &rateQueryService{
		rateRepo: repo,
		basis:    domain.ByRequestedDate,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RateQuerySvc = (*rateQueryService)(nil)

func validateCurrency(code domain.CurrencyCode) error {
	if _, ok := domain.LookupCurrency(code); !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported currency %q", code))
	}
	return nil
}

// GetLatestRate returns the newest record of a currency.
func (s *rateQueryService) GetLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}

	if s.cache != nil {
		rec, err := s.cache.GetLatest(ctx, currency)
		if err != nil {
			s.LogWarn(ctx, err, "Latest-rate cache read failed, falling back to store", slog.String("currency", string(currency)))
		} else if rec != nil {
			return rec, nil
		}
	}

	rec, err := s.rateRepo.FindLatestRate(ctx, currency)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to read latest rate", slog.String("currency", string(currency)))
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, *rec); err != nil {
			s.LogWarn(ctx, err, "Failed to fill latest-rate cache", slog.String("currency", string(currency)))
		}
	}
	return rec, nil
}

// GetRateOn returns the record stored for a currency on date.
func (s *rateQueryService) GetRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date) (*domain.RateRecord, error) {
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}
	if !date.IsValid() {
		return nil, fmt.Errorf("%w: invalid date", apperrors.ErrInvalidInput)
	}

	rec, err := s.rateRepo.FindRateOn(ctx, currency, date, s.basis)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to read rate",
			slog.String("currency", string(currency)),
			slog.String("date", domain.FormatDotted(date)))
	}
	return rec, err
}

// GetRatesBetween returns one record per effective date in [from, to].
func (s *rateQueryService) GetRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error) {
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end is before start", apperrors.ErrInvalidInput)
	}
	if to.DaysSince(from) >= maxRangeDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", apperrors.ErrInvalidInput, maxRangeDays)
	}

	recs, err := s.rateRepo.ListRatesBetween(ctx, currency, from, to)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to list rates", slog.String("currency", string(currency)))
	}
	return recs, err
}
