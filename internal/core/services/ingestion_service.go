package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/events"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/SscSPs/cbr_rates/internal/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ingestionService fetches, diffs and stores rates.
type ingestionService struct {
	BaseService
	source    sources.SourceClient
	extractor sources.RateExtractor
	rateRepo  portsrepo.RateRepositoryFacade

	recorder  events.IngestionRecorder
	publisher events.RunPublisher
	cache     portsrepo.LatestRateCache

	currencies      []domain.CurrencyCode
	strategy        domain.RangeStrategy
	continueOnError bool
	retryAttempts   int
	retryBackoff    time.Duration
	location        *time.Location
	now             func() time.Time
}

// IngestionOption is a functional option for configuring the ingestion service
type IngestionOption func(*ingestionService)

// WithRecorder adds a telemetry recorder
func WithRecorder(r events.IngestionRecorder) IngestionOption {
	return func(s *ingestionService) {
		s.recorder = r
	}
}

// WithPublisher adds a publisher notified after every stored run
func WithPublisher(p events.RunPublisher) IngestionOption {
	return func(s *ingestionService) {
		s.publisher = p
	}
}

// WithLatestCache adds a cache refreshed after every stored run
func WithLatestCache(c portsrepo.LatestRateCache) IngestionOption {
	return func(s *ingestionService) {
		s.cache = c
	}
}

// WithDefaultCurrencies sets the currencies used when a caller passes none
func WithDefaultCurrencies(codes []domain.CurrencyCode) IngestionOption {
	return func(s *ingestionService) {
		s.currencies = codes
	}
}

// WithRangeStrategy selects how ranges are fetched
func WithRangeStrategy(strategy domain.RangeStrategy) IngestionOption {
	return func(s *ingestionService) {
		s.strategy = strategy
	}
}

// WithContinueOnError makes range ingestion skip failed dates instead of aborting
func WithContinueOnError(enabled bool) IngestionOption {
	return func(s *ingestionService) {
		s.continueOnError = enabled
	}
}

// WithRetry bounds retries of source fetches. backoff grows linearly per attempt.
func WithRetry(attempts int, backoff time.Duration) IngestionOption {
	return func(s *ingestionService) {
		if attempts < 1 {
			attempts = 1
		}
		s.retryAttempts = attempts
		s.retryBackoff = backoff
	}
}

// WithLocation sets the time zone "today" is computed in
func WithLocation(loc *time.Location) IngestionOption {
	return func(s *ingestionService) {
		s.location = loc
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) IngestionOption {
	return func(s *ingestionService) {
		s.now = now
	}
}

// NewIngestionService creates a new ingestion service with the provided options
func NewIngestionService(source sources.SourceClient, extractor sources.RateExtractor, repo portsrepo.RateRepositoryFacade, options ...IngestionOption) portssvc.IngestionSvc {
	svc := &ingestionService{
		source:        source,
		extractor:     extractor,
		rateRepo:      repo,
		recorder:      events.NopRecorder{},
		publisher:     events.NopPublisher{},
		currencies:    []domain.CurrencyCode{domain.USD, domain.EUR},
		strategy:      domain.RangeDaily,
		retryAttempts: 1,
		location:      time.UTC,
		now:           time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.IngestionSvc = (*ingestionService)(nil)

func (s *ingestionService) today() civil.Date {
	return domain.Today(s.now(), s.location)
}

func (s *ingestionService) resolveCurrencies(codes []domain.CurrencyCode) ([]domain.CurrencyCode, error) {
	if len(codes) == 0 {
		codes = s.currencies
	}
	for _, c := range codes {
		if _, ok := domain.LookupCurrency(c); !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported currency %q", c))
		}
	}
	return codes, nil
}

// IngestOne stores the rates of one date as a single run.
func (s *ingestionService) IngestOne(ctx context.Context, date civil.Date, currencies []domain.CurrencyCode) (*domain.IngestionRun, error) {
	codes, err := s.resolveCurrencies(currencies)
	if err != nil {
		return nil, err
	}
	if date.After(s.today()) {
		return nil, fmt.Errorf("%w: %s is in the future", apperrors.ErrInvalidInput, domain.FormatDotted(date))
	}
	return s.ingestDaily(ctx, date, codes, domain.ModeSingle)
}

// IngestToday ingests today's rates for the configured currencies.
func (s *ingestionService) IngestToday(ctx context.Context) (*domain.IngestionRun, error) {
	return s.IngestOne(ctx, s.today(), nil)
}

// IngestMonth ingests the days of a calendar month that are not in the future.
func (s *ingestionService) IngestMonth(ctx context.Context, month time.Month, year int, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", apperrors.ErrInvalidInput, month)
	}
	from, to := domain.MonthRange(month, year)
	return s.IngestRange(ctx, from, to, currencies)
}

// IngestRange ingests [from, to] with the configured strategy. Dates after today are skipped.
// Without continue-on-error the first failure stops the range; runs stored before it
// are returned alongside the error.
func (s *ingestionService) IngestRange(ctx context.Context, from, to civil.Date, currencies []domain.CurrencyCode) ([]domain.IngestionRun, error) {
	codes, err := s.resolveCurrencies(currencies)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end %s is before start %s", apperrors.ErrInvalidInput, domain.FormatDotted(to), domain.FormatDotted(from))
	}

	today := s.today()
	to = domain.ClampToToday(to, today)
	if from.After(to) {
		s.LogInfo(ctx, "Range lies entirely in the future, nothing to ingest",
			slog.String("from", domain.FormatDotted(from)))
		return nil, nil
	}

	s.LogInfo(ctx, "Ingesting range",
		slog.String("from", domain.FormatDotted(from)),
		slog.String("to", domain.FormatDotted(to)),
		slog.String("strategy", string(s.strategy)))

	if s.strategy == domain.RangePeriod {
		return s.ingestPeriod(ctx, from, to, codes)
	}

	var runs []domain.IngestionRun
	var errs []error
	for _, date := range domain.EnumerateDates(from, to, today) {
		run, err := s.ingestDaily(ctx, date, codes, domain.ModeRange)
		if err != nil {
			if !s.continueOnError || ctx.Err() != nil {
				return runs, err
			}
			errs = append(errs, err)
			continue
		}
		runs = append(runs, *run)
	}
	return runs, errors.Join(errs...)
}

// ingestDaily runs the single-date pipeline: one fetch, every previous rate read
// before any write, then one atomic save.
func (s *ingestionService) ingestDaily(ctx context.Context, date civil.Date, codes []domain.CurrencyCode, mode domain.IngestionMode) (run *domain.IngestionRun, err error) {
	runID := uuid.NewString()
	ctx = middleware.WithRunID(ctx, runID)
	defer func() { s.recorder.ObserveRun(mode, err) }()

	doc, err := s.fetch(ctx, "daily", func(ctx context.Context) (sources.RawDocument, error) {
		return s.source.FetchDaily(ctx, date)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to fetch daily rates", slog.String("date", domain.FormatDotted(date)))
		return nil, err
	}

	type extracted struct {
		code      domain.CurrencyCode
		rate      decimal.Decimal
		effective civil.Date
	}
	values := make([]extracted, 0, len(codes))
	for _, code := range codes {
		rate, effective, err := s.extractor.Extract(doc, code)
		if err != nil {
			s.LogError(ctx, err, "Failed to extract rate",
				slog.String("currency", string(code)),
				slog.String("date", domain.FormatDotted(date)))
			return nil, fmt.Errorf("extracting %s for %s: %w", code, domain.FormatDotted(date), err)
		}
		values = append(values, extracted{code: code, rate: rate, effective: effective})
	}

	// All previous-rate reads happen before the run is written.
	previous := make([]*decimal.Decimal, len(values))
	for i, v := range values {
		previous[i], err = s.rateRepo.FindPreviousRate(ctx, v.code, v.effective)
		if err != nil {
			s.LogError(ctx, err, "Failed to read previous rate", slog.String("currency", string(v.code)))
			return nil, err
		}
	}

	now := s.now().UTC()
	newRun := domain.IngestionRun{
		RunID:         runID,
		Source:        doc.Source,
		Mode:          mode,
		RequestedDate: date,
		IngestedAt:    now,
		Records:       make([]domain.RateRecord, len(values)),
	}
	for i, v := range values {
		trend, delta := domain.ComputeDynamics(v.rate, previous[i])
		newRun.Records[i] = domain.RateRecord{
			RunID:               runID,
			CurrencyCode:        v.code,
			RequestedDate:       date,
			SourceEffectiveDate: v.effective,
			Rate:                v.rate,
			Trend:               trend,
			Delta:               delta,
			IngestedAt:          now,
		}
	}

	return s.save(ctx, newRun)
}

// ingestPeriod fetches one period document per currency and stores one run per effective date.
func (s *ingestionService) ingestPeriod(ctx context.Context, from, to civil.Date, codes []domain.CurrencyCode) ([]domain.IngestionRun, error) {
	byDate := make(map[civil.Date]map[domain.CurrencyCode]decimal.Decimal)
	source := ""
	var errs []error

	for _, code := range codes {
		currency, _ := domain.LookupCurrency(code)
		doc, err := s.fetch(ctx, "period", func(ctx context.Context) (sources.RawDocument, error) {
			return s.source.FetchPeriod(ctx, currency, from, to)
		})
		if err == nil {
			source = doc.Source
			for pr, perr := range s.extractor.ExtractAll(doc) {
				if perr != nil {
					err = fmt.Errorf("extracting %s period: %w", code, perr)
					break
				}
				if byDate[pr.EffectiveDate] == nil {
					byDate[pr.EffectiveDate] = make(map[domain.CurrencyCode]decimal.Decimal)
				}
				byDate[pr.EffectiveDate][code] = pr.Rate
			}
		}
		if err != nil {
			s.LogError(ctx, err, "Failed to load period", slog.String("currency", string(code)))
			s.recorder.ObserveRun(domain.ModeRange, err)
			if !s.continueOnError {
				return nil, err
			}
			errs = append(errs, err)
		}
	}

	dates := make([]civil.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var runs []domain.IngestionRun
	for _, date := range dates {
		run, err := s.storePeriodDate(ctx, source, date, codes, byDate[date])
		if err != nil {
			if !s.continueOnError || ctx.Err() != nil {
				return runs, err
			}
			errs = append(errs, err)
			continue
		}
		runs = append(runs, *run)
	}
	return runs, errors.Join(errs...)
}

func (s *ingestionService) storePeriodDate(ctx context.Context, source string, date civil.Date, codes []domain.CurrencyCode, rates map[domain.CurrencyCode]decimal.Decimal) (run *domain.IngestionRun, err error) {
	runID := uuid.NewString()
	ctx = middleware.WithRunID(ctx, runID)
	defer func() { s.recorder.ObserveRun(domain.ModeRange, err) }()

	now := s.now().UTC()
	newRun := domain.IngestionRun{
		RunID:         runID,
		Source:        source,
		Mode:          domain.ModeRange,
		RequestedDate: date,
		IngestedAt:    now,
	}
	for _, code := range codes {
		rate, ok := rates[code]
		if !ok {
			continue
		}
		prev, err := s.rateRepo.FindPreviousRate(ctx, code, date)
		if err != nil {
			return nil, err
		}
		trend, delta := domain.ComputeDynamics(rate, prev)
		newRun.Records = append(newRun.Records, domain.RateRecord{
			RunID:               runID,
			CurrencyCode:        code,
			RequestedDate:       date,
			SourceEffectiveDate: date,
			Rate:                rate,
			Trend:               trend,
			Delta:               delta,
			IngestedAt:          now,
		})
	}
	return s.save(ctx, newRun)
}

// fetch calls op, retrying source-unavailable failures with linear backoff.
func (s *ingestionService) fetch(ctx context.Context, kind string, op func(context.Context) (sources.RawDocument, error)) (sources.RawDocument, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		start := time.Now()
		doc, err := op(ctx)
		s.recorder.ObserveFetch(kind, time.Since(start), err)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !apperrors.IsRetryable(err) || attempt == s.retryAttempts {
			break
		}

		wait := s.retryBackoff * time.Duration(attempt)
		s.LogWarn(ctx, err, "Source fetch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return sources.RawDocument{}, fmt.Errorf("%w: %v", apperrors.ErrSourceUnavailable, ctx.Err())
		case <-time.After(wait):
		}
	}
	return sources.RawDocument{}, lastErr
}

// save stores the run and fans out to the side channels. Side-channel failures are only logged.
func (s *ingestionService) save(ctx context.Context, run domain.IngestionRun) (*domain.IngestionRun, error) {
	saved, err := s.rateRepo.SaveRun(ctx, run)
	if err != nil {
		s.LogError(ctx, err, "Failed to store ingestion run")
		return nil, err
	}

	for _, rec := range saved.Records {
		s.recorder.ObserveRecord(rec)
		if s.cache != nil {
			if err := s.cache.SetLatest(ctx, rec); err != nil {
				s.LogWarn(ctx, err, "Failed to refresh latest-rate cache", slog.String("currency", string(rec.CurrencyCode)))
			}
		}
		s.LogInfo(ctx, "Stored rate",
			slog.String("currency", string(rec.CurrencyCode)),
			slog.String("requested_date", domain.FormatDotted(rec.RequestedDate)),
			slog.String("effective_date", domain.FormatDotted(rec.SourceEffectiveDate)),
			slog.String("rate", rec.Rate.StringFixed(domain.RatePrecision)),
			slog.String("trend", string(rec.Trend)))
	}

	if err := s.publisher.PublishRun(ctx, *saved); err != nil {
		s.LogWarn(ctx, err, "Failed to publish ingestion run")
	}
	return saved, nil
}
