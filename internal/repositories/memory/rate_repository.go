// Package memory holds an in-process rate store used for tests and for
// running without Postgres (STORAGE_BACKEND=memory).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// RateRepository keeps rate records in insertion order per currency.
type RateRepository struct {
	mu      sync.RWMutex
	nextID  int64
	records map[domain.CurrencyCode][]domain.RateRecord
	runs    map[string]domain.IngestionRun
}

var _ portsrepo.RateRepositoryFacade = (*RateRepository)(nil)

// NewRateRepository creates an empty RateRepository.
func NewRateRepository() *RateRepository {
	return &RateRepository{
		records: make(map[domain.CurrencyCode][]domain.RateRecord),
		runs:    make(map[string]domain.IngestionRun),
	}
}

// NewRepositoryProvider wires the in-memory implementations of every repository port.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{RateRepo: NewRateRepository()}
}

func (r *RateRepository) AppendRate(ctx context.Context, record domain.RateRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewStorageError("append cancelled", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendLocked(record)
}

func (r *RateRepository) appendLocked(record domain.RateRecord) (int64, error) {
	if _, ok := domain.LookupCurrency(record.CurrencyCode); !ok {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unsupported currency %q", record.CurrencyCode))
	}
	if !record.Rate.IsPositive() {
		return 0, apperrors.NewValidationError("rate must be positive")
	}
	if record.IngestedAt.IsZero() {
		record.IngestedAt = time.Now().UTC()
	}
	r.nextID++
	record.ID = r.nextID
	r.records[record.CurrencyCode] = append(r.records[record.CurrencyCode], record)
	return record.ID, nil
}

// SaveRun appends every record of the run. Either all records are stored or none.
func (r *RateRepository) SaveRun(ctx context.Context, run domain.IngestionRun) (*domain.IngestionRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageError("save cancelled", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range run.Records {
		if _, ok := domain.LookupCurrency(rec.CurrencyCode); !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported currency %q", rec.CurrencyCode))
		}
		if !rec.Rate.IsPositive() {
			return nil, apperrors.NewValidationError("rate must be positive")
		}
	}

	saved := run
	saved.Records = make([]domain.RateRecord, len(run.Records))
	for i, rec := range run.Records {
		rec.RunID = run.RunID
		if rec.IngestedAt.IsZero() {
			rec.IngestedAt = run.IngestedAt
		}
		id, err := r.appendLocked(rec)
		if err != nil {
			return nil, err
		}
		rec.ID = id
		saved.Records[i] = rec
	}
	r.runs[run.RunID] = saved
	return &saved, nil
}

func (r *RateRepository) FindPreviousRate(_ context.Context, currency domain.CurrencyCode, excluding civil.Date) (*decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.records[currency]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].SourceEffectiveDate != excluding {
			rate := recs[i].Rate
			return &rate, nil
		}
	}
	return nil, nil
}

func (r *RateRepository) FindLatestRate(_ context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.records[currency]
	if len(recs) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s rate not found", currency))
	}
	rec := recs[len(recs)-1]
	return &rec, nil
}

func (r *RateRepository) FindRateOn(_ context.Context, currency domain.CurrencyCode, date civil.Date, basis domain.DateBasis) (*domain.RateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.records[currency]
	for i := len(recs) - 1; i >= 0; i-- {
		match := recs[i].RequestedDate
		if basis == domain.ByEffectiveDate {
			match = recs[i].SourceEffectiveDate
		}
		if match == date {
			rec := recs[i]
			return &rec, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s rate on %s not found", currency, domain.FormatDotted(date)))
}

func (r *RateRepository) ListRatesBetween(_ context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	newest := make(map[civil.Date]domain.RateRecord)
	for _, rec := range r.records[currency] {
		d := rec.SourceEffectiveDate
		if d.Before(from) || d.After(to) {
			continue
		}
		newest[d] = rec // later insertions overwrite earlier ones
	}
	if len(newest) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no %s rates between %s and %s", currency, domain.FormatDotted(from), domain.FormatDotted(to)))
	}

	out := make([]domain.RateRecord, 0, len(newest))
	for _, rec := range newest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SourceEffectiveDate.Before(out[j].SourceEffectiveDate)
	})
	return out, nil
}

// Run returns a stored ingestion run by id.
func (r *RateRepository) Run(runID string) (domain.IngestionRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	return run, ok
}
