package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/models"
	"github.com/SscSPs/cbr_rates/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const rateColumns = `id, run_id, requested_date, source_effective_date, rate, trend, delta, ingested_at`

// PgxRateRepository implements portsrepo.RateRepositoryFacade on one table per currency.
type PgxRateRepository struct {
	BaseRepository
}

// NewPgxRateRepository creates a new PgxRateRepository.
func NewPgxRateRepository(db *pgxpool.Pool) *PgxRateRepository {
	return &PgxRateRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

// tableFor resolves the quoted table name of a currency. Only known currencies have a table.
func tableFor(currency domain.CurrencyCode) (string, error) {
	c, ok := domain.LookupCurrency(currency)
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported currency %q", currency))
	}
	return pgx.Identifier{c.TableName}.Sanitize(), nil
}

// AppendRate inserts a record and returns its id. Records are never deduplicated.
func (r *PgxRateRepository) AppendRate(ctx context.Context, record domain.RateRecord) (int64, error) {
	return r.appendRate(ctx, r.Pool, record)
}

func (r *PgxRateRepository) appendRate(ctx context.Context, q querier, record domain.RateRecord) (int64, error) {
	table, err := tableFor(record.CurrencyCode)
	if err != nil {
		return 0, err
	}
	if record.IngestedAt.IsZero() {
		record.IngestedAt = time.Now().UTC()
	}

	m, err := mapping.ToModelRateRecord(record)
	if err != nil {
		return 0, apperrors.NewValidationError(err.Error())
	}

	query := `
		INSERT INTO ` + table + ` (
			run_id, requested_date, source_effective_date, rate, trend, delta, ingested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`
	var id int64
	err = q.QueryRow(ctx, query,
		m.RunID, m.RequestedDate, m.SourceEffectiveDate, m.Rate, m.Trend, m.Delta, m.IngestedAt,
	).Scan(&id)
	if err != nil {
		return 0, apperrors.NewStorageError(fmt.Sprintf("failed to insert %s rate", record.CurrencyCode), err)
	}
	return id, nil
}

// SaveRun inserts the run row and all of its records in one transaction.
func (r *PgxRateRepository) SaveRun(ctx context.Context, run domain.IngestionRun) (*domain.IngestionRun, error) {
	modelRun, err := mapping.ToModelIngestionRun(run)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO ingestion_runs (run_id, source, mode, requested_date, ingested_at)
		VALUES ($1, $2, $3, $4, $5)`,
		modelRun.RunID, modelRun.Source, modelRun.Mode, modelRun.RequestedDate, modelRun.IngestedAt,
	)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to insert ingestion run", err)
	}

	saved := run
	saved.Records = make([]domain.RateRecord, len(run.Records))
	for i, rec := range run.Records {
		rec.RunID = run.RunID
		if rec.IngestedAt.IsZero() {
			rec.IngestedAt = run.IngestedAt
		}
		id, err := r.appendRate(ctx, tx, rec)
		if err != nil {
			return nil, err
		}
		rec.ID = id
		saved.Records[i] = rec
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &saved, nil
}

// FindPreviousRate returns the rate of the newest record whose effective date differs from excluding.
func (r *PgxRateRepository) FindPreviousRate(ctx context.Context, currency domain.CurrencyCode, excluding civil.Date) (*decimal.Decimal, error) {
	table, err := tableFor(currency)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT rate
		FROM ` + table + `
		WHERE source_effective_date <> $1
		ORDER BY id DESC
		LIMIT 1;
	`
	var rate decimal.Decimal
	err = r.Pool.QueryRow(ctx, query, mapping.ToModelDate(excluding)).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to find previous %s rate", currency), err)
	}
	return &rate, nil
}

// FindLatestRate returns the most recently inserted record of a currency.
func (r *PgxRateRepository) FindLatestRate(ctx context.Context, currency domain.CurrencyCode) (*domain.RateRecord, error) {
	table, err := tableFor(currency)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + rateColumns + ` FROM ` + table + ` ORDER BY id DESC LIMIT 1;`
	return r.findOne(ctx, currency, query)
}

// FindRateOn returns the most recently inserted record whose date matches on the given basis.
func (r *PgxRateRepository) FindRateOn(ctx context.Context, currency domain.CurrencyCode, date civil.Date, basis domain.DateBasis) (*domain.RateRecord, error) {
	table, err := tableFor(currency)
	if err != nil {
		return nil, err
	}

	column := "requested_date"
	if basis == domain.ByEffectiveDate {
		column = "source_effective_date"
	}
	query := `
		SELECT ` + rateColumns + `
		FROM ` + table + `
		WHERE ` + column + ` = $1
		ORDER BY id DESC
		LIMIT 1;
	`
	return r.findOne(ctx, currency, query, mapping.ToModelDate(date))
}

// ListRatesBetween returns one record per effective date in [from, to], ascending.
// When a date was ingested more than once the newest insertion wins.
func (r *PgxRateRepository) ListRatesBetween(ctx context.Context, currency domain.CurrencyCode, from, to civil.Date) ([]domain.RateRecord, error) {
	table, err := tableFor(currency)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT DISTINCT ON (source_effective_date) ` + rateColumns + `
		FROM ` + table + `
		WHERE source_effective_date BETWEEN $1 AND $2
		ORDER BY source_effective_date ASC, id DESC;
	`
	rows, err := r.Pool.Query(ctx, query, mapping.ToModelDate(from), mapping.ToModelDate(to))
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to list %s rates", currency), err)
	}
	defer rows.Close()

	var modelRecords []models.RateRecord
	for rows.Next() {
		m, err := scanRateRecord(rows)
		if err != nil {
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to scan %s rate", currency), err)
		}
		modelRecords = append(modelRecords, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to list %s rates", currency), err)
	}

	if len(modelRecords) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no %s rates between %s and %s", currency, domain.FormatDotted(from), domain.FormatDotted(to)))
	}
	return mapping.ToDomainRateRecords(modelRecords, currency), nil
}

func (r *PgxRateRepository) findOne(ctx context.Context, currency domain.CurrencyCode, query string, args ...any) (*domain.RateRecord, error) {
	m, err := scanRateRecord(r.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("%s rate not found", currency))
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to find %s rate", currency), err)
	}
	rec := mapping.ToDomainRateRecord(m, currency)
	return &rec, nil
}

func scanRateRecord(row pgx.Row) (models.RateRecord, error) {
	var m models.RateRecord
	err := row.Scan(
		&m.ID, &m.RunID, &m.RequestedDate, &m.SourceEffectiveDate,
		&m.Rate, &m.Trend, &m.Delta, &m.IngestedAt,
	)
	return m, err
}
