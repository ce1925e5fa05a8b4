package mapping

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ToModelDate converts a calendar date to the midnight UTC value stored in DATE columns.
func ToModelDate(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// ToDomainDate converts a DATE column value back to a calendar date.
func ToDomainDate(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// ToModelRateRecord converts a domain RateRecord to a model RateRecord.
// An empty RunID maps to NULL.
func ToModelRateRecord(d domain.RateRecord) (models.RateRecord, error) {
	m := models.RateRecord{
		ID:                  d.ID,
		RequestedDate:       ToModelDate(d.RequestedDate),
		SourceEffectiveDate: ToModelDate(d.SourceEffectiveDate),
		Rate:                d.Rate,
		Trend:               string(d.Trend),
		IngestedAt:          d.IngestedAt,
	}
	if d.RunID != "" {
		id, err := uuid.Parse(d.RunID)
		if err != nil {
			return models.RateRecord{}, fmt.Errorf("invalid run id %q: %w", d.RunID, err)
		}
		m.RunID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if d.Delta != nil {
		m.Delta = decimal.NullDecimal{Decimal: *d.Delta, Valid: true}
	}
	return m, nil
}

// ToDomainRateRecord converts a model RateRecord of the given currency to a domain RateRecord.
func ToDomainRateRecord(m models.RateRecord, currency domain.CurrencyCode) domain.RateRecord {
	d := domain.RateRecord{
		ID:                  m.ID,
		CurrencyCode:        currency,
		RequestedDate:       ToDomainDate(m.RequestedDate),
		SourceEffectiveDate: ToDomainDate(m.SourceEffectiveDate),
		Rate:                m.Rate,
		Trend:               domain.Trend(m.Trend),
		IngestedAt:          m.IngestedAt,
	}
	if m.RunID.Valid {
		d.RunID = m.RunID.UUID.String()
	}
	if m.Delta.Valid {
		delta := m.Delta.Decimal
		d.Delta = &delta
	}
	return d
}

// ToDomainRateRecords converts a slice of model RateRecords to domain RateRecords.
func ToDomainRateRecords(ms []models.RateRecord, currency domain.CurrencyCode) []domain.RateRecord {
	if ms == nil {
		return nil
	}
	ds := make([]domain.RateRecord, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainRateRecord(m, currency)
	}
	return ds
}

// ToModelIngestionRun converts a domain IngestionRun to a model IngestionRun.
func ToModelIngestionRun(d domain.IngestionRun) (models.IngestionRun, error) {
	id, err := uuid.Parse(d.RunID)
	if err != nil {
		return models.IngestionRun{}, fmt.Errorf("invalid run id %q: %w", d.RunID, err)
	}
	return models.IngestionRun{
		RunID:         id,
		Source:        d.Source,
		Mode:          string(d.Mode),
		RequestedDate: ToModelDate(d.RequestedDate),
		IngestedAt:    d.IngestedAt,
	}, nil
}
