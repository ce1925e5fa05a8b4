package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateRecord is one row of a per-currency rates table (usd_rates, eur_rates, ...).
type RateRecord struct {
	ID                  int64               `json:"id"` // BIGSERIAL, insertion order
	RunID               uuid.NullUUID       `json:"runID"`
	RequestedDate       time.Time           `json:"requestedDate"`       // DATE
	SourceEffectiveDate time.Time           `json:"sourceEffectiveDate"` // DATE
	Rate                decimal.Decimal     `json:"rate"`                // NUMERIC(12,2)
	Trend               string              `json:"trend"`
	Delta               decimal.NullDecimal `json:"delta"` // NULL when trend is unknown
	IngestedAt          time.Time           `json:"ingestedAt"`
}

// IngestionRun is a row of ingestion_runs, grouping the records written together.
type IngestionRun struct {
	RunID         uuid.UUID `json:"runID"`
	Source        string    `json:"source"`
	Mode          string    `json:"mode"`
	RequestedDate time.Time `json:"requestedDate"`
	IngestedAt    time.Time `json:"ingestedAt"`
}
