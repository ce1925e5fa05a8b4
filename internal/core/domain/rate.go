package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Trend is the qualitative day-over-day change of a rate.
type Trend string

const (
	TrendIncreased Trend = "increased"
	TrendDecreased Trend = "decreased"
	TrendUnchanged Trend = "unchanged"
	TrendUnknown   Trend = "unknown"
)

// IngestionMode tells whether a run came from a single-date or a range ingestion.
type IngestionMode string

const (
	ModeSingle IngestionMode = "single"
	ModeRange  IngestionMode = "range"
)

// RangeStrategy selects how a multi-day ingestion talks to the source.
type RangeStrategy string

const (
	// RangeDaily fetches one daily document per calendar date.
	RangeDaily RangeStrategy = "daily"
	// RangePeriod fetches one period document per currency.
	RangePeriod RangeStrategy = "period"
)

// DateBasis selects which date column a point-in-time lookup matches.
type DateBasis string

const (
	// ByRequestedDate matches the date the caller asked for (daily ingestion).
	ByRequestedDate DateBasis = "requested"
	// ByEffectiveDate matches the date the source reported (period ingestion).
	ByEffectiveDate DateBasis = "effective"
)

// RateRecord is one observation of one currency on one date. Records are append-only.
type RateRecord struct {
	ID                  int64            `json:"id"` // insertion order, assigned by the store
	RunID               string           `json:"runID"`
	CurrencyCode        CurrencyCode     `json:"currencyCode"`
	RequestedDate       civil.Date       `json:"requestedDate"`
	SourceEffectiveDate civil.Date       `json:"sourceEffectiveDate"`
	Rate                decimal.Decimal  `json:"rate"`
	Trend               Trend            `json:"trend"`
	Delta               *decimal.Decimal `json:"delta,omitempty"` // nil iff Trend is unknown
	IngestedAt          time.Time        `json:"ingestedAt"`
}

// IngestionRun groups the records written together in one ingestion pass.
type IngestionRun struct {
	RunID         string        `json:"runID"`
	Source        string        `json:"source"`
	Mode          IngestionMode `json:"mode"`
	RequestedDate civil.Date    `json:"requestedDate"`
	IngestedAt    time.Time     `json:"ingestedAt"`
	Records       []RateRecord  `json:"records"`
}

// PeriodRate is one (effective date, rate) tuple from a range document.
type PeriodRate struct {
	EffectiveDate civil.Date
	Rate          decimal.Decimal
}
