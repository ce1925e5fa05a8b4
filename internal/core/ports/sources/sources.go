package sources

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DocumentKind identifies the markup of a fetched document.
type DocumentKind string

const (
	DailyHTML DocumentKind = "daily-html"
	DailyXML  DocumentKind = "daily-xml"
	PeriodXML DocumentKind = "period-xml"
)

// RawDocument is an unparsed page or feed as retrieved from the source.
type RawDocument struct {
	Kind      DocumentKind
	Body      []byte
	URL       string
	Source    string // host the document came from, e.g. "www.cbr.ru"
	FetchedAt time.Time
}

// SourceClient retrieves raw documents. It only guarantees bytes were retrieved:
// transport failures match apperrors.ErrSourceUnavailable, format problems are
// left to the RateExtractor.
type SourceClient interface {
	// FetchDaily fetches the document listing all rates for date.
	FetchDaily(ctx context.Context, date civil.Date) (RawDocument, error)

	// FetchPeriod fetches the rates of one currency for the inclusive range [from, to].
	FetchPeriod(ctx context.Context, currency domain.Currency, from, to civil.Date) (RawDocument, error)
}

// RateExtractor parses raw documents.
type RateExtractor interface {
	// Extract returns the rate of currency and the effective date reported by the document.
	Extract(doc RawDocument, currency domain.CurrencyCode) (decimal.Decimal, civil.Date, error)

	// ExtractAll yields the per-date rates of a period document in source order.
	// The sequence may be ranged over more than once.
	ExtractAll(doc RawDocument) iter.Seq2[domain.PeriodRate, error]
}
