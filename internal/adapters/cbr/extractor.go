package cbr

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/shopspring/decimal"
)

var datePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

// Extractor parses CBR daily pages, daily XML feeds and period XML feeds.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the rate of currency and the effective date the document reports.
func (e *Extractor) Extract(doc sources.RawDocument, currency domain.CurrencyCode) (decimal.Decimal, civil.Date, error) {
	switch doc.Kind {
	case sources.DailyHTML:
		return extractHTML(doc.Body, currency)
	case sources.DailyXML:
		return extractDailyXML(doc.Body, currency)
	default:
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: cannot extract a single rate from a %s document", apperrors.ErrMalformedDocument, doc.Kind)
	}
}

// ExtractAll yields the (effective date, rate) records of a period document in source order.
// Decoding happens while the sequence is ranged over; ranging again re-decodes the body.
func (e *Extractor) ExtractAll(doc sources.RawDocument) iter.Seq2[domain.PeriodRate, error] {
	if doc.Kind != sources.PeriodXML {
		return func(yield func(domain.PeriodRate, error) bool) {
			yield(domain.PeriodRate{}, fmt.Errorf("%w: %s is not a period document", apperrors.ErrMalformedDocument, doc.Kind))
		}
	}
	return periodRecords(doc.Body)
}

// parseRate normalizes a published value such as "75,3456" and returns the
// per-unit rate rounded to two places.
func parseRate(value, nominal string) (decimal.Decimal, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t', '\n', '\r':
			return -1
		case ',':
			return '.'
		}
		return r
	}, value)

	if normalized == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty value", apperrors.ErrMalformedRate)
	}
	rate, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q: %v", apperrors.ErrMalformedRate, value, err)
	}

	units, err := parseNominal(nominal)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if units > 1 {
		rate = rate.Div(decimal.NewFromInt(units))
	}

	rate = domain.RoundRate(rate)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not positive", apperrors.ErrMalformedRate, value)
	}
	return rate, nil
}

func parseNominal(nominal string) (int64, error) {
	nominal = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, strings.TrimSpace(nominal))
	if nominal == "" {
		return 1, nil
	}
	units, err := strconv.ParseInt(nominal, 10, 64)
	if err != nil || units <= 0 {
		return 0, fmt.Errorf("%w: invalid nominal %q", apperrors.ErrMalformedRate, nominal)
	}
	return units, nil
}

func parseEffectiveDate(text string) (civil.Date, error) {
	match := datePattern.FindString(text)
	if match == "" {
		return civil.Date{}, fmt.Errorf("%w: no date found in %q", apperrors.ErrMalformedDocument, strings.TrimSpace(text))
	}
	date, err := domain.ParseDate(match)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err)
	}
	return date, nil
}
