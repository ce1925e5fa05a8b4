package cbr

import (
	"bytes"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/PuerkitoBio/goquery"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Column layout of the daily rates table:
// numeric code, letter code, units, name, rate.
const (
	unitsColumn   = 2
	rateColumn    = 4
	minRowColumns = 5
)

func extractHTML(body []byte, currency domain.CurrencyCode) (decimal.Decimal, civil.Date, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err)
	}

	header := doc.Find("h2.h3").First()
	if header.Length() == 0 {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: rates date header not found", apperrors.ErrMalformedDocument)
	}
	effective, err := parseEffectiveDate(header.Text())
	if err != nil {
		return decimal.Decimal{}, civil.Date{}, err
	}

	cell := doc.Find("td").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == string(currency)
	}).First()
	if cell.Length() == 0 {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: %s", apperrors.ErrCurrencyNotFound, currency)
	}

	cells := cell.Closest("tr").Find("td")
	if cells.Length() < minRowColumns {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: row for %s has %d cells, want %d", apperrors.ErrMalformedDocument, currency, cells.Length(), minRowColumns)
	}

	rate, err := parseRate(cells.Eq(rateColumn).Text(), cells.Eq(unitsColumn).Text())
	if err != nil {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%s: %w", currency, err)
	}
	return rate, effective, nil
}
