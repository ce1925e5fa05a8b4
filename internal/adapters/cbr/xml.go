package cbr

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"
)

// dailyValCurs mirrors XML_daily.asp:
//
//	<ValCurs Date="02.03.2024" name="Foreign Currency Market">
//	  <Valute ID="R01235"><CharCode>USD</CharCode><Nominal>1</Nominal><Value>91,6359</Value></Valute>
//	</ValCurs>
type dailyValCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	ID       string `xml:"ID,attr"`
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

// periodRecord mirrors one <Record> of XML_dynamic.asp.
type periodRecord struct {
	Date    string `xml:"Date,attr"`
	ID      string `xml:"Id,attr"`
	Nominal string `xml:"Nominal"`
	Value   string `xml:"Value"`
}

// The source serves windows-1251; charset picks the decoder from the XML prolog.
func newXMLDecoder(body []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

func extractDailyXML(body []byte, currency domain.CurrencyCode) (decimal.Decimal, civil.Date, error) {
	var doc dailyValCurs
	if err := newXMLDecoder(body).Decode(&doc); err != nil {
		return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err)
	}

	effective, err := parseEffectiveDate(doc.Date)
	if err != nil {
		return decimal.Decimal{}, civil.Date{}, err
	}

	for _, v := range doc.Valutes {
		if strings.TrimSpace(v.CharCode) != string(currency) {
			continue
		}
		rate, err := parseRate(v.Value, v.Nominal)
		if err != nil {
			return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%s: %w", currency, err)
		}
		return rate, effective, nil
	}
	return decimal.Decimal{}, civil.Date{}, fmt.Errorf("%w: %s", apperrors.ErrCurrencyNotFound, currency)
}

func periodRecords(body []byte) iter.Seq2[domain.PeriodRate, error] {
	return func(yield func(domain.PeriodRate, error) bool) {
		dec := newXMLDecoder(body)
		rootSeen := false

		for {
			tok, err := dec.Token()
			if errors.Is(err, io.EOF) {
				if !rootSeen {
					yield(domain.PeriodRate{}, fmt.Errorf("%w: empty document", apperrors.ErrMalformedDocument))
				}
				return
			}
			if err != nil {
				yield(domain.PeriodRate{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err))
				return
			}

			start, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}
			if !rootSeen {
				if start.Name.Local != "ValCurs" {
					yield(domain.PeriodRate{}, fmt.Errorf("%w: unexpected root element <%s>", apperrors.ErrMalformedDocument, start.Name.Local))
					return
				}
				rootSeen = true
				continue
			}
			if start.Name.Local != "Record" {
				if err := dec.Skip(); err != nil {
					yield(domain.PeriodRate{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err))
					return
				}
				continue
			}

			var rec periodRecord
			if err := dec.DecodeElement(&rec, &start); err != nil {
				yield(domain.PeriodRate{}, fmt.Errorf("%w: %v", apperrors.ErrMalformedDocument, err))
				return
			}
			pr, err := rec.toPeriodRate()
			if !yield(pr, err) || err != nil {
				return
			}
		}
	}
}

func (r periodRecord) toPeriodRate() (domain.PeriodRate, error) {
	effective, err := parseEffectiveDate(r.Date)
	if err != nil {
		return domain.PeriodRate{}, err
	}
	rate, err := parseRate(r.Value, r.Nominal)
	if err != nil {
		return domain.PeriodRate{}, fmt.Errorf("record %s: %w", r.Date, err)
	}
	return domain.PeriodRate{EffectiveDate: effective, Rate: rate}, nil
}
