package dto

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRateResponse(t *testing.T) {
	delta := decimal.RequireFromString("-0.7")
	rec := domain.RateRecord{
		ID:                  3,
		CurrencyCode:        domain.USD,
		RequestedDate:       civil.Date{Year: 2024, Month: time.March, Day: 3},
		SourceEffectiveDate: civil.Date{Year: 2024, Month: time.March, Day: 2},
		Rate:                decimal.RequireFromString("90.5"),
		Trend:               domain.TrendDecreased,
		Delta:               &delta,
	}

	resp := ToRateResponse(rec)
	assert.Equal(t, "03.03.2024", resp.RequestedDate)
	assert.Equal(t, "02.03.2024", resp.EffectiveDate)
	assert.Equal(t, "90.50", resp.Rate)
	require.NotNil(t, resp.Delta)
	assert.Equal(t, "-0.70", *resp.Delta)

	rec.Trend, rec.Delta = domain.TrendUnknown, nil
	assert.Nil(t, ToRateResponse(rec).Delta)
}
