package domain_test

import (
	"testing"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestComputeDynamics(t *testing.T) {
	tests := []struct {
		name      string
		current   decimal.Decimal
		previous  *decimal.Decimal
		wantTrend domain.Trend
		wantDelta *decimal.Decimal
	}{
		{
			name:      "no previous record",
			current:   decimal.RequireFromString("90.50"),
			previous:  nil,
			wantTrend: domain.TrendUnknown,
			wantDelta: nil,
		},
		{
			name:      "rate increased",
			current:   decimal.RequireFromString("91.20"),
			previous:  decimalPtr("90.50"),
			wantTrend: domain.TrendIncreased,
			wantDelta: decimalPtr("0.70"),
		},
		{
			name:      "rate decreased",
			current:   decimal.RequireFromString("90.50"),
			previous:  decimalPtr("91.20"),
			wantTrend: domain.TrendDecreased,
			wantDelta: decimalPtr("-0.70"),
		},
		{
			name:      "rate unchanged",
			current:   decimal.RequireFromString("98.01"),
			previous:  decimalPtr("98.01"),
			wantTrend: domain.TrendUnchanged,
			wantDelta: decimalPtr("0.00"),
		},
		{
			name:      "delta rounded to two places",
			current:   decimal.RequireFromString("100.004"),
			previous:  decimalPtr("99.999"),
			wantTrend: domain.TrendIncreased,
			wantDelta: decimalPtr("0.01"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trend, delta := domain.ComputeDynamics(tt.current, tt.previous)
			assert.Equal(t, tt.wantTrend, trend)
			if tt.wantDelta == nil {
				assert.Nil(t, delta)
				return
			}
			require.NotNil(t, delta)
			assert.True(t, tt.wantDelta.Equal(*delta), "want %s, got %s", tt.wantDelta, delta)
		})
	}
}

func TestComputeDynamics_UnchangedDeltaIsZeroNotNil(t *testing.T) {
	trend, delta := domain.ComputeDynamics(decimal.RequireFromString("75.35"), decimalPtr("75.35"))
	require.NotNil(t, delta)
	assert.Equal(t, domain.TrendUnchanged, trend)
	assert.Equal(t, "0.00", delta.StringFixed(2))
}

func TestComputeDynamics_IsDeterministic(t *testing.T) {
	prev := decimalPtr("88.12")
	cur := decimal.RequireFromString("87.45")

	t1, d1 := domain.ComputeDynamics(cur, prev)
	t2, d2 := domain.ComputeDynamics(cur, prev)

	assert.Equal(t, t1, t2)
	assert.True(t, d1.Equal(*d2))
	assert.True(t, prev.Equal(decimal.RequireFromString("88.12")), "previous must not be mutated")
}

func TestComputeDynamics_SignMatchesOrdering(t *testing.T) {
	pairs := [][2]string{{"1.01", "1.00"}, {"120.55", "0.01"}, {"75.35", "75.34"}}
	for _, p := range pairs {
		a := decimal.RequireFromString(p[0])
		b := decimal.RequireFromString(p[1])

		up, upDelta := domain.ComputeDynamics(a, &b)
		assert.Equal(t, domain.TrendIncreased, up)
		assert.True(t, a.Sub(b).Equal(*upDelta))

		down, downDelta := domain.ComputeDynamics(b, &a)
		assert.Equal(t, domain.TrendDecreased, down)
		assert.True(t, b.Sub(a).Equal(*downDelta))
	}
}
