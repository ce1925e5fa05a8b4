package domain

import "github.com/shopspring/decimal"

// RatePrecision is the number of decimal places rates and deltas are stored with.
const RatePrecision = 2

// ComputeDynamics derives the trend and signed delta of current against previous.
// A nil previous means no prior record exists and yields (TrendUnknown, nil).
func ComputeDynamics(current decimal.Decimal, previous *decimal.Decimal) (Trend, *decimal.Decimal) {
	if previous == nil {
		return TrendUnknown, nil
	}

	delta := current.Sub(*previous).Round(RatePrecision)
	switch delta.Sign() {
	case 1:
		return TrendIncreased, &delta
	case -1:
		return TrendDecreased, &delta
	default:
		zero := decimal.Zero.Round(RatePrecision)
		return TrendUnchanged, &zero
	}
}

// RoundRate rounds a rate to RatePrecision places, half away from zero
// (identical to half-up for the positive values rates are).
func RoundRate(rate decimal.Decimal) decimal.Decimal {
	return rate.Round(RatePrecision)
}
