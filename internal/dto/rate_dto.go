package dto

import (
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
)

// RateResponse defines the structure for API responses containing one stored rate.
// Dates are rendered as DD.MM.YYYY and amounts with two decimal places.
type RateResponse struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"runID,omitempty"`
	CurrencyCode  string    `json:"currencyCode"`
	RequestedDate string    `json:"requestedDate"`
	EffectiveDate string    `json:"effectiveDate"`
	Rate          string    `json:"rate"`
	Trend         string    `json:"trend"`
	Delta         *string   `json:"delta"` // null when the trend is unknown
	IngestedAt    time.Time `json:"ingestedAt"`
}

// RateListResponse is returned by the range endpoint.
type RateListResponse struct {
	CurrencyCode string         `json:"currencyCode"`
	From         string         `json:"from"`
	To           string         `json:"to"`
	Rates        []RateResponse `json:"rates"`
}

// ToRateResponse converts a domain.RateRecord to a RateResponse DTO.
func ToRateResponse(rec domain.RateRecord) RateResponse {
	resp := RateResponse{
		ID:            rec.ID,
		RunID:         rec.RunID,
		CurrencyCode:  string(rec.CurrencyCode),
		RequestedDate: domain.FormatDotted(rec.RequestedDate),
		EffectiveDate: domain.FormatDotted(rec.SourceEffectiveDate),
		Rate:          rec.Rate.StringFixed(domain.RatePrecision),
		Trend:         string(rec.Trend),
		IngestedAt:    rec.IngestedAt,
	}
	if rec.Delta != nil {
		delta := rec.Delta.StringFixed(domain.RatePrecision)
		resp.Delta = &delta
	}
	return resp
}

// ToRateResponses converts a slice of records, preserving order.
func ToRateResponses(recs []domain.RateRecord) []RateResponse {
	responses := make([]RateResponse, len(recs))
	for i, rec := range recs {
		responses[i] = ToRateResponse(rec)
	}
	return responses
}
