package dto

import (
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
)

// CreateIngestionRequest triggers an ingestion. With neither Date nor Period set
// today's rates are ingested.
type CreateIngestionRequest struct {
	Date       string   `json:"date" binding:"omitempty,cbrdate,excluded_with=Period"`
	Period     string   `json:"period" binding:"omitempty,cbrperiod"`
	Currencies []string `json:"currencies" binding:"omitempty,dive,len=3"`
}

// IngestionRunResponse describes one stored run.
type IngestionRunResponse struct {
	RunID         string         `json:"runID"`
	Source        string         `json:"source"`
	Mode          string         `json:"mode"`
	RequestedDate string         `json:"requestedDate"`
	IngestedAt    time.Time      `json:"ingestedAt"`
	Rates         []RateResponse `json:"rates"`
}

// CreateIngestionResponse lists the runs stored by one request. Errors holds the
// per-date failures of a range ingested with continue-on-error.
type CreateIngestionResponse struct {
	Runs   []IngestionRunResponse `json:"runs"`
	Errors []string               `json:"errors,omitempty"`
}

// ToIngestionRunResponse converts a domain.IngestionRun to its DTO.
func ToIngestionRunResponse(run domain.IngestionRun) IngestionRunResponse {
	return IngestionRunResponse{
		RunID:         run.RunID,
		Source:        run.Source,
		Mode:          string(run.Mode),
		RequestedDate: domain.FormatDotted(run.RequestedDate),
		IngestedAt:    run.IngestedAt,
		Rates:         ToRateResponses(run.Records),
	}
}

// ToCreateIngestionResponse converts stored runs to the response DTO.
func ToCreateIngestionResponse(runs []domain.IngestionRun) CreateIngestionResponse {
	resp := CreateIngestionResponse{Runs: make([]IngestionRunResponse, len(runs))}
	for i, run := range runs {
		resp.Runs[i] = ToIngestionRunResponse(run)
	}
	return resp
}
