package events

import (
	"context"
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
)

// RunPublisher announces completed ingestion runs to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, run domain.IngestionRun) error
}

// IngestionRecorder receives ingestion telemetry.
type IngestionRecorder interface {
	ObserveFetch(kind string, duration time.Duration, err error)
	ObserveRun(mode domain.IngestionMode, err error)
	ObserveRecord(record domain.RateRecord)
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishRun(context.Context, domain.IngestionRun) error { return nil }

// NopRecorder discards telemetry.
type NopRecorder struct{}

func (NopRecorder) ObserveFetch(string, time.Duration, error) {}
func (NopRecorder) ObserveRun(domain.IngestionMode, error) {}
func (NopRecorder) ObserveRecord(domain.RateRecord) {}
