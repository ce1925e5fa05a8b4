package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/events"
	"github.com/segmentio/kafka-go"
)

// RunEvent is the message published for every stored ingestion run.
type RunEvent struct {
	RunID         string        `json:"runID"`
	Source        string        `json:"source"`
	Mode          string        `json:"mode"`
	RequestedDate string        `json:"requestedDate"` // DD.MM.YYYY
	IngestedAt    time.Time     `json:"ingestedAt"`
	Rates         []RatePayload `json:"rates"`
}

// RatePayload is one currency of a RunEvent.
type RatePayload struct {
	Currency      string  `json:"currency"`
	EffectiveDate string  `json:"effectiveDate"` // DD.MM.YYYY
	Rate          string  `json:"rate"`
	Trend         string  `json:"trend"`
	Delta         *string `json:"delta,omitempty"`
}

// NewRunEvent converts a run to its wire form.
func NewRunEvent(run domain.IngestionRun) RunEvent {
	ev := RunEvent{
		RunID:         run.RunID,
		Source:        run.Source,
		Mode:          string(run.Mode),
		RequestedDate: domain.FormatDotted(run.RequestedDate),
		IngestedAt:    run.IngestedAt,
		Rates:         make([]RatePayload, 0, len(run.Records)),
	}
	for _, rec := range run.Records {
		p := RatePayload{
			Currency:      string(rec.CurrencyCode),
			EffectiveDate: domain.FormatDotted(rec.SourceEffectiveDate),
			Rate:          rec.Rate.StringFixed(domain.RatePrecision),
			Trend:         string(rec.Trend),
		}
		if rec.Delta != nil {
			d := rec.Delta.StringFixed(domain.RatePrecision)
			p.Delta = &d
		}
		ev.Rates = append(ev.Rates, p)
	}
	return ev
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RunPublisher publishes RunEvents to a Kafka topic, keyed by run id.
type RunPublisher struct {
	writer messageWriter
}

var _ events.RunPublisher = (*RunPublisher)(nil)

// NewRunPublisher creates a publisher writing to topic on brokers.
func NewRunPublisher(brokers []string, topic string) *RunPublisher {
	return &RunPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// PublishRun writes one message describing run.
func (p *RunPublisher) PublishRun(ctx context.Context, run domain.IngestionRun) error {
	value, err := json.Marshal(NewRunEvent(run))
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.RunID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(run.RunID),
		Value: value,
		Time:  run.IngestedAt,
	})
	if err != nil {
		return fmt.Errorf("publishing run %s: %w", run.RunID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *RunPublisher) Close() error {
	return p.writer.Close()
}
