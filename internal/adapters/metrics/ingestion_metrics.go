package metrics

import (
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestionMetrics holds the Prometheus collectors of the ingestion pipeline.
type IngestionMetrics struct {
	// Source fetches
	FetchDuration *prometheus.HistogramVec

	// Runs by mode and outcome
	RunsTotal *prometheus.CounterVec

	// Stored records
	RecordsTotal *prometheus.CounterVec
	LatestRate   *prometheus.GaugeVec
	LatestDelta  *prometheus.GaugeVec
}

var _ events.IngestionRecorder = (*IngestionMetrics)(nil)

// NewIngestionMetrics registers the collectors on reg.
func NewIngestionMetrics(reg prometheus.Registerer) *IngestionMetrics {
	factory := promauto.With(reg)
	return &IngestionMetrics{
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cbr_source_fetch_duration_seconds",
				Help:    "Duration of requests to the rate source",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
			},
			[]string{"kind", "outcome"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cbr_ingestion_runs_total",
				Help: "Ingestion runs by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cbr_rate_records_total",
				Help: "Stored rate records by currency and trend",
			},
			[]string{"currency", "trend"},
		),

		LatestRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cbr_rate_rub",
				Help: "Most recently stored rate in roubles per unit",
			},
			[]string{"currency"},
		),

		LatestDelta: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cbr_rate_delta_rub",
				Help: "Day-over-day change of the most recently stored rate",
			},
			[]string{"currency"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveFetch records the duration of one source request.
func (m *IngestionMetrics) ObserveFetch(kind string, duration time.Duration, err error) {
	m.FetchDuration.WithLabelValues(kind, outcome(err)).Observe(duration.Seconds())
}

// ObserveRun counts a finished run.
func (m *IngestionMetrics) ObserveRun(mode domain.IngestionMode, err error) {
	m.RunsTotal.WithLabelValues(string(mode), outcome(err)).Inc()
}

// ObserveRecord counts a stored record and exports its rate.
func (m *IngestionMetrics) ObserveRecord(record domain.RateRecord) {
	currency := string(record.CurrencyCode)
	m.RecordsTotal.WithLabelValues(currency, string(record.Trend)).Inc()
	m.LatestRate.WithLabelValues(currency).Set(record.Rate.InexactFloat64())
	if record.Delta != nil {
		m.LatestDelta.WithLabelValues(currency).Set(record.Delta.InexactFloat64())
	}
}
