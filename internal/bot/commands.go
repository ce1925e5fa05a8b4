// Package bot turns chat commands into rate queries and manual ingestions.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/middleware"
)

const (
	startText = "Greetings!\n" +
		"Press /rates to get the last exchange rates from the database\n" +
		"or input /rates_on DD.MM.YYYY to get exchange rates on a given date.\n" +
		"Press /help to get more information."

	helpText = "1) To get the last rates input /rates.\n" +
		"2) To get rates for a specific date input /rates_on DD.MM.YYYY\n" +
		"for example, /rates_on 01.02.2022\n" +
		"3) To fetch today's rates from cbr.ru input /fetch."

	ratesOnUsage = "Please input the date as /rates_on DD.MM.YYYY, for example /rates_on 01.02.2022"
)

// Dispatcher answers bot commands. It never talks to the chat transport itself.
type Dispatcher struct {
	query      portssvc.RateQuerySvc
	ingestion  portssvc.IngestionSvc
	currencies []domain.CurrencyCode
}

// NewDispatcher creates a Dispatcher answering for currencies.
func NewDispatcher(services *portssvc.ServiceContainer, currencies []domain.CurrencyCode) *Dispatcher {
	return &Dispatcher{
		query:      services.Query,
		ingestion:  services.Ingestion,
		currencies: currencies,
	}
}

// Handle returns the reply messages for one command. command is given without
// the leading slash; args is the rest of the message.
func (d *Dispatcher) Handle(ctx context.Context, command, args string) []string {
	logger := middleware.GetLoggerFromCtx(ctx).With(slog.String("command", command))
	ctx = middleware.WithLogger(ctx, logger)

	switch command {
	case "start":
		return []string{startText}
	case "help":
		return []string{helpText}
	case "rates":
		return d.latestRates(ctx)
	case "rates_on":
		return d.ratesOn(ctx, args)
	case "fetch":
		return []string{d.fetchToday(ctx)}
	default:
		return []string{"Unknown command. Press /help to see what I can do."}
	}
}

func (d *Dispatcher) latestRates(ctx context.Context) []string {
	replies := make([]string, 0, len(d.currencies))
	for _, code := range d.currencies {
		rec, err := d.query.GetLatestRate(ctx, code)
		switch {
		case err == nil:
			replies = append(replies, fmt.Sprintf("%s on %s is %s (%s)",
				code, domain.FormatDotted(rec.SourceEffectiveDate), rec.Rate.StringFixed(domain.RatePrecision), formatDynamics(*rec)))
		case errors.Is(err, apperrors.ErrNotFound):
			replies = append(replies, fmt.Sprintf("Error! There is no data for %s rates", code))
		default:
			middleware.GetLoggerFromCtx(ctx).Error("Failed to read latest rate", slog.String("currency", string(code)), slog.String("error", err.Error()))
			replies = append(replies, fmt.Sprintf("%s rates are temporarily unavailable, please try again later", code))
		}
	}
	return replies
}

func (d *Dispatcher) ratesOn(ctx context.Context, args string) []string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return []string{ratesOnUsage}
	}
	date, err := domain.ParseDate(fields[len(fields)-1])
	if err != nil {
		return []string{ratesOnUsage}
	}
	dotted := domain.FormatDotted(date)

	replies := make([]string, 0, len(d.currencies))
	for _, code := range d.currencies {
		rec, err := d.query.GetRateOn(ctx, code, date)
		switch {
		case err == nil:
			replies = append(replies, fmt.Sprintf("%s on %s was %s", code, dotted, rec.Rate.StringFixed(domain.RatePrecision)))
		case errors.Is(err, apperrors.ErrNotFound):
			replies = append(replies, fmt.Sprintf("Error! There is no %s rates on %s", code, dotted))
		default:
			middleware.GetLoggerFromCtx(ctx).Error("Failed to read rate on date", slog.String("currency", string(code)), slog.String("date", dotted), slog.String("error", err.Error()))
			replies = append(replies, fmt.Sprintf("%s rates on %s are temporarily unavailable, please try again later", code, dotted))
		}
	}
	return replies
}

func (d *Dispatcher) fetchToday(ctx context.Context) string {
	run, err := d.ingestion.IngestToday(ctx)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Manual fetch failed", slog.String("error", err.Error()))
		switch {
		case errors.Is(err, apperrors.ErrSourceUnavailable), errors.Is(err, apperrors.ErrStorageUnavailable):
			return "Rates are temporarily unavailable, please try again later"
		case errors.Is(err, apperrors.ErrCurrencyNotFound):
			return "Error! cbr.ru has not published rates for every currency yet"
		default:
			return "Error! Fetching rates failed: " + err.Error()
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fetched rates for %s:", domain.FormatDotted(run.RequestedDate))
	for _, rec := range run.Records {
		fmt.Fprintf(&b, "\n%s %s (%s)", rec.CurrencyCode, rec.Rate.StringFixed(domain.RatePrecision), formatDynamics(rec))
	}
	return b.String()
}

// formatDynamics renders a trend with its signed delta, e.g. "increased, +0.70".
func formatDynamics(rec domain.RateRecord) string {
	if rec.Delta == nil {
		return string(rec.Trend)
	}
	delta := rec.Delta.StringFixed(domain.RatePrecision)
	if rec.Delta.IsPositive() {
		delta = "+" + delta
	}
	return fmt.Sprintf("%s, %s", rec.Trend, delta)
}
