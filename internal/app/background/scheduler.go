package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/middleware"
)

// DailyScheduler runs today's ingestion once a day at a fixed wall-clock time.
type DailyScheduler struct {
	ingestion portssvc.IngestionSvc
	hour      int
	minute    int
	loc       *time.Location
	logger    *slog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewDailyScheduler creates a scheduler firing at `at` (HH:MM) in loc.
func NewDailyScheduler(ingestion portssvc.IngestionSvc, at string, loc *time.Location, logger *slog.Logger) (*DailyScheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: expected HH:MM", at)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{
		ingestion: ingestion,
		hour:      t.Hour(),
		minute:    t.Minute(),
		loc:       loc,
		logger:    logger,
		now:       time.Now,
		after:     time.After,
	}, nil
}

// nextOccurrence returns the first hour:minute in loc strictly after now.
func nextOccurrence(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start blocks until ctx is done. A failed run is logged and the scheduler
// waits for the next occurrence.
func (s *DailyScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting daily ingestion scheduler",
		slog.String("at", fmt.Sprintf("%02d:%02d", s.hour, s.minute)),
		slog.String("tz", s.loc.String()))

	for {
		next := nextOccurrence(s.now(), s.hour, s.minute, s.loc)
		s.logger.Debug("Next scheduled ingestion", slog.Time("at", next))

		select {
		case <-ctx.Done():
			s.logger.Info("Stopping daily ingestion scheduler")
			return
		case <-s.after(next.Sub(s.now())):
			s.runOnce(ctx)
		}
	}
}

func (s *DailyScheduler) runOnce(ctx context.Context) {
	logger := s.logger.With(slog.String("job", "daily_ingestion"))
	ctx = middleware.WithLogger(ctx, logger)

	start := time.Now()
	run, err := s.ingestion.IngestToday(ctx)
	if err != nil {
		logger.Error("Scheduled ingestion failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("Scheduled ingestion finished",
		slog.String("run_id", run.RunID),
		slog.String("date", domain.FormatDotted(run.RequestedDate)),
		slog.Int("records", len(run.Records)),
		slog.Duration("took", time.Since(start)))
}
