package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/cbr_rates/internal/adapters/cache/redis"
	"github.com/SscSPs/cbr_rates/internal/adapters/cbr"
	"github.com/SscSPs/cbr_rates/internal/adapters/events/kafka"
	"github.com/SscSPs/cbr_rates/internal/adapters/metrics"
	"github.com/SscSPs/cbr_rates/internal/app/background"
	"github.com/SscSPs/cbr_rates/internal/bot"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/SscSPs/cbr_rates/internal/core/services"
	"github.com/SscSPs/cbr_rates/internal/handlers"
	"github.com/SscSPs/cbr_rates/internal/platform/config"
	"github.com/SscSPs/cbr_rates/internal/repositories/database/pgsql"
	"github.com/SscSPs/cbr_rates/internal/repositories/memory"
	"github.com/SscSPs/cbr_rates/pkg/database"
	"golang.org/x/sync/errgroup"
)

// application holds the wired services and the resources to release on exit.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *portssvc.ServiceContainer
	metrics  http.Handler
	closers  []func()
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, runMigrations bool) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	repos, err := app.openStorage(ctx, runMigrations)
	if err != nil {
		app.Close()
		return nil, err
	}

	dailyKind := sources.DailyHTML
	if cfg.SourceFormat == "xml" {
		dailyKind = sources.DailyXML
	}
	client, err := cbr.NewClient(cfg.SourceBaseURL, cfg.SourceTimeout, cbr.WithDailyKind(dailyKind))
	if err != nil {
		app.Close()
		return nil, err
	}

	reg := metrics.NewRegistry()
	app.metrics = metrics.Handler(reg)

	deps := services.Dependencies{
		Source:    client,
		Extractor: cbr.NewExtractor(),
		Recorder:  metrics.NewIngestionMetrics(reg),
	}

	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Latest-rate cache disabled", slog.String("error", err.Error()))
		} else {
			deps.Cache = redis.NewLatestRateCache(rc, cfg.CacheTTL)
			app.closers = append(app.closers, func() { _ = rc.Close() })
			logger.Info("Latest-rate cache enabled", slog.Duration("ttl", cfg.CacheTTL))
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewRunPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		deps.Publisher = pub
		app.closers = append(app.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Error("Error closing Kafka publisher", slog.String("error", err.Error()))
			}
		})
		logger.Info("Publishing ingestion runs", slog.String("topic", cfg.KafkaTopic))
	}

	app.services = services.NewServiceContainer(cfg, repos, deps)
	return app, nil
}

func (a *application) openStorage(ctx context.Context, runMigrations bool) (portsrepo.RepositoryProvider, error) {
	if a.cfg.StorageBackend == config.StorageMemory {
		a.logger.Warn("Using in-memory storage, rates are lost on exit")
		return memory.NewRepositoryProvider(), nil
	}

	if runMigrations {
		a.logger.Info("Running database migrations...")
		if err := database.RunMigrations(a.cfg.DatabaseURL, a.cfg.MigrationsPath); err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
	}

	pool, err := database.NewPgxPool(ctx, a.cfg.DatabaseURL, a.cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, err
	}
	a.closers = append(a.closers, func() { database.ClosePgxPool(pool) })
	a.logger.Info("Database connection pool established.")
	return pgsql.NewRepositoryProvider(pool), nil
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// runRange ingests [inv.from, inv.to] once.
func (a *application) runRange(ctx context.Context, inv invocation) error {
	runs, err := a.services.Ingestion.IngestRange(ctx, inv.from, inv.to, a.cfg.Currencies)
	records := 0
	for _, run := range runs {
		records += len(run.Records)
	}
	a.logger.Info("Range ingestion finished", slog.Int("runs", len(runs)), slog.Int("records", records))
	return err
}

// serve runs the long-lived components of inv until ctx is done or one fails.
func (a *application) serve(ctx context.Context, inv invocation, serveHTTP bool) error {
	g, ctx := errgroup.WithContext(ctx)

	if inv.mode.runsScheduler() {
		scheduler, err := background.NewDailyScheduler(a.services.Ingestion, a.cfg.ScheduleAt, a.cfg.ScheduleLocation, a.logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			scheduler.Start(ctx)
			return nil
		})
	}

	if inv.mode.servesBot() {
		tg, err := bot.NewTelegramBot(a.cfg.TelegramBotToken, bot.NewDispatcher(a.services, a.cfg.Currencies), a.logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return tg.Run(ctx) })
	}

	if serveHTTP {
		router, err := handlers.NewRouter(a.cfg, a.services, a.metrics, a.logger)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              ":" + a.cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("Server starting", slog.String("port", a.cfg.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
