package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/platform/config"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("cbr_rates", pflag.ContinueOnError)
	serveHTTP := flags.Bool("http", true, "serve the HTTP API in long-running modes")
	skipMigrations := flags.Bool("skip-migrations", false, "do not apply database migrations on start")
	currencies := flags.String("currencies", "", "comma separated currencies overriding CURRENCIES, e.g. USD,EUR,CNY")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return usageExitCode
	}

	inv, err := parseInvocation(flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "cbr_rates: %v\n\n", err)
		flags.Usage()
		return usageExitCode
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		return failureExitCode
	}
	if *currencies != "" {
		codes, err := domain.ParseCurrencyList(*currencies)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cbr_rates: --currencies: %v\n", err)
			return usageExitCode
		}
		cfg.Currencies = codes
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger, !*skipMigrations)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		return failureExitCode
	}
	defer app.Close()

	logger = logger.With(slog.String("mode", string(inv.mode)))
	if inv.mode == modeRunForRange {
		if err := app.runRange(ctx, inv); err != nil {
			logger.Error("Range ingestion failed", slog.String("error", err.Error()))
			return failureExitCode
		}
		return 0
	}

	if err := app.serve(ctx, inv, *serveHTTP); err != nil {
		logger.Error("Stopped with error", slog.String("error", err.Error()))
		return failureExitCode
	}
	logger.Info("Shut down cleanly")
	return 0
}
