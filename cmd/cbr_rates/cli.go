package main

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
)

type mode string

const (
	modeRunScheduled    mode = "run-scheduled"
	modeRunForRange     mode = "run-for-range"
	modeServeBot        mode = "serve-bot"
	modeScheduledAndBot mode = "run-scheduled-and-serve-bot"
)

const (
	failureExitCode = 1
	usageExitCode   = 2
)

const usageText = `Usage: cbr_rates [flags] <mode> [period]

Modes:
  run-scheduled                  ingest today's rates every day at SCHEDULE_AT
  run-for-range <period>         ingest every date of period and exit
  serve-bot                      answer Telegram bot commands
  run-scheduled-and-serve-bot    both of the above

Period formats:
  MM.YYYY                        a calendar month, e.g. 02.2024
  DD.MM.YYYY-DD.MM.YYYY          an inclusive range
  DD/MM/YYYY-DD/MM/YYYY          an inclusive range

Flags:
`

// invocation is a validated command line.
type invocation struct {
	mode     mode
	from, to civil.Date
}

func (m mode) runsScheduler() bool {
	return m == modeRunScheduled || m == modeScheduledAndBot
}

func (m mode) servesBot() bool {
	return m == modeServeBot || m == modeScheduledAndBot
}

// parseInvocation validates the positional arguments.
func parseInvocation(args []string) (invocation, error) {
	if len(args) == 0 {
		return invocation{}, fmt.Errorf("missing mode")
	}

	inv := invocation{mode: mode(args[0])}
	switch inv.mode {
	case modeRunForRange:
		if len(args) != 2 {
			return invocation{}, fmt.Errorf("%s requires exactly one period argument", inv.mode)
		}
		from, to, err := domain.ParsePeriod(args[1])
		if err != nil {
			return invocation{}, err
		}
		inv.from, inv.to = from, to
	case modeRunScheduled, modeServeBot, modeScheduledAndBot:
		if len(args) > 1 {
			return invocation{}, fmt.Errorf("%s takes no period argument", inv.mode)
		}
	default:
		return invocation{}, fmt.Errorf("unknown mode %q", args[0])
	}
	return inv, nil
}
