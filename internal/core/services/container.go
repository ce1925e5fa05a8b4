package services

import (
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	"github.com/SscSPs/cbr_rates/internal/core/ports/events"
	portsrepo "github.com/SscSPs/cbr_rates/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/core/ports/sources"
	"github.com/SscSPs/cbr_rates/internal/platform/config"
)

// Dependencies groups the adapters the services are built from.
// Recorder, Publisher and Cache are optional.
type Dependencies struct {
	Source    sources.SourceClient
	Extractor sources.RateExtractor
	Recorder  events.IngestionRecorder
	Publisher events.RunPublisher
	Cache     portsrepo.LatestRateCache
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, deps Dependencies) *portssvc.ServiceContainer {
	ingestionOpts := []IngestionOption{
		WithDefaultCurrencies(cfg.Currencies),
		WithRangeStrategy(cfg.RangeStrategy),
		WithContinueOnError(cfg.ContinueOnError),
		WithRetry(cfg.SourceRetryAttempts, cfg.SourceRetryBackoff),
		WithLocation(cfg.ScheduleLocation),
	}
	if deps.Recorder != nil {
		ingestionOpts = append(ingestionOpts, WithRecorder(deps.Recorder))
	}
	if deps.Publisher != nil {
		ingestionOpts = append(ingestionOpts, WithPublisher(deps.Publisher))
	}

	basis := domain.ByRequestedDate
	if cfg.RangeStrategy == domain.RangePeriod {
		basis = domain.ByEffectiveDate
	}
	queryOpts := []QueryOption{WithDateBasis(basis)}

	if deps.Cache != nil {
		ingestionOpts = append(ingestionOpts, WithLatestCache(deps.Cache))
		queryOpts = append(queryOpts, WithReadCache(deps.Cache))
	}

	return &portssvc.ServiceContainer{
		Ingestion: NewIngestionService(deps.Source, deps.Extractor, repos.RateRepo, ingestionOpts...),
		Query:     NewRateQueryService(repos.RateRepo, queryOpts...),
	}
}
