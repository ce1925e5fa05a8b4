package services

// ServiceContainer holds instances of all the application services.
// It is handed to the HTTP handlers, the bot and the scheduler.
type ServiceContainer struct {
	Ingestion IngestionSvc
	Query     RateQuerySvc
}
