package middleware

import "context"

// runIDKey carries the id of the ingestion run a log line or request belongs to.
const runIDKey = contextKey("runID")

// WithRunID returns a copy of ctx tagged with an ingestion run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunIDFromCtx returns the ingestion run id stored by WithRunID.
func GetRunIDFromCtx(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok && runID != ""
}
