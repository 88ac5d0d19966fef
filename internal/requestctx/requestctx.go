// Package requestctx carries request-scoped identifiers through contexts
// shared by the HTTP layer and background jobs.
package requestctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	jobRunIDKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithJobRunID marks ctx as running inside the recorded job run runID.
func WithJobRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, jobRunIDKey, runID)
}

func GetJobRunID(ctx context.Context) string {
	value, _ := ctx.Value(jobRunIDKey).(string)
	return value
}
