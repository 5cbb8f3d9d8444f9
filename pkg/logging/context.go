package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

// WithLogger stores logger in ctx. A nil logger stores the default one.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithFields returns a context whose logger adds fields to every event.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	logger := FromContext(ctx).With().Fields(fields).Logger()
	return WithLogger(ctx, &logger)
}

// WithField is WithFields for a single field.
func WithField(ctx context.Context, key string, value any) context.Context {
	return WithFields(ctx, map[string]any{key: value})
}

// WithRunID tags every event of a batch run with its ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return WithField(ctx, "run_id", runID)
}

// RunID returns the batch run ID stored by WithRunID.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithDocument tags events with the document identifier.
func WithDocument(ctx context.Context, documentID string) context.Context {
	return WithField(ctx, "doc_id", documentID)
}

// WithFile tags events with the input file.
func WithFile(ctx context.Context, path string) context.Context {
	return WithField(ctx, "file", path)
}

// WithSequence tags events with the 1-based position of the file in the batch.
func WithSequence(ctx context.Context, seq int) context.Context {
	return WithField(ctx, "seq", seq)
}

// WithSource tags events with the metadata table being loaded.
func WithSource(ctx context.Context, source string) context.Context {
	return WithField(ctx, "source", source)
}
