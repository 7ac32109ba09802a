// Package logger owns the process-wide zerolog setup. Engine and scheduler
// code pulls a logger out of the context with log.Ctx, so anything that
// runs under a traced request logs with its trace and span IDs attached.
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup configures the global logger. Local development gets a colored
// console writer at debug level; everywhere else emits JSON at info.
func Setup(isLocalDev bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if isLocalDev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// EnrichContextWithLogger attaches a logger carrying the active span's
// trace_id and span_id to ctx. A context without a recording span is
// returned unchanged.
func EnrichContextWithLogger(ctx context.Context) context.Context {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return ctx
	}

	sCtx := span.SpanContext()
	if !sCtx.HasTraceID() {
		return ctx
	}

	l := log.With().
		Str("trace_id", sCtx.TraceID().String()).
		Str("span_id", sCtx.SpanID().String()).
		Logger()

	return l.WithContext(ctx)
}
