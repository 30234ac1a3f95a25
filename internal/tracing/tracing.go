// Package tracing wraps an otel tracer and a slog logger behind the two
// knobs this module needs: ServiceName and Enabled. Grounded on the
// teacher's `core/pkg/observability.Provider`, trimmed down from its full
// OTLP-exporting metrics+tracing surface (this core produces an in-process
// graph artifact, not a service with its own export pipeline -- an
// embedding runtime owns where spans ultimately go) to spans opened with
// TrackOperation. Its only caller is cmd/arroyo-plan's run, which wraps a
// whole plan run in one span; the bridge and the graph visitor open none.
package tracing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config is the trimmed-down equivalent of observability.Config: just the
// two knobs this module reads from internal/config.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Tracer pairs an otel tracer with a slog logger, matching how
// observability.Provider threads both through TrackOperation.
type Tracer struct {
	config   Config
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	logger   *slog.Logger
}

// New constructs a Tracer. When cfg.Enabled is false the returned Tracer's
// spans are no-ops (otel's default noop tracer) and no tracer provider is
// installed, matching observability.Provider's own disabled-mode
// short-circuit. The log level is the same in both modes.
func New(cfg Config) *Tracer {
	logger := slog.Default().With("component", "planner.tracing", "service", cfg.ServiceName)

	t := &Tracer{config: cfg, logger: logger}
	if !cfg.Enabled {
		logger.Info("tracing disabled")
		t.tracer = otel.Tracer(cfg.ServiceName)
		return t
	}

	t.provider = sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(t.provider)
	t.tracer = otel.Tracer(cfg.ServiceName)
	logger.Info("tracing enabled")
	return t
}

// Logger returns the wrapped structured logger.
func (t *Tracer) Logger() *slog.Logger { return t.logger }

// Shutdown flushes and tears down the underlying tracer provider, when one
// was created (a disabled Tracer has none).
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TrackOperation starts a span named name with a fresh UUID correlation
// ID attribute (the way request IDs are threaded through the teacher's
// kernel), logs entry/exit, and returns a completion function recording
// the operation's duration and any error -- the same
// start/defer-record-duration-and-error shape as
// observability.Provider.TrackOperation, minus the RED metric counters
// this module has no meter for.
func (t *Tracer) TrackOperation(ctx context.Context, name string) (context.Context, func(error)) {
	correlationID := uuid.NewString()
	start := time.Now()

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("planner.correlation_id", correlationID)),
	)

	log := t.logger.With("operation", name, "correlation_id", correlationID)
	log.DebugContext(ctx, "operation started")

	return ctx, func(err error) {
		duration := time.Since(start)
		if err != nil {
			span.RecordError(err)
			log.ErrorContext(ctx, "operation failed", "duration", duration, "error", err)
		} else {
			log.DebugContext(ctx, "operation finished", "duration", duration)
		}
		span.End()
	}
}
