package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instruments are the tracer and counters used by the chat cycle.
type Instruments struct {
	tracer trace.Tracer

	inferenceFailures   metric.Int64Counter
	persistenceFailures metric.Int64Counter
	turns               metric.Int64Counter
}

// New creates instruments from the given providers. Nil providers fall back
// to the global ones.
func New(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(ServiceName)
	i := &Instruments{tracer: tp.Tracer(ServiceName)}

	var err error
	if i.inferenceFailures, err = meter.Int64Counter("parley.inference.failures",
		metric.WithDescription("Inference calls that ended in a placeholder or upstream error.")); err != nil {
		return nil, err
	}
	if i.persistenceFailures, err = meter.Int64Counter("parley.persistence.failures",
		metric.WithDescription("Snapshot writes that failed.")); err != nil {
		return nil, err
	}
	if i.turns, err = meter.Int64Counter("parley.turns",
		metric.WithDescription("Turns appended to transcripts.")); err != nil {
		return nil, err
	}

	return i, nil
}

// StartChat opens the span covering one chat cycle.
func (i *Instruments) StartChat(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "parley.chat", trace.WithAttributes(
		attribute.String("parley.session_id", sessionID),
	))
}

// InferenceFailed counts a failed inference by kind.
func (i *Instruments) InferenceFailed(ctx context.Context, kind string) {
	i.inferenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// PersistenceFailed counts a failed snapshot write.
func (i *Instruments) PersistenceFailed(ctx context.Context) {
	i.persistenceFailures.Add(ctx, 1)
}

// TurnAppended counts one appended turn by role.
func (i *Instruments) TurnAppended(ctx context.Context, role string) {
	i.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}
