package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OtelEmitter turns each Event into a zero-duration OpenTelemetry span,
// so a trace backend can correlate node lifecycle events with any spans
// a node's own exec phase opens (HTTP calls, LLM calls, ...).
type OtelEmitter struct {
	tracer trace.Tracer
}

// NewOtelEmitter wraps a tracer obtained via otel.Tracer("flowforge/wfcore").
func NewOtelEmitter(tracer trace.Tracer) *OtelEmitter {
	return &OtelEmitter{tracer: tracer}
}

func (o *OtelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("run_id", event.RunID),
		attribute.String("node_id", event.NodeID),
		attribute.Int("visit", event.Visit),
	)
	for k, v := range event.Meta {
		span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", v)))
	}
	if errVal, ok := event.Meta["error"]; ok {
		span.SetStatus(codes.Error, fmt.Sprintf("%v", errVal))
	}
}

func (o *OtelEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		o.Emit(event)
	}
	return nil
}

func (o *OtelEmitter) Flush(_ context.Context) error { return nil }
