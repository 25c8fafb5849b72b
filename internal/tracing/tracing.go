// Package tracing wraps the OpenTelemetry tracer coreassist threads
// through the turn loop and provider adapters. No SDK is wired up by
// default, so every span is a no-op until a process actually installs
// an OTel SDK's TracerProvider via otel.SetTracerProvider — the same
// pattern the rest of the pack uses to make tracing available without
// forcing a collector dependency on every deployment.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/coreassist/coreassist"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartTurn opens a span covering one full agent turn (potentially
// several provider round trips across tool calls).
func StartTurn(ctx context.Context, sessionID, providerID, modelID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "session.turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("provider.id", providerID),
			attribute.String("model.id", modelID),
		),
	)
}

// StartCompletion opens a span covering a single provider completion
// request within a turn.
func StartCompletion(ctx context.Context, providerID, modelID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "provider.completion",
		trace.WithAttributes(
			attribute.String("provider.id", providerID),
			attribute.String("model.id", modelID),
		),
	)
}

// StartToolCall opens a span covering one tool execution.
func StartToolCall(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "tool.call", trace.WithAttributes(attribute.String("tool.name", toolName)))
}
