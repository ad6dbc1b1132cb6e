package tracing

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tanpawarit/supervisor-agent/pkg/tracing"

// Handler opens one span per eino graph node or component run. A nil tp
// uses the global provider.
func Handler(tp trace.TracerProvider) callbacks.Handler {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(instrumentationName)

	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			ctx, _ = tracer.Start(ctx, spanName(info), trace.WithAttributes(runInfoAttributes(info)...))
			return ctx
		}).
		OnEndFn(func(ctx context.Context, _ *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			trace.SpanFromContext(ctx).End()
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, _ *callbacks.RunInfo, err error) context.Context {
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		}).
		Build()
}

func spanName(info *callbacks.RunInfo) string {
	if info == nil {
		return "eino.unknown"
	}
	switch {
	case info.Name != "":
		return "eino." + info.Name
	case info.Type != "":
		return "eino." + info.Type
	default:
		return "eino." + string(info.Component)
	}
}

func runInfoAttributes(info *callbacks.RunInfo) []attribute.KeyValue {
	if info == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String("eino.name", info.Name),
		attribute.String("eino.type", info.Type),
		attribute.String("eino.component", string(info.Component)),
	}
}
