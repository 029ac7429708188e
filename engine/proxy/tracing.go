package proxy

import (
	"context"

	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/on-the-ground/calcgraph_go/engine/proxy"

// WithTracing records every invocation in the task's call graph and emits an
// OpenTelemetry span for it. Without a tracer in ctx only the span is emitted.
func WithTracing() Decorator {
	tracer := otel.Tracer(instrumentationName)
	return func(fn function.Function) function.Function {
		return wrap(fn, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
			ctx, span := tracer.Start(ctx, fn.Name(), oteltrace.WithAttributes(
				attribute.String("calcgraph.function.id", fn.ID()),
				attribute.String("calcgraph.function.declaring_type", typeString(fn)),
			))
			defer span.End()

			ctx, call := trace.FromContext(ctx).Start(ctx, fn, input, args)
			v, err := fn.Invoke(ctx, env, input, args)
			res := result.From(v, err)
			call.End(res)
			if !res.IsSuccess() {
				span.SetStatus(codes.Error, res.Failure().Message)
			}
			return v, err
		})
	}
}

func typeString(fn function.Function) string {
	if t := fn.DeclaringType(); t != nil {
		return t.String()
	}
	return ""
}
