package proxy

import (
	"context"
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/metrics"
	"github.com/on-the-ground/calcgraph_go/engine/result"
)

// WithMetrics times every invocation that reaches it under the function's ID
// and counts failed outcomes.
func WithMetrics(registry *metrics.Registry) Decorator {
	return func(fn function.Function) function.Function {
		timer := registry.Timer(fn.ID())
		return wrap(fn, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
			start := time.Now()
			v, err := fn.Invoke(ctx, env, input, args)
			timer.Observe(time.Since(start))
			if !result.From(v, err).IsSuccess() {
				registry.IncFailure(fn.ID())
			}
			return v, err
		})
	}
}
