package proxy

import (
	"context"

	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"go.uber.org/zap"
)

// WithExceptionWrapping converts returned errors and panics into failed
// Results so nothing but a Result leaves the function.
func WithExceptionWrapping(logger *zap.Logger) Decorator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(fn function.Function) function.Function {
		return wrap(fn, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (v any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Warn("function panicked",
						zap.String("function", fn.ID()),
						zap.Any("panic", r),
					)
					v, err = result.FromPanic(r), nil
				}
			}()

			v, err = fn.Invoke(ctx, env, input, args)
			if err != nil {
				logger.Warn("function failed",
					zap.String("function", fn.ID()),
					zap.Error(err),
				)
				return result.FromError(err), nil
			}
			return result.From(v, nil), nil
		})
	}
}
