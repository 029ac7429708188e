package proxy

import (
	"context"

	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
)

// WithCaching memoizes outcomes in the cycle cache bound to the call's
// context. A hit returns the stored outcome without calling anything further
// down the chain. Without a bound cache the call goes straight through.
// Non-cacheable functions are returned unwrapped.
func WithCaching() Decorator {
	return func(fn function.Function) function.Function {
		if !fn.Cacheable() {
			return fn
		}
		return wrap(fn, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
			scope, ok := cache.FromContext(ctx)
			if !ok {
				return fn.Invoke(ctx, env, input, args)
			}
			key := cache.NewKey(fn, env, input, args)
			if cache.IsExecuting(ctx, key) {
				// the call chain is computing this key already
				return fn.Invoke(ctx, env, input, args)
			}
			if res, hit := scope.Get(key); hit {
				markCacheHit(ctx, fn)
				return res, nil
			}
			res, shared := scope.Compute(key, func() result.Result {
				return result.From(fn.Invoke(cache.WithExecuting(ctx, key), env, input, args))
			})
			if shared {
				markCacheHit(ctx, fn)
			}
			return res, nil
		})
	}
}

func markCacheHit(ctx context.Context, fn function.Function) {
	if call := trace.CurrentCall(ctx); call != nil && call.FunctionID == fn.ID() {
		call.MarkCacheHit()
	}
}
