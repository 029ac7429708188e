// Package proxy wraps resolved functions in the engine's cross-cutting
// behaviors. Each Decorator turns a function.Function into another one with
// the same metadata and call contract, so decorators compose freely.
package proxy

import (
	"context"

	"github.com/on-the-ground/calcgraph_go/engine/function"
)

// Decorator wraps a function in one behavior.
type Decorator func(function.Function) function.Function

// Compose returns a decorator applying decorators outermost first:
// Compose(a, b)(fn) behaves like a(b(fn)).
func Compose(decorators ...Decorator) Decorator {
	return func(fn function.Function) function.Function {
		for i := len(decorators) - 1; i >= 0; i-- {
			fn = decorators[i](fn)
		}
		return fn
	}
}

type decorated struct {
	function.Function
	invoke function.InvokeFunc
	chain  *Chain
}

func (d *decorated) Invoke(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
	return d.invoke(ctx, env, input, args)
}

func wrap(fn function.Function, invoke function.InvokeFunc) function.Function {
	return &decorated{Function: fn, invoke: invoke}
}
