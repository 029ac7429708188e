package engine

import (
	"context"

	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
	"go.uber.org/zap"
)

// task invokes one decorated function for one cell.
type task struct {
	fn        function.Function
	env       function.Environment
	input     any
	args      function.Arguments
	traceType trace.Type
	scope     *cache.Scope
	logger    *zap.Logger

	// fold stores the task's item in the results.
	fold func(*resultBuilder, ResultItem)
}

func (t *task) call(ctx context.Context) (item ResultItem) {
	tracer := trace.New(t.traceType)
	ctx = trace.WithTracer(ctx, tracer)
	ctx, release := cache.Attach(ctx, t.scope)
	defer release()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("panic escaped the decorator chain",
				zap.String("function", t.fn.ID()),
				zap.Any("panic", r),
			)
			item = ResultItem{Result: result.FromPanic(r), CallGraph: tracer.CallGraph()}
		}
	}()

	res := result.From(t.fn.Invoke(ctx, t.env, t.input, t.args))
	return ResultItem{Result: res, CallGraph: tracer.CallGraph()}
}

func portfolioFold(cell Cell) func(*resultBuilder, ResultItem) {
	return func(b *resultBuilder, item ResultItem) { b.addPortfolio(cell, item) }
}

func outputFold(name string) func(*resultBuilder, ResultItem) {
	return func(b *resultBuilder, item ResultItem) { b.addOutput(name, item) }
}
