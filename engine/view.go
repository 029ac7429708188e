package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/config"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/graph"
	"github.com/on-the-ground/calcgraph_go/engine/metrics"
	"github.com/on-the-ground/calcgraph_go/engine/pool"
	"github.com/on-the-ground/calcgraph_go/engine/portfolio"
	"github.com/on-the-ground/calcgraph_go/engine/proxy"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/zap"
)

var ErrMissingResolver = errors.New("engine: missing graph resolver")

// Params configures NewView.
type Params struct {
	Config   config.ViewConfig
	Resolver graph.Resolver

	// CacheProvider supplies each cycle's cache. Without one, caching is
	// skipped.
	CacheProvider cache.Provider

	// Chain decorates every resolved function. Pass the chain used to
	// decorate functions' own dependencies so nested calls share the
	// cycle cache and call graph. When nil, a chain is built from Services
	// and Metrics.
	Chain *proxy.Chain
	// Services selects the decorators applied to every function.
	Services proxy.Services
	// Metrics receives the metrics decorator's measurements.
	Metrics *metrics.Registry

	// SystemDefaults is the lowest-precedence function configuration.
	SystemDefaults config.FunctionModelConfig

	// Inputs are the portfolio rows used by Run.
	Inputs []any

	// Pool runs the tasks. When nil the view starts its own pool with
	// Workers workers and a queue of QueueSize, and Close stops it.
	Pool      *pool.Pool
	Workers   int
	QueueSize int

	Logger *zap.Logger
}

// View calculates a configured set of columns and outputs.
type View struct {
	cfg      config.ViewConfig
	graph    *graph.Graph
	chain    *proxy.Chain
	provider cache.Provider
	defaults config.FunctionModelConfig
	inputs   []any
	pool     *pool.Pool
	ownsPool bool
	logger   *zap.Logger
}

// NewView validates the configuration, resolves its function graph and
// prepares the decorator chain.
func NewView(ctx context.Context, p Params) (*View, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("view", p.Config.Name))

	if err := p.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid view config: %w", err)
	}
	if p.Resolver == nil {
		return nil, ErrMissingResolver
	}
	g, err := p.Resolver.Resolve(ctx, p.Config)
	if err != nil {
		return nil, err
	}

	chain := p.Chain
	if chain == nil {
		chain = proxy.NewChain(p.Services, p.Metrics, logger)
	}
	v := &View{
		cfg:      p.Config,
		graph:    g,
		chain:    chain,
		provider: p.CacheProvider,
		defaults: p.SystemDefaults,
		inputs:   p.Inputs,
		pool:     p.Pool,
		logger:   logger,
	}
	if v.pool == nil {
		v.pool = pool.New(context.Background(), p.Workers, p.QueueSize, logger)
		v.ownsPool = true
	}

	logger.Debug("view created",
		zap.Int("columns", len(p.Config.Columns)),
		zap.Int("outputs", len(p.Config.NonPortfolioOutputs)),
		zap.Stringer("services", v.chain.Services()),
	)
	return v, nil
}

// Close stops the pool if the view started it.
func (v *View) Close() {
	if v.ownsPool {
		v.pool.Close()
	}
}

// Services returns the decorators in effect.
func (v *View) Services() proxy.Services {
	return v.chain.Services()
}

// FunctionModelFor describes the function that calculates column for inputs
// of inputType.
func (v *View) FunctionModelFor(column string, inputType reflect.Type) (graph.FunctionModel, bool) {
	if fn, ok := v.graph.FunctionFor(column, inputType); ok {
		if m, ok := v.graph.Models().ForColumn(column, inputType); ok {
			return m, true
		}
		// matched through an interface registration
		for _, m := range v.graph.Models().ColumnModels(column) {
			if m.FunctionID == fn.ID() {
				return m, true
			}
		}
	}
	return graph.FunctionModel{}, false
}

// FunctionModelForOutput describes the function of a non-portfolio output.
func (v *View) FunctionModelForOutput(name string) (graph.FunctionModel, bool) {
	return v.graph.Models().ForOutput(name)
}

// Run calculates the view for its configured inputs.
func (v *View) Run(ctx context.Context, args CycleArguments) (*Results, error) {
	return v.RunInputs(ctx, args, v.inputs)
}

// RunInputs calculates the view for the given input rows. It blocks until
// every cell has a result. An error means the cycle could not run at all.
func (v *View) RunInputs(ctx context.Context, args CycleArguments, inputs []any) (*Results, error) {
	start := time.Now()
	c := newCycle(v.logger)

	scope := v.newScope(c)
	if scope != nil {
		defer scope.Close()
	}

	c.transition(CycleResolving)
	tasks := v.portfolioTasks(args, inputs, scope, c)
	tasks = append(tasks, v.outputTasks(args, scope, c)...)
	initialized := time.Now()

	c.transition(CycleExecuting)
	jobs := make([]func(context.Context) ResultItem, len(tasks))
	for i, t := range tasks {
		jobs[i] = t.call
	}
	outcomes, err := pool.InvokeAll(ctx, v.pool, jobs)
	if err != nil {
		c.transition(CycleFailed)
		c.logger.Error("cycle failed", zap.Error(err))
		return nil, fmt.Errorf("cycle %s: %w", c.id, err)
	}
	executed := time.Now()

	c.transition(CycleCollecting)
	outputNames := make([]string, len(v.cfg.NonPortfolioOutputs))
	for i, o := range v.cfg.NonPortfolioOutputs {
		outputNames[i] = o.Name
	}
	builder := newResultBuilder(c.id, v.cfg.Name, v.cfg.ColumnNames(), append([]any(nil), inputs...), outputNames)
	for i, o := range outcomes {
		item := o.Value
		if o.Err != nil {
			c.logger.Warn("task outcome not retrieved",
				zap.String("function", tasks[i].fn.ID()),
				zap.Error(o.Err),
			)
			item = ResultItem{Result: result.FailureOf(result.StatusAbandoned, "%v", o.Err)}
		}
		tasks[i].fold(builder, item)
	}
	end := time.Now()

	var stats cache.Stats
	if scope != nil {
		stats = scope.Stats()
	}
	c.transition(CycleComplete)
	c.logger.Debug("cycle complete",
		zap.Int("tasks", len(tasks)),
		zap.Duration("elapsed", end.Sub(start)),
		zap.Int64("cacheHits", stats.Hits),
	)

	return builder.build(Timings{
		Cycle:          timespan.BetweenTimes(start, end),
		Initialization: timespan.BetweenTimes(start, initialized),
		Execution:      timespan.BetweenTimes(initialized, executed),
		ResultsBuild:   timespan.BetweenTimes(executed, end),
	}, stats), nil
}

// newScope obtains the cycle cache. Caching is best-effort: a missing or
// failing provider leaves the cycle uncached.
func (v *View) newScope(c *cycle) *cache.Scope {
	if v.provider == nil {
		return nil
	}
	cc, err := v.provider.NewCacheForCycle()
	if err != nil {
		c.logger.Warn("cycle cache unavailable, running uncached", zap.Error(err))
		return nil
	}
	return cache.NewScope(cc)
}

func (v *View) portfolioTasks(args CycleArguments, inputs []any, scope *cache.Scope, c *cycle) []*task {
	tasks := make([]*task, 0, len(inputs)*len(v.cfg.Columns))
	for row, input := range inputs {
		for col, column := range v.cfg.Columns {
			fn, payload := v.resolve(column, input)
			cell := Cell{Row: row, Column: col}
			cfg := column.ConfigFor(reflect.TypeOf(payload))
			tasks = append(tasks, &task{
				fn:        v.chain.Decorate(fn),
				env:       v.environment(args, column.Name),
				input:     payload,
				args:      v.arguments(args, cfg, fn),
				traceType: args.TraceTypeFor(cell),
				scope:     scope,
				logger:    c.logger,
				fold:      portfolioFold(cell),
			})
		}
	}
	return tasks
}

func (v *View) outputTasks(args CycleArguments, scope *cache.Scope, c *cycle) []*task {
	tasks := make([]*task, 0, len(v.cfg.NonPortfolioOutputs))
	for _, out := range v.cfg.NonPortfolioOutputs {
		fn, ok := v.graph.OutputFunction(out.Name)
		if !ok {
			fn = function.InvalidInput(fmt.Sprintf("no function for output %s", out.Name))
		}
		tasks = append(tasks, &task{
			fn:        v.chain.Decorate(fn),
			env:       v.environment(args, out.Name),
			input:     out.Input,
			args:      v.arguments(args, out.Config, fn),
			traceType: args.TraceTypeForOutput(out.Name),
			scope:     scope,
			logger:    c.logger,
			fold:      outputFold(out.Name),
		})
	}
	return tasks
}

// resolve picks the function for input in column and the value to pass it.
// A position or trade with no function of its own falls back to its
// security, which is then passed instead of the wrapper.
func (v *View) resolve(column config.ViewColumn, input any) (function.Function, any) {
	if input == nil {
		return function.InvalidInput("input is nil"), nil
	}
	if fn, ok := v.graph.FunctionFor(column.Name, reflect.TypeOf(input)); ok {
		return fn, input
	}

	if holding, ok := input.(portfolio.PositionOrTrade); ok {
		security, err := holding.Security()
		switch {
		case errors.Is(err, portfolio.ErrPermissionDenied):
			return function.PermissionDenied(err.Error()), input
		case err != nil:
			return function.InvalidInput(fmt.Sprintf("resolving security of %v: %v", input, err)), input
		case security != nil:
			if fn, ok := v.graph.FunctionFor(column.Name, reflect.TypeOf(security)); ok {
				return fn, security
			}
		}
	}

	return function.InvalidInput(fmt.Sprintf("no function for %T in column %s", input, column.Name)), input
}

func (v *View) environment(args CycleArguments, name string) function.Environment {
	return function.NewEnv(args.ValuationTimeFor(name), args.MarketData, args.CacheInvalidator).
		WithScenario(v.cfg.Scenario.Filter(name))
}

// arguments merges the arguments for fn: cycle arguments, overridden by the
// column's configuration merged with the view defaults and system defaults.
func (v *View) arguments(args CycleArguments, cfg config.FunctionModelConfig, fn function.Function) function.Arguments {
	configured := cfg.MergedWith(v.cfg.DefaultConfig).MergedWith(v.defaults)
	return args.FunctionArguments.ArgumentsFor(fn).MergedWith(configured.ArgumentsFor(fn))
}
