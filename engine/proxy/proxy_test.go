package proxy_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/calcgraph_go/engine/cache"
	"github.com/on-the-ground/calcgraph_go/engine/function"
	"github.com/on-the-ground/calcgraph_go/engine/log"
	"github.com/on-the-ground/calcgraph_go/engine/metrics"
	"github.com/on-the-ground/calcgraph_go/engine/proxy"
	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/on-the-ground/calcgraph_go/engine/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type pricer interface{}

type impl struct{}

var env = function.NewEnv(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil, nil)

func countingFn(name string, calls *atomic.Int64, body function.InvokeFunc) function.Function {
	return function.For[pricer](name, impl{}, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
		calls.Add(1)
		return body(ctx, env, input, args)
	})
}

// nested builds outer -> inner -> leaf where outer calls inner twice with the same input.
func nested(chain *proxy.Chain, innerCalls *atomic.Int64) function.Function {
	var leafCalls, outerCalls atomic.Int64
	leaf := chain.Decorate(countingFn("leaf", &leafCalls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 2, nil
	}))
	inner := chain.Decorate(countingFn("inner", innerCalls, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
		v, err := leaf.Invoke(ctx, env, input, args)
		if err != nil {
			return nil, err
		}
		n, err := result.ValueAs[int](result.From(v, nil))
		return n * 10, err
	}))
	return countingFn("outer", &outerCalls, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
		sum := 0
		for i := 0; i < 2; i++ {
			v, err := inner.Invoke(ctx, env, input, args)
			if err != nil {
				return nil, err
			}
			n, err := result.ValueAs[int](result.From(v, nil))
			if err != nil {
				return nil, err
			}
			sum += n
		}
		return sum, nil
	})
}

func runTask(t *testing.T, chain *proxy.Chain, fn function.Function, scope *cache.Scope) (result.Result, *trace.CallGraph) {
	t.Helper()
	tracer := trace.New(trace.Full)
	ctx := trace.WithTracer(context.Background(), tracer)
	ctx, release := cache.Attach(ctx, scope)
	defer release()

	res := result.From(chain.Decorate(fn).Invoke(ctx, env, "AAPL", function.Arguments{}))
	return res, tracer.CallGraph()
}

func TestCompose_OutermostFirst(t *testing.T) {
	var order []string
	record := func(name string) proxy.Decorator {
		return func(fn function.Function) function.Function {
			return function.New(fn.Name(), fn.DeclaringType(), fn.ImplementationType(),
				func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
					order = append(order, name+">")
					defer func() { order = append(order, "<"+name) }()
					return fn.Invoke(ctx, env, input, args)
				})
		}
	}
	var calls atomic.Int64
	fn := countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		order = append(order, "fn")
		return 1, nil
	})

	_, err := proxy.Compose(record("a"), record("b"))(fn).Invoke(context.Background(), env, nil, function.Arguments{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a>", "b>", "fn", "<b", "<a"}, order)
}

func TestChain_NoServicesIsPassThrough(t *testing.T) {
	var calls atomic.Int64
	fn := countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 1, nil
	})
	chain := proxy.NewChain(0, nil, log.NewTest())
	assert.Same(t, fn, chain.Decorate(fn))
}

func TestChain_DecorateIsIdempotent(t *testing.T) {
	var calls atomic.Int64
	fn := countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 1, nil
	})
	chain := proxy.NewChain(proxy.AllServices, metrics.NewRegistry(), log.NewTest())
	once := chain.Decorate(fn)
	assert.Same(t, once, chain.Decorate(once))
	assert.Equal(t, fn.ID(), once.ID())
	assert.Equal(t, fn.DeclaringType(), once.DeclaringType())
}

func TestChain_CachingCollapsesRepeatedCallsInTrace(t *testing.T) {
	chain := proxy.NewChain(proxy.Tracing|proxy.Caching|proxy.ExceptionWrapping, nil, log.NewTest())
	var innerCalls atomic.Int64
	scope := cache.NewScope(cache.NewMemoryCache(0))

	res, graph := runTask(t, chain, nested(chain, &innerCalls), scope)

	require.True(t, res.IsSuccess(), res.String())
	assert.Equal(t, 40, res.Value())
	assert.Equal(t, int64(1), innerCalls.Load())

	require.NotNil(t, graph)
	root := graph.Root
	assert.Equal(t, "outer", root.Name)
	require.Len(t, root.Children, 2)

	first, second := root.Children[0], root.Children[1]
	assert.False(t, first.FromCache)
	require.Len(t, first.Children, 1)
	assert.Equal(t, "leaf", first.Children[0].Name)
	assert.True(t, second.FromCache)
	assert.Empty(t, second.Children)
}

func TestChain_ConcurrentCallsOnlyMarkWaitersAsCached(t *testing.T) {
	chain := proxy.NewChain(proxy.Tracing|proxy.Caching|proxy.ExceptionWrapping, nil, log.NewTest())
	scope := cache.NewScope(cache.NewMemoryCache(0))

	var leafCalls, slowCalls atomic.Int64
	leaf := chain.Decorate(countingFn("leaf", &leafCalls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 3, nil
	}))
	started := make(chan struct{})
	release := make(chan struct{})
	slow := countingFn("slow", &slowCalls, func(ctx context.Context, env function.Environment, _ any, args function.Arguments) (any, error) {
		close(started)
		<-release
		return leaf.Invoke(ctx, env, "x", args)
	})

	graphs := make(chan *trace.CallGraph, 1)
	go func() {
		_, graph := runTask(t, chain, slow, scope)
		graphs <- graph
	}()
	<-started

	waiterGraph := make(chan *trace.CallGraph, 1)
	go func() {
		res, graph := runTask(t, chain, slow, scope)
		assert.Equal(t, 3, res.Value())
		waiterGraph <- graph
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	computed, waited := <-graphs, <-waiterGraph
	assert.Equal(t, int64(1), slowCalls.Load())

	assert.False(t, computed.Root.FromCache)
	require.Len(t, computed.Root.Children, 1)
	assert.Equal(t, "leaf", computed.Root.Children[0].Name)

	assert.True(t, waited.Root.FromCache)
	assert.Empty(t, waited.Root.Children)

	assert.Equal(t, cache.Stats{Hits: 1, Misses: 2}, scope.Stats())
}

func TestChain_WithoutCachingTraceShowsFullTrees(t *testing.T) {
	chain := proxy.NewChain(proxy.Tracing|proxy.ExceptionWrapping, nil, log.NewTest())
	var innerCalls atomic.Int64
	scope := cache.NewScope(cache.NewMemoryCache(0))

	res, graph := runTask(t, chain, nested(chain, &innerCalls), scope)

	require.True(t, res.IsSuccess(), res.String())
	assert.Equal(t, int64(2), innerCalls.Load())
	require.Len(t, graph.Root.Children, 2)
	for _, child := range graph.Root.Children {
		assert.False(t, child.FromCache)
		require.Len(t, child.Children, 1)
		assert.Equal(t, "leaf", child.Children[0].Name)
	}
}

func TestChain_CacheHitSkipsMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	chain := proxy.NewChain(proxy.AllServices, registry, log.NewTest())
	var calls atomic.Int64
	fn := countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 1, nil
	})
	decorated := chain.Decorate(fn)

	scope := cache.NewScope(cache.NewMemoryCache(0))
	ctx, release := cache.Attach(context.Background(), scope)
	defer release()
	for i := 0; i < 3; i++ {
		res := result.From(decorated.Invoke(ctx, env, "AAPL", function.Arguments{}))
		assert.Equal(t, 1, res.Value())
	}

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, uint64(1), registry.Snapshot().Timers[fn.ID()].Count)
	assert.Equal(t, cache.Stats{Hits: 2, Misses: 1}, scope.Stats())
}

func TestCaching_WithoutScopeInvokesDirectly(t *testing.T) {
	chain := proxy.NewChain(proxy.Caching, nil, log.NewTest())
	var calls atomic.Int64
	fn := chain.Decorate(countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 1, nil
	}))

	for i := 0; i < 3; i++ {
		_, err := fn.Invoke(context.Background(), env, "AAPL", function.Arguments{})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), calls.Load())
}

func TestCaching_ReleasedScopeIsNotUsed(t *testing.T) {
	chain := proxy.NewChain(proxy.Caching, nil, log.NewTest())
	var calls atomic.Int64
	fn := chain.Decorate(countingFn("pv", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return 1, nil
	}))

	ctx, release := cache.Attach(context.Background(), cache.NewScope(cache.NewMemoryCache(0)))
	_, _ = fn.Invoke(ctx, env, "AAPL", function.Arguments{})
	release()
	_, _ = fn.Invoke(ctx, env, "AAPL", function.Arguments{})

	assert.Equal(t, int64(2), calls.Load())
}

func TestCaching_NonCacheableAlwaysRuns(t *testing.T) {
	chain := proxy.NewChain(proxy.Caching, nil, log.NewTest())
	var calls atomic.Int64
	fn := chain.Decorate(function.For[pricer]("now", impl{}, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		calls.Add(1)
		return time.Now(), nil
	}, function.NonCacheable()))

	ctx, release := cache.Attach(context.Background(), cache.NewScope(cache.NewMemoryCache(0)))
	defer release()
	_, _ = fn.Invoke(ctx, env, nil, function.Arguments{})
	_, _ = fn.Invoke(ctx, env, nil, function.Arguments{})

	assert.Equal(t, int64(2), calls.Load())
}

func TestCaching_ReentrantKeyDoesNotDeadlock(t *testing.T) {
	chain := proxy.NewChain(proxy.Caching|proxy.ExceptionWrapping, nil, log.NewTest())
	var self function.Function
	var calls atomic.Int64
	self = chain.Decorate(countingFn("reentrant", &calls, func(ctx context.Context, env function.Environment, input any, args function.Arguments) (any, error) {
		if calls.Load() == 1 {
			// same key while the outer call is still computing it
			return self.Invoke(ctx, env, input, args)
		}
		return 7, nil
	}))

	ctx, release := cache.Attach(context.Background(), cache.NewScope(cache.NewMemoryCache(0)))
	defer release()
	done := make(chan result.Result, 1)
	go func() { done <- result.From(self.Invoke(ctx, env, "AAPL", function.Arguments{})) }()

	select {
	case res := <-done:
		assert.Equal(t, 7, res.Value())
		assert.Equal(t, int64(2), calls.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("re-entrant call deadlocked")
	}
}

func TestExceptionWrapping_ContainsErrorsAndPanics(t *testing.T) {
	registry := metrics.NewRegistry()
	chain := proxy.NewChain(proxy.Metrics|proxy.ExceptionWrapping, registry, log.NewTest())
	var calls atomic.Int64
	failing := chain.Decorate(countingFn("failing", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return nil, errors.New("no curve")
	}))
	panicking := chain.Decorate(countingFn("panicking", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		panic("boom")
	}))
	missing := chain.Decorate(countingFn("missing", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return result.FailureOf(result.StatusMissingData, "no quote"), nil
	}))

	v, err := failing.Invoke(context.Background(), env, nil, function.Arguments{})
	require.NoError(t, err)
	res := result.From(v, nil)
	assert.Equal(t, result.StatusError, res.Status())
	assert.Contains(t, res.Failure().Message, "no curve")

	v, err = panicking.Invoke(context.Background(), env, nil, function.Arguments{})
	require.NoError(t, err)
	res = result.From(v, nil)
	assert.Equal(t, result.StatusError, res.Status())
	assert.Contains(t, res.Failure().Message, "boom")

	v, err = missing.Invoke(context.Background(), env, nil, function.Arguments{})
	require.NoError(t, err)
	assert.Equal(t, result.StatusMissingData, result.From(v, nil).Status())

	failures := registry.Snapshot().Failures
	assert.Equal(t, uint64(1), failures[failing.ID()])
	assert.Equal(t, uint64(1), failures[panicking.ID()])
	assert.Equal(t, uint64(1), failures[missing.ID()])
}

func TestNewChain_MetricsWithoutRegistryIsDropped(t *testing.T) {
	chain := proxy.NewChain(proxy.AllServices, nil, log.NewTest())
	assert.False(t, chain.Services().Has(proxy.Metrics))
	assert.True(t, chain.Services().Has(proxy.Tracing|proxy.Caching|proxy.ExceptionWrapping))
}

func TestParseServices(t *testing.T) {
	s, err := proxy.ParseServices("tracing, Caching")
	require.NoError(t, err)
	assert.Equal(t, proxy.Tracing|proxy.Caching, s)
	assert.Equal(t, "tracing,caching", s.String())

	s, err = proxy.ParseServices("all")
	require.NoError(t, err)
	assert.Equal(t, proxy.AllServices, s)

	s, err = proxy.ParseServices("")
	require.NoError(t, err)
	assert.Equal(t, "none", s.String())

	_, err = proxy.ParseServices("tracing,auditing")
	assert.Error(t, err)
}

func TestTracing_EmitsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	chain := proxy.NewChain(proxy.Tracing, nil, log.NewTest())
	var calls atomic.Int64
	failing := chain.Decorate(countingFn("failing", &calls, func(context.Context, function.Environment, any, function.Arguments) (any, error) {
		return result.FailureOf(result.StatusMissingData, "no quote"), nil
	}))
	_, err := failing.Invoke(context.Background(), env, nil, function.Arguments{})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "failing", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
