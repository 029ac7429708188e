package cache

import (
	"context"
	"sync/atomic"

	"github.com/on-the-ground/calcgraph_go/engine/result"
	"golang.org/x/sync/singleflight"
)

// Stats counts cache activity over a scope's lifetime.
type Stats struct {
	Hits   int64
	Misses int64
}

// Scope is the cache of one calculation cycle together with the bookkeeping
// the caching decorator needs: a single-flight group so concurrent tasks
// computing the same key share one computation, and hit/miss counters.
type Scope struct {
	cache   Cache
	flights singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewScope wraps the cycle's cache.
func NewScope(c Cache) *Scope {
	return &Scope{cache: c}
}

// Get looks the key up, counting a hit when found. Misses are counted by
// Compute, once per caller that ends up computing.
func (s *Scope) Get(key InvocationKey) (result.Result, bool) {
	res, ok := s.cache.Get(key)
	if ok {
		s.hits.Add(1)
	}
	return res, ok
}

// Compute runs compute at most once per key among concurrent callers and
// stores its outcome. The cache is checked again inside the flight so a caller
// arriving just after another flight finished reuses its outcome.
// The returned bool reports whether the outcome came from another computation;
// it is false only for the caller whose compute ran.
func (s *Scope) Compute(key InvocationKey, compute func() result.Result) (result.Result, bool) {
	computed := false
	v, _, _ := s.flights.Do(key.String(), func() (any, error) {
		if res, ok := s.cache.Get(key); ok {
			return res, nil
		}
		computed = true
		res := compute()
		s.cache.Put(key, res)
		return res, nil
	})
	if computed {
		s.misses.Add(1)
	} else {
		s.hits.Add(1)
	}
	return v.(result.Result), !computed
}

// Stats returns the hit and miss counts so far.
func (s *Scope) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Close releases the underlying cache if it holds resources.
func (s *Scope) Close() {
	if c, ok := s.cache.(Closer); ok {
		c.Close()
	}
}

type scopeKey struct{}

type binding struct {
	scope    *Scope
	released atomic.Bool
}

// Attach binds the scope to ctx for the duration of one task. The returned
// release function must be called when the task finishes; after that the
// returned context no longer exposes the scope.
func Attach(ctx context.Context, s *Scope) (context.Context, func()) {
	if s == nil {
		return ctx, func() {}
	}
	b := &binding{scope: s}
	return context.WithValue(ctx, scopeKey{}, b), func() { b.released.Store(true) }
}

// FromContext returns the scope bound to ctx, if any and not yet released.
func FromContext(ctx context.Context) (*Scope, bool) {
	b, ok := ctx.Value(scopeKey{}).(*binding)
	if !ok || b.released.Load() {
		return nil, false
	}
	return b.scope, true
}

type executingKey struct{}

type executing struct {
	key    InvocationKey
	parent *executing
}

// WithExecuting records that the call chain in ctx is computing key.
func WithExecuting(ctx context.Context, key InvocationKey) context.Context {
	parent, _ := ctx.Value(executingKey{}).(*executing)
	return context.WithValue(ctx, executingKey{}, &executing{key: key, parent: parent})
}

// IsExecuting reports whether key is already being computed further up the
// call chain in ctx. Waiting on it would deadlock.
func IsExecuting(ctx context.Context, key InvocationKey) bool {
	for e, _ := ctx.Value(executingKey{}).(*executing); e != nil; e = e.parent {
		if e.key == key {
			return true
		}
	}
	return false
}
