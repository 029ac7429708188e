package cache

import (
	"github.com/on-the-ground/calcgraph_go/engine/result"
)

// Cache stores invocation outcomes. Implementations must be safe for
// concurrent use by the tasks of one cycle.
type Cache interface {
	Get(key InvocationKey) (result.Result, bool)
	Put(key InvocationKey, res result.Result)
}

// Closer is implemented by caches holding resources that must be released
// when their cycle ends.
type Closer interface {
	Close()
}

// Provider hands out the cache used by one calculation cycle.
type Provider interface {
	NewCacheForCycle() (Cache, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Cache, error)

func (f ProviderFunc) NewCacheForCycle() (Cache, error) {
	return f()
}
