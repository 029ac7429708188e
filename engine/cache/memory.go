package cache

import (
	"sync"
	"sync/atomic"

	"github.com/on-the-ground/calcgraph_go/engine/result"
)

// MemoryCache is a bounded in-memory cache made of two generations of
// sync.Map. Writes go to the head generation; once it holds maxEntries items
// the generations rotate and the oldest one is dropped. Reads check the head
// first, then the previous generation.
type MemoryCache struct {
	mu          sync.RWMutex
	generations [2]*sync.Map
	headIdx     int
	size        atomic.Int64
	maxEntries  int64
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache. maxEntries <= 0 means unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		generations: [2]*sync.Map{{}, {}},
		maxEntries:  int64(maxEntries),
	}
}

func (c *MemoryCache) Get(key InvocationKey) (result.Result, bool) {
	c.mu.RLock()
	head := c.generations[c.headIdx]
	prev := c.generations[1-c.headIdx]
	c.mu.RUnlock()

	if v, ok := head.Load(key); ok {
		return v.(result.Result), true
	}
	if v, ok := prev.Load(key); ok {
		return v.(result.Result), true
	}
	return result.Result{}, false
}

func (c *MemoryCache) Put(key InvocationKey, res result.Result) {
	c.mu.RLock()
	head := c.generations[c.headIdx]
	_, loaded := head.Swap(key, res)
	c.mu.RUnlock()

	if loaded {
		return
	}
	if n := c.size.Add(1); c.maxEntries > 0 && n >= c.maxEntries {
		c.rotate()
	}
}

func (c *MemoryCache) rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.size.Load() < c.maxEntries {
		// another writer rotated first
		return
	}
	c.headIdx = 1 - c.headIdx
	c.generations[c.headIdx] = &sync.Map{}
	c.size.Store(0)
}

// MemoryProvider creates a new MemoryCache for every cycle.
type MemoryProvider struct {
	MaxEntries int
}

func (p MemoryProvider) NewCacheForCycle() (Cache, error) {
	return NewMemoryCache(p.MaxEntries), nil
}
