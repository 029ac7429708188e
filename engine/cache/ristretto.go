package cache

import (
	"fmt"

	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/on-the-ground/calcgraph_go/engine/result"
)

type ristrettoEntry struct {
	key InvocationKey
	res result.Result
}

// RistrettoCache is a bounded cache with admission control backed by ristretto.
// Entries are keyed by InvocationKey.Hash; the full key is stored alongside the
// value so hash collisions read as misses.
type RistrettoCache struct {
	*ristretto.Cache[uint64, ristrettoEntry]
}

var (
	_ Cache  = RistrettoCache{}
	_ Closer = RistrettoCache{}
)

// NewRistrettoCache creates a cache holding at most maxEntries outcomes.
func NewRistrettoCache(maxEntries int64) (RistrettoCache, error) {
	if maxEntries <= 0 {
		return RistrettoCache{}, fmt.Errorf("ristretto cache: maxEntries must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[uint64, ristrettoEntry]{
		NumCounters:        maxEntries * 10, // ristretto recommends 10x the number of items
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return RistrettoCache{}, fmt.Errorf("ristretto cache: %w", err)
	}
	return RistrettoCache{Cache: c}, nil
}

func (r RistrettoCache) Get(key InvocationKey) (result.Result, bool) {
	e, ok := r.Cache.Get(key.Hash())
	if !ok || e.key != key {
		return result.Result{}, false
	}
	return e.res, true
}

// Put stores the outcome and waits for ristretto's write buffer to drain so
// that the value is visible to the next Get.
func (r RistrettoCache) Put(key InvocationKey, res result.Result) {
	if r.Cache.Set(key.Hash(), ristrettoEntry{key: key, res: res}, 1) {
		r.Cache.Wait()
	}
}

func (r RistrettoCache) Close() {
	r.Cache.Close()
}

// RistrettoProvider creates a new RistrettoCache for every cycle.
type RistrettoProvider struct {
	MaxEntries int64
}

func (p RistrettoProvider) NewCacheForCycle() (Cache, error) {
	return NewRistrettoCache(p.MaxEntries)
}
