// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"crypto/sha256"
	"sort"
	"strconv"
	"time"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/utils/linked"
)

// Reflexive is the L1 unit: sub-10ms cached responses, no learning depth.
// Repeated identical inputs are served from a bounded LRU cache instead
// of being reprocessed, matching the "Reflexive" tier's response-time
// budget (spec.md §4.D).
type Reflexive struct {
	base

	cacheCapacity int
	cache         *linked.Hashmap[[32]byte, Output]
	process       func(Input) (Output, error)
}

// NewReflexive constructs an L1 unit. process computes an Output on a
// cache miss; cacheCapacity bounds the number of distinct inputs cached.
func NewReflexive(descriptor Descriptor, cacheCapacity int, process func(Input) (Output, error)) *Reflexive {
	if cacheCapacity <= 0 {
		cacheCapacity = 1
	}
	return &Reflexive{
		base:          newBase(L1, descriptor),
		cacheCapacity: cacheCapacity,
		cache:         linked.NewHashmap[[32]byte, Output](),
		process:       process,
	}
}

// cacheKey hashes in.Context in sorted-key order so logically identical
// inputs always land on the same key regardless of map iteration order.
func cacheKey(in Input) [32]byte {
	h := sha256.New()
	h.Write(in.Content)
	keys := make([]string, 0, len(in.Context))
	for k := range in.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(in.Context[k]))
		h.Write([]byte{0})
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Process serves a cached Output when available, otherwise computes and
// caches one, evicting the least recently used entry if the cache is at
// capacity. A hit moves its entry to the most recently used end.
func (r *Reflexive) Process(in Input) (Output, error) {
	start := time.Now()
	key := cacheKey(in)

	r.mu.Lock()
	if cached, ok := r.cache.Get(key); ok {
		r.cache.Delete(key)
		r.cache.Put(key, cached)
		r.mu.Unlock()
		r.recordProcess(time.Since(start), nil)
		return cached, nil
	}
	r.mu.Unlock()

	out, err := r.process(in)
	r.recordProcess(time.Since(start), err)
	if err != nil {
		return Output{}, err
	}

	r.mu.Lock()
	if r.cache.Len() >= r.cacheCapacity {
		if oldestKey, _, ok := r.cache.OldestEntry(); ok {
			r.cache.Delete(oldestKey)
		}
	}
	r.cache.Put(key, out)
	r.mu.Unlock()

	return out, nil
}

// Learn applies a cache_ttl-style adjustment only in the sense of
// trimming the cache when instructed; L1 has no learned weights of its
// own, per spec.md §4.D's "minimal learning depth" for the Reflexive tier.
func (r *Reflexive) Learn(g gradient.Gradient) error {
	r.recordLearn()
	if shrink, ok := applyAdjustment(g, "cache_shrink"); ok && shrink > 0 {
		r.mu.Lock()
		n := int(shrink)
		for i := 0; i < n && r.cache.Len() > 0; i++ {
			if oldestKey, _, ok := r.cache.OldestEntry(); ok {
				r.cache.Delete(oldestKey)
			}
		}
		r.mu.Unlock()
	}
	return nil
}

func (r *Reflexive) Introspect() Snapshot {
	r.mu.Lock()
	cacheLen := r.cache.Len()
	r.mu.Unlock()
	const estimatedBytesPerEntry = 256
	return r.snapshot(uint64(cacheLen*estimatedBytesPerEntry), map[string]string{
		"cache_entries":  strconv.Itoa(cacheLen),
		"cache_capacity": strconv.Itoa(r.cacheCapacity),
	})
}

func (r *Reflexive) Reset() {
	r.mu.Lock()
	r.cache.Clear()
	r.mu.Unlock()
	r.reset()
}

var _ Unit = (*Reflexive)(nil)
