// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"sync"
	"time"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/ids"
)

// base holds the bookkeeping common to every layer implementation:
// identity, descriptor, and the counters backing Introspect. Each layer
// type embeds base and adds its own per-layer state plus Process/Learn.
type base struct {
	mu sync.Mutex

	id         ids.UnitID
	layer      Layer
	descriptor Descriptor

	processed  uint64
	errors     uint64
	learnIters uint64
	// meanNanos is an exponential moving average of processing time, so
	// Introspect doesn't need to retain every sample.
	meanNanos float64
	healthy   bool
}

func newBase(layer Layer, descriptor Descriptor) base {
	descriptor.Layer = layer
	return base{
		id:         descriptor.ID,
		layer:      layer,
		descriptor: descriptor,
		healthy:    true,
	}
}

func (b *base) ID() ids.UnitID      { return b.id }
func (b *base) Layer() Layer        { return b.layer }
func (b *base) Descriptor() Descriptor { return b.descriptor }

// recordProcess folds one Process call's elapsed time into the moving
// average and bumps the processed counter, under lock.
func (b *base) recordProcess(elapsed time.Duration, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed++
	if err != nil {
		b.errors++
	}
	const alpha = 0.2
	sample := float64(elapsed)
	if b.meanNanos == 0 {
		b.meanNanos = sample
	} else {
		b.meanNanos = alpha*sample + (1-alpha)*b.meanNanos
	}
}

func (b *base) recordLearn() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.learnIters++
}

func (b *base) setHealthy(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = ok
}

// snapshot builds the Snapshot common fields; the caller adds
// layer-specific Detail entries and a MemoryBytesEstimate.
func (b *base) snapshot(memoryEstimate uint64, detail map[string]string) Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		ActivationsProcessed: b.processed,
		Errors:               b.errors,
		LearningIterations:   b.learnIters,
		MeanProcessingTime:   time.Duration(b.meanNanos),
		MemoryBytesEstimate:  memoryEstimate,
		Healthy:              b.healthy,
		Detail:               detail,
	}
}

func (b *base) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed, b.errors, b.learnIters = 0, 0, 0
	b.meanNanos = 0
	b.healthy = true
}

// applyAdjustment pulls a float64 out of a gradient's opaque adjustments
// map by key, ignoring unknown or wrongly-typed keys per the Unit.Learn
// contract (spec.md §4.D: "unknown adjustment keys are ignored").
func applyAdjustment(g gradient.Gradient, key string) (float64, bool) {
	v, ok := g.Adjustments[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
