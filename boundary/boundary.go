// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package boundary implements the layer-boundary validation and
// transform contract of spec.md §4.E: every ordered (upper, lower) layer
// pair one level apart tracks traffic in both directions and exposes a
// compression ratio whose closeness to the golden ratio is observable as
// emergent structure forming at that seam.
package boundary

import (
	"sync"

	"github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/unit"
)

// goldenRatio and defaultTolerance mirror config.Config's
// GoldenRatioTolerance default; a Record built without an explicit
// tolerance (via NewRecord) uses this value.
const (
	goldenRatio      = 1.618
	defaultTolerance = 0.05
)

// Record is the boundary state between two adjacent layers (spec.md §3
// "Boundary record").
type Record struct {
	Upper unit.Layer
	Lower unit.Layer

	tolerance float64

	mu          sync.Mutex
	signalsUp   uint64
	signalsDown uint64

	// emergenceEMA is the exponential moving average of per-window
	// traffic product up·down (spec.md §4.E).
	emergenceEMA float64
	hasSample    bool
}

// NewRecord constructs a Record for the (upper, lower) pair, which must
// satisfy upper.level - lower.level == 1.
func NewRecord(upper, lower unit.Layer, tolerance float64) (*Record, error) {
	if int(upper)-int(lower) != 1 {
		return nil, substraterr.New(substraterr.Validation, "boundary.NewRecord", "upper and lower must be exactly one layer apart")
	}
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return &Record{Upper: upper, Lower: lower, tolerance: tolerance}, nil
}

// Validate checks a signal crossing this boundary against spec.md §4.E's
// rules: size within maxMessageSize, non-negative propagation depth, and
// positive strength.
func Validate(s signal.Signal, maxMessageSize uint64) error {
	if uint64(len(s.Activation.Content)) > maxMessageSize {
		return substraterr.New(substraterr.Validation, "boundary.Validate", "message exceeds negotiated max size")
	}
	if s.Activation.PropagationDepth < 0 {
		return substraterr.New(substraterr.Validation, "boundary.Validate", "negative propagation depth")
	}
	if s.Activation.Strength <= 0 {
		return substraterr.New(substraterr.Validation, "boundary.Validate", "non-positive strength")
	}
	return nil
}

// TransformFunc reshapes a signal's payload while crossing the boundary.
// Implementations must preserve the signal's ID and Source (spec.md
// §4.E); Apply enforces this regardless of what the function does.
type TransformFunc func(signal.Signal) signal.Signal

// Apply runs transform on s, restoring ID and Source if the function
// altered them, then records the crossing in the given direction.
func (r *Record) Apply(s signal.Signal, upward bool, transform TransformFunc) signal.Signal {
	out := s
	if transform != nil {
		out = transform(s)
		out.ID = s.ID
		out.Source = s.Source
	}
	r.mu.Lock()
	r.record(upward)
	r.mu.Unlock()
	return out
}

// record must be called with r.mu held.
func (r *Record) record(upward bool) {
	if upward {
		r.signalsUp++
	} else {
		r.signalsDown++
	}
	r.updateEmergence()
}

// updateEmergence folds the current window's up·down traffic product
// into the EMA, per spec.md §4.E.
func (r *Record) updateEmergence() {
	const alpha = 0.2
	sample := float64(r.signalsUp) * float64(r.signalsDown)
	if !r.hasSample {
		r.emergenceEMA = sample
		r.hasSample = true
		return
	}
	r.emergenceEMA = alpha*sample + (1-alpha)*r.emergenceEMA
}

// CompressionRatio is up/down traffic, per spec.md §3. Returns 0 when no
// downward traffic has been observed yet (undefined ratio, reported as
// zero rather than +Inf so callers don't need special-case handling).
func (r *Record) CompressionRatio() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compressionRatioLocked()
}

func (r *Record) compressionRatioLocked() float64 {
	if r.signalsDown == 0 {
		return 0
	}
	return float64(r.signalsUp) / float64(r.signalsDown)
}

// EmergenceActivity returns the current EMA of up·down traffic product.
func (r *Record) EmergenceActivity() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emergenceEMA
}

// IsGoldenRatio reports spec.md §3's golden_ratio_flag: whether the
// compression ratio is within tolerance of 1.618.
func (r *Record) IsGoldenRatio() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ratio := r.compressionRatioLocked()
	diff := ratio - goldenRatio
	if diff < 0 {
		diff = -diff
	}
	return diff < r.tolerance
}

// Counts returns the raw upward/downward signal counts observed.
func (r *Record) Counts() (up, down uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signalsUp, r.signalsDown
}
