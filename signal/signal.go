// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signal defines the activation message of spec.md §3: a
// directed, decaying, depth-bounded unit of propagation, plus the
// forwarding arithmetic every hop applies.
package signal

import (
	"time"

	"github.com/corticalmesh/substrate/ids"
)

// Activation is the payload a Signal carries.
type Activation struct {
	Content          []byte
	Strength         float64 // in [0,1]
	DecayRate        float64 // in [0,1]
	PropagationDepth int
}

// Signal is a directed activation message with decay semantics
// (spec.md §3). Target is the zero UnitID for a broadcast.
type Signal struct {
	ID         ids.ID
	Source     ids.UnitID
	Target     ids.UnitID // ids.EmptyUnitID => broadcast
	Timestamp  time.Time
	Activation Activation
	Metadata   map[string]string

	// Path is every unit this signal has been re-emitted from, in
	// traversal order, starting with its originating Source. A
	// gradient flowing back from a terminal hop walks Path in reverse
	// (spec.md §3: "Gradient ... propagates in reverse of a prior
	// signal path").
	Path []ids.UnitID
}

// IsBroadcast reports whether Target is absent.
func (s Signal) IsBroadcast() bool {
	return s.Target.IsEmpty()
}

// Default thresholds named in spec.md §3 and §9 (kept here as package
// defaults; config.Config carries the authoritative, overridable values
// used by live components).
const (
	DefaultStrengthFloor = 0.01
	DefaultMaxDepth      = 10
)

// Expired reports whether s must not be forwarded further: strength at
// or below floor, or propagation depth at or beyond maxDepth
// (spec.md §3 invariant).
func (s Signal) Expired(strengthFloor float64, maxDepth int) bool {
	return s.Activation.Strength <= strengthFloor || s.Activation.PropagationDepth >= maxDepth
}

// ShouldPropagate is Expired's complement, matching spec.md §4.B's
// naming ("reject any signal failing should_propagate()").
func (s Signal) ShouldPropagate(strengthFloor float64, maxDepth int) bool {
	return !s.Expired(strengthFloor, maxDepth)
}

// Forward returns the next-hop signal: strength multiplied by
// (1 - decay_rate), depth incremented by one, same id and source
// (spec.md §3: "Each forward hop multiplies strength by (1 − decay_rate)
// and increments depth by 1"). The signal's identity is preserved so a
// layer boundary's transform can reshape Content/Metadata without
// breaking spec.md §4.E's "must preserve signal id and source".
func (s Signal) Forward(newTarget ids.UnitID) Signal {
	next := s
	next.Target = newTarget
	next.Activation.Strength = s.Activation.Strength * (1 - s.Activation.DecayRate)
	next.Activation.PropagationDepth = s.Activation.PropagationDepth + 1
	return next
}

// New constructs a Signal with a fresh id and the current timestamp.
func New(source, target ids.UnitID, content []byte, strength, decayRate float64, metadata map[string]string) Signal {
	return Signal{
		ID:        ids.GenerateID(),
		Source:    source,
		Target:    target,
		Timestamp: time.Now(),
		Activation: Activation{
			Content:          content,
			Strength:         strength,
			DecayRate:        decayRate,
			PropagationDepth: 0,
		},
		Metadata: metadata,
		Path:     []ids.UnitID{source},
	}
}
