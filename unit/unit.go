// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package unit defines the cognitive-unit contract of spec.md §4.D: a
// layer-typed processing element implementing process/learn/introspect/
// reset, modeled as a tagged variant with nine arms sharing one common
// capability-set dispatcher rather than a deep inheritance tree
// (spec.md §9 design note).
package unit

import (
	"fmt"
	"time"

	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/utils/version"
)

// Layer is one of nine ordered abstraction tiers. Immutable after a unit
// is created; determines the response-time envelope and the set of
// layers a unit may address (±1).
type Layer int

const (
	L1 Layer = iota + 1 // Reflexive
	L2                  // Implementation
	L3                  // Operational
	L4                  // Tactical
	L5                  // Strategic
	L6                  // Adaptive
	L7                  // Visionary
	L8                  // Meta
	L9                  // Universal
)

func (l Layer) String() string {
	names := [...]string{"", "L1-Reflexive", "L2-Implementation", "L3-Operational",
		"L4-Tactical", "L5-Strategic", "L6-Adaptive", "L7-Visionary", "L8-Meta", "L9-Universal"}
	if l < L1 || l > L9 {
		return fmt.Sprintf("Layer(%d)", int(l))
	}
	return names[l]
}

// Valid reports whether l is one of L1..L9.
func (l Layer) Valid() bool { return l >= L1 && l <= L9 }

// Adjacent reports whether other is within ±1 of l — the connectivity
// rule enforced by the orchestrator at emission time and by the topology
// graph on every edge (spec.md §3, §4.D, §8 invariant 1).
func (l Layer) Adjacent(other Layer) bool {
	diff := int(l) - int(other)
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// ResponseTimeTarget returns the soft, observable (not enforced) response
// time envelope for the layer (spec.md §4.D). L6-L9 inherit L5's.
func (l Layer) ResponseTimeTarget() (min, max time.Duration) {
	switch {
	case l <= L1:
		return 0, 10 * time.Millisecond
	case l == L2:
		return 50 * time.Millisecond, 200 * time.Millisecond
	case l == L3:
		return 100 * time.Millisecond, 500 * time.Millisecond
	case l == L4:
		return 200 * time.Millisecond, 1000 * time.Millisecond
	default:
		return 500 * time.Millisecond, 2000 * time.Millisecond
	}
}

// Capability names one thing a unit can do, with a semantic version and
// an observed performance score used by the self-organizing network's
// compatibility prefilter.
type Capability struct {
	Name             string
	Version          version.Semantic
	PerformanceScore float64
}

// Resources is a unit's declared resource footprint.
type Resources struct {
	CPUCores      float64
	MemoryBytes   uint64
	BandwidthMbps float64
}

// Descriptor is the identity and capability advertisement of a unit
// (spec.md §3 "Unit descriptor").
type Descriptor struct {
	ID           ids.UnitID
	Layer        Layer
	Capabilities []Capability
	Resources    Resources
	// Speed and Complexity are the two scalar traits the self-organizing
	// handshake's compatibility formula consumes (spec.md §4.H.2); they
	// are not named fields of the spec's descriptor but are carried here
	// since nothing else holds per-unit trait state.
	Speed      float64
	Complexity float64
}

// HasCapability reports whether the descriptor advertises name.
func (d Descriptor) HasCapability(name string) bool {
	for _, c := range d.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Input is what a unit's Process method consumes.
type Input struct {
	Content     []byte
	Context     map[string]string
	SourceLayer *Layer
}

// Output is what a unit's Process method produces. TargetLayers must each
// be within ±1 of the producing layer; the orchestrator rejects
// violating outputs at emission time (spec.md §4.D).
type Output struct {
	Content      []byte
	Confidence   float64
	Metadata     map[string]string
	TargetLayers []Layer
}

// Snapshot is the state a unit reports via Introspect (spec.md §4.D).
type Snapshot struct {
	ActivationsProcessed uint64
	Errors               uint64
	LearningIterations   uint64
	MeanProcessingTime   time.Duration
	MemoryBytesEstimate  uint64
	Healthy              bool
	Detail               map[string]string
}

// Unit is the contract every layer implementation satisfies.
type Unit interface {
	ID() ids.UnitID
	Layer() Layer
	Descriptor() Descriptor

	// Process consumes an Input and produces an Output. Must never
	// panic; internal faults are reported as substraterr.Internal by the
	// caller, which wraps Process.
	Process(input Input) (Output, error)

	// Learn applies opaque adjustments. Must never fail for a
	// well-formed gradient; unknown adjustment keys are ignored.
	Learn(g gradient.Gradient) error

	// Introspect returns a state snapshot.
	Introspect() Snapshot

	// Reset clears transient state; preserves identity and layer.
	Reset()
}

// ValidateOutputLayers checks that every target layer in out is within
// ±1 of producer, per spec.md §4.D. It is used by the orchestrator at
// emission time.
func ValidateOutputLayers(producer Layer, out Output) error {
	for _, t := range out.TargetLayers {
		if !producer.Adjacent(t) {
			return fmt.Errorf("unit: output targets layer %s, more than ±1 from producer %s", t, producer)
		}
	}
	return nil
}
