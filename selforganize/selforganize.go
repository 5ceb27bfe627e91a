// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package selforganize implements the self-organizing network of spec.md
// §4.H: asynchronous discovery, capability-compatibility handshakes,
// edge reinforcement/decay, periodic cluster detection, per-unit role
// specialization, and best-effort self-healing after unit removal.
package selforganize

import (
	"math"
	"sync"

	"github.com/corticalmesh/substrate/config"
	"github.com/corticalmesh/substrate/focus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/log"
	"github.com/corticalmesh/substrate/topology"
	"github.com/corticalmesh/substrate/unit"
	"github.com/corticalmesh/substrate/utils/sampler"
	"github.com/corticalmesh/substrate/validators"
)

// DiscoveryTopic is the well-known broadcast topic name for unit
// discovery (spec.md §4.H.1). No package in this module publishes or
// subscribes on it; discovery reaches Network through direct
// OnUnitAdded calls.
const DiscoveryTopic = "substrate.discovery"

// ConnectionState is one edge's position in the state machine of
// spec.md §4.H: Proposed → Active → Weakening → Removed.
type ConnectionState int

const (
	Proposed ConnectionState = iota
	Active
	Weakening
	Removed
)

func (s ConnectionState) String() string {
	switch s {
	case Active:
		return "active"
	case Weakening:
		return "weakening"
	case Removed:
		return "removed"
	default:
		return "proposed"
	}
}

// EventKind names the emitted event types of spec.md §4.H.
type EventKind int

const (
	ClusterEmergence EventKind = iota
	RoleSpecialization
	SelfHealing
)

// Event is one emitted self-organizing network event.
type Event struct {
	Kind       EventKind
	Units      []ids.UnitID
	Label      string
	Confidence float64
}

// edgeState tracks one directed edge's state-machine position and the
// consecutive-no-traffic counter driving the Weakening transition,
// grounded on focus.FocusCounter's consecutive-tick bookkeeping.
type edgeState struct {
	state     ConnectionState
	idleTicks focus.Confidence
}

// Network runs the self-organizing behaviors over a topology.Graph. It
// is driven by the four event-stream methods (OnUnitAdded, OnUnitRemoved,
// OnSignalSent, OnSignalReceived) plus a periodic DecayTick/ClusterDetect
// the orchestrator schedules.
type Network struct {
	graph *topology.Graph
	cfg   config.Config
	log   log.Logger

	mu         sync.Mutex
	discovered map[ids.UnitID]*validators.Set
	edges      map[ids.UnitID]map[ids.UnitID]*edgeState
	categories map[ids.UnitID][]string // recent output categories, bounded window
	src        sampler.Source

	events chan Event
}

// New constructs a Network over graph using cfg's self-organizing
// tunables (compatibility threshold, reinforcement step, decay factor,
// cluster threshold, healing fan-out K).
func New(graph *topology.Graph, cfg config.Config, logger log.Logger) *Network {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Network{
		graph:      graph,
		cfg:        cfg,
		log:        log.Component(logger, "selforganize"),
		discovered: make(map[ids.UnitID]*validators.Set),
		edges:      make(map[ids.UnitID]map[ids.UnitID]*edgeState),
		categories: make(map[ids.UnitID][]string),
		src:        sampler.NewSource(0),
		events:     make(chan Event, 256),
	}
}

// Events returns the channel emitted ClusterEmergence/RoleSpecialization/
// SelfHealing events are published on.
func (n *Network) Events() <-chan Event { return n.events }

func (n *Network) emit(e Event) {
	select {
	case n.events <- e:
	default:
		n.log.Warn("selforganize event dropped, channel full", "kind", e.Kind)
	}
}

func (n *Network) discoverySetFor(id ids.UnitID) *validators.Set {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.discovered[id]
	if !ok {
		s = validators.NewSet()
		n.discovered[id] = s
	}
	return s
}

// OnUnitAdded handles the "unit added" event stream: every existing unit
// is offered the new descriptor, gated by a compatibility-similarity
// prefilter, per spec.md §4.H.1. The orchestrator's RegisterUnit calls
// it directly for the new unit and each existing unit, in both
// directions; no descriptor is published on DiscoveryTopic.
func (n *Network) OnUnitAdded(observer, discovered unit.Descriptor) {
	if observer.ID == discovered.ID {
		return
	}
	// No layer filter here; the ±1 gate applies at handshake time, not
	// discovery (spec.md §4.H.1 gates discovery only by the similarity
	// prefilter below).
	prefilter := compatibilityPrefilter(observer, discovered)
	if n.src.Uint64()%1000 >= uint64(prefilter*1000) {
		return
	}
	n.discoverySetFor(observer.ID).Put(discovered.ID, prefilter)
}

// compatibilityPrefilter is a cheap similarity score (not the full
// handshake compatibility formula) used only to gate which discoveries
// get recorded, per spec.md §4.H.1.
func compatibilityPrefilter(a, b unit.Descriptor) float64 {
	speedDiff := math.Abs(a.Speed - b.Speed)
	if speedDiff > 1 {
		speedDiff = 1
	}
	return 1 - speedDiff
}

// OnUnitRemoved removes descriptor from the topology, forgets it from
// every discovery set, and triggers self-healing for its former
// downstream consumers (spec.md §4.H.6). It owns the graph removal
// itself because the lost edges must be captured before
// topology.Graph.RemoveUnit drops them.
func (n *Network) OnUnitRemoved(descriptor unit.Descriptor) *Event {
	id := descriptor.ID
	lostConsumers := n.graph.Neighbors(id)
	lostProducers := n.graph.Predecessors(id)

	var candidates []unit.Descriptor
	for _, other := range n.graph.Units() {
		if other == id {
			continue
		}
		if d, ok := n.graph.Descriptor(other); ok {
			candidates = append(candidates, d)
		}
	}

	n.graph.RemoveUnit(id)

	n.mu.Lock()
	delete(n.discovered, id)
	delete(n.edges, id)
	for _, peers := range n.edges {
		delete(peers, id)
	}
	delete(n.categories, id)
	n.mu.Unlock()

	return n.SelfHealing(descriptor, lostConsumers, lostProducers, candidates)
}

// OnSignalSent records successful traffic over the from→to edge for
// reinforcement purposes (spec.md §4.H.3).
func (n *Network) OnSignalSent(from, to ids.UnitID) {
	n.Reinforce(from, to)
}

// OnSignalReceived records an observed output category for the
// receiving unit's specialization tracking window (spec.md §4.H.5).
func (n *Network) OnSignalReceived(unitID ids.UnitID, category string) {
	const windowSize = 20
	n.mu.Lock()
	defer n.mu.Unlock()
	hist := append(n.categories[unitID], category)
	if len(hist) > windowSize {
		hist = hist[len(hist)-windowSize:]
	}
	n.categories[unitID] = hist
}
