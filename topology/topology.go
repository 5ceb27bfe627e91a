// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package topology implements the in-memory directed unit graph of
// spec.md §4.F: an adjacency-map graph over cognitive units, mutated
// through a single writer, with readers served point-in-time snapshots.
package topology

import (
	"sync"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/unit"
)

// Connection is the directed edge payload between two units: the
// declared QoS attributes the router's cost function consumes (spec.md
// §4.G) and a scalar Weight the self-organizing network reinforces and
// decays.
type Connection struct {
	LatencyMs          float64
	BandwidthMbps      float64
	Reliability        float64
	RequiresBandwidth  bool
	RequiresReliability bool
	Weight             float64
}

// Metrics summarizes the graph's current shape (spec.md §4.F "metrics()").
type Metrics struct {
	TotalUnits       int
	TotalConnections int
	AverageDegree    float64
	PerLayerCounts   map[unit.Layer]int
}

// Graph is the adjacency-map directed graph of units. All mutating
// methods serialize through mu; Neighbors/Metrics/Descriptor read a
// consistent snapshot under the same lock (spec.md §4.F: "all mutations
// are serialized through a single writer; readers see snapshots").
type Graph struct {
	mu          sync.RWMutex
	vertices    map[ids.UnitID]unit.Descriptor
	adjacency   map[ids.UnitID]map[ids.UnitID]*Connection
	onChange    []func(Change)
}

// ChangeKind names the category of a topology mutation, consumed by the
// router's invalidation logic (spec.md §4.G).
type ChangeKind int

const (
	UnitAdded ChangeKind = iota
	UnitRemoved
	EdgeAdded
	EdgeRemoved
	EdgeWeightChanged
)

// Change describes one topology mutation for subscribers (the router,
// the self-organizing network).
type Change struct {
	Kind   ChangeKind
	Unit   ids.UnitID
	Target ids.UnitID // edge mutations only
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		vertices:  make(map[ids.UnitID]unit.Descriptor),
		adjacency: make(map[ids.UnitID]map[ids.UnitID]*Connection),
	}
}

// OnChange registers a subscriber invoked synchronously, under the
// write lock, after each mutation. Subscribers must not call back into
// the Graph.
func (g *Graph) OnChange(fn func(Change)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = append(g.onChange, fn)
}

func (g *Graph) notify(c Change) {
	for _, fn := range g.onChange {
		fn(c)
	}
}

// AddUnit inserts descriptor as an isolated node, per spec.md §4.F. A
// unit already present is overwritten with the new descriptor without
// disturbing its edges.
func (g *Graph) AddUnit(descriptor unit.Descriptor) ids.UnitID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vertices[descriptor.ID] = descriptor
	if _, ok := g.adjacency[descriptor.ID]; !ok {
		g.adjacency[descriptor.ID] = make(map[ids.UnitID]*Connection)
	}
	g.notify(Change{Kind: UnitAdded, Unit: descriptor.ID})
	return descriptor.ID
}

// RemoveUnit drops id and every incident edge (spec.md §4.F/§4.G).
func (g *Graph) RemoveUnit(id ids.UnitID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.vertices[id]; !ok {
		return
	}
	delete(g.vertices, id)
	delete(g.adjacency, id)
	for _, edges := range g.adjacency {
		delete(edges, id)
	}
	g.notify(Change{Kind: UnitRemoved, Unit: id})
}

// AddEdge adds or replaces the directed edge from→to. Both endpoints
// must already exist and satisfy the ±1 adjacency rule (spec.md §8
// invariant 1), enforced here as a TopologyConflict error.
func (g *Graph) AddEdge(from, to ids.UnitID, conn Connection) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	fromDesc, ok := g.vertices[from]
	if !ok {
		return substraterr.New(substraterr.TopologyConflict, "topology.AddEdge", "unknown source unit")
	}
	toDesc, ok := g.vertices[to]
	if !ok {
		return substraterr.New(substraterr.TopologyConflict, "topology.AddEdge", "unknown target unit")
	}
	if !fromDesc.Layer.Adjacent(toDesc.Layer) {
		return substraterr.New(substraterr.TopologyConflict, "topology.AddEdge", "edge crosses more than one layer")
	}
	c := conn
	g.adjacency[from][to] = &c
	g.notify(Change{Kind: EdgeAdded, Unit: from, Target: to})
	return nil
}

// RemoveEdge removes the directed edge from→to, a no-op if absent.
func (g *Graph) RemoveEdge(from, to ids.UnitID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if edges, ok := g.adjacency[from]; ok {
		if _, ok := edges[to]; ok {
			delete(edges, to)
			g.notify(Change{Kind: EdgeRemoved, Unit: from, Target: to})
		}
	}
}

// SetEdgeWeight updates an existing edge's Weight and derives its
// BandwidthMbps as weight·100, per spec.md §4.G.
func (g *Graph) SetEdgeWeight(from, to ids.UnitID, weight float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	edges, ok := g.adjacency[from]
	if !ok {
		return substraterr.New(substraterr.TopologyConflict, "topology.SetEdgeWeight", "unknown source unit")
	}
	conn, ok := edges[to]
	if !ok {
		return substraterr.New(substraterr.TopologyConflict, "topology.SetEdgeWeight", "no such edge")
	}
	conn.Weight = weight
	conn.BandwidthMbps = weight * 100
	g.notify(Change{Kind: EdgeWeightChanged, Unit: from, Target: to})
	return nil
}

// Neighbors returns a snapshot of from's outgoing edges.
func (g *Graph) Neighbors(from ids.UnitID) map[ids.UnitID]Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edges := g.adjacency[from]
	out := make(map[ids.UnitID]Connection, len(edges))
	for to, c := range edges {
		out[to] = *c
	}
	return out
}

// Predecessors returns a snapshot of to's incoming edges, keyed by the
// source unit.
func (g *Graph) Predecessors(to ids.UnitID) map[ids.UnitID]Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[ids.UnitID]Connection)
	for from, edges := range g.adjacency {
		if c, ok := edges[to]; ok {
			out[from] = *c
		}
	}
	return out
}

// Descriptor returns a snapshot of id's descriptor.
func (g *Graph) Descriptor(id ids.UnitID) (unit.Descriptor, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.vertices[id]
	return d, ok
}

// Units returns a snapshot of every unit ID currently in the graph.
func (g *Graph) Units() []ids.UnitID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ids.UnitID, 0, len(g.vertices))
	for id := range g.vertices {
		out = append(out, id)
	}
	return out
}

// Metrics computes the graph's summary statistics, per spec.md §4.F.
func (g *Graph) Metrics() Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m := Metrics{
		TotalUnits:     len(g.vertices),
		PerLayerCounts: make(map[unit.Layer]int),
	}
	for _, d := range g.vertices {
		m.PerLayerCounts[d.Layer]++
	}
	total := 0
	for _, edges := range g.adjacency {
		total += len(edges)
	}
	m.TotalConnections = total
	if m.TotalUnits > 0 {
		m.AverageDegree = float64(total) / float64(m.TotalUnits)
	}
	return m
}
