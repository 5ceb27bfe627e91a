// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package selforganize

import (
	"math"

	"github.com/corticalmesh/substrate/focus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/topology"
	"github.com/corticalmesh/substrate/unit"
)

// Compatibility computes spec.md §4.H.2's handshake formula:
// 0.5·(1 − |speed(u) − speed(v)|) + 0.5·complexity_bonus.
func Compatibility(u, v unit.Descriptor) float64 {
	speedTerm := 1 - math.Abs(u.Speed-v.Speed)
	diff := math.Abs(u.Complexity - v.Complexity)

	var complexityBonus float64
	switch {
	case diff >= 0.2 && diff <= 0.7:
		complexityBonus = 0.9
	case diff < 0.2:
		complexityBonus = 0.6 // too similar
	default:
		complexityBonus = 0.4 // too different
	}

	return 0.5*speedTerm + 0.5*complexityBonus
}

// Handshake attempts to form an edge between u and v if both have
// mutually discovered each other, they are within ±1 layer, and their
// compatibility exceeds the threshold, per spec.md §4.H.2. On success the
// edge's state is recorded as Active directly; no Proposed state is ever
// stored for it, here or at discovery. Handshake
// retries are idempotent (re-running on an existing Active edge is a
// no-op other than weight reassertion).
func (n *Network) Handshake(u, v unit.Descriptor) bool {
	if !u.Layer.Adjacent(v.Layer) {
		return false
	}
	if !n.discoverySetFor(u.ID).Has(v.ID) || !n.discoverySetFor(v.ID).Has(u.ID) {
		return false
	}

	compat := Compatibility(u, v)
	if compat <= n.cfg.CompatibilityThreshold {
		return false
	}

	weight := compat
	conn := topology.Connection{
		LatencyMs:     10,
		BandwidthMbps: weight * 100,
		Reliability:   0.99,
		Weight:        weight,
	}
	if err := n.graph.AddEdge(u.ID, v.ID, conn); err != nil {
		n.log.Debug("selforganize handshake edge rejected", "error", err)
		return false
	}

	n.mu.Lock()
	n.setEdgeStateLocked(u.ID, v.ID, Active)
	n.mu.Unlock()
	return true
}

// setEdgeStateLocked must be called with n.mu held.
func (n *Network) setEdgeStateLocked(from, to ids.UnitID, state ConnectionState) {
	peers, ok := n.edges[from]
	if !ok {
		peers = make(map[ids.UnitID]*edgeState)
		n.edges[from] = peers
	}
	es, ok := peers[to]
	if !ok {
		es = &edgeState{idleTicks: focus.NewConfidence(uint32(n.cfg.WeakeningTicks))}
		peers[to] = es
	}
	es.state = state
	es.idleTicks.Reset()
}
