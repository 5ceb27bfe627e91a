// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package selforganize

import (
	"github.com/corticalmesh/substrate/focus"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/topology"
)

// Reinforce increments the from→to edge's weight by the configured
// reinforcement step after a successful signal traversal, per spec.md
// §4.H.3, and resets its idle-tick counter since traffic was observed.
func (n *Network) Reinforce(from, to ids.UnitID) {
	conn, ok := n.edgeConnection(from, to)
	if !ok {
		return
	}
	newWeight := conn.Weight + n.cfg.ReinforcementStep
	_ = n.graph.SetEdgeWeight(from, to, newWeight)

	n.mu.Lock()
	if peers, ok := n.edges[from]; ok {
		if es, ok := peers[to]; ok {
			es.idleTicks.Reset()
			if es.state == Weakening {
				es.state = Active
			}
		}
	}
	n.mu.Unlock()
}

func (n *Network) edgeConnection(from, to ids.UnitID) (topology.Connection, bool) {
	conn, ok := n.graph.Neighbors(from)[to]
	return conn, ok
}

// DecayTick applies one evaluation tick of spec.md §4.H.3: every edge's
// weight decays multiplicatively by the configured decay factor; edges
// below the minimum weight are removed; edges observing no traffic for
// the configured number of consecutive ticks transition to Weakening.
func (n *Network) DecayTick() {
	for _, from := range n.graph.Units() {
		for to, conn := range n.graph.Neighbors(from) {
			decayed := conn.Weight * n.cfg.DecayFactor
			if decayed < n.cfg.MinEdgeWeight {
				n.graph.RemoveEdge(from, to)
				n.mu.Lock()
				n.setEdgeStateLocked(from, to, Removed)
				n.mu.Unlock()
				continue
			}
			_ = n.graph.SetEdgeWeight(from, to, decayed)

			n.mu.Lock()
			peers, ok := n.edges[from]
			if !ok {
				peers = make(map[ids.UnitID]*edgeState)
				n.edges[from] = peers
			}
			es, ok := peers[to]
			if !ok {
				es = &edgeState{state: Active, idleTicks: focus.NewConfidence(uint32(n.cfg.WeakeningTicks))}
				peers[to] = es
			}
			if es.idleTicks.Record(true) {
				es.state = Weakening
			}
			n.mu.Unlock()
		}
	}
}
