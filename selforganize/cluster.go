// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package selforganize

import (
	"fmt"
	"math"
	"sort"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/topology"
	"github.com/corticalmesh/substrate/unit"
)

// ClusterDetect groups units connected by mutual edge weight above the
// configured cluster threshold into weakly-connected communities, per
// spec.md §4.H.4, and emits one ClusterEmergence event per cluster of
// two or more units. The cluster's label is its dominant layer plus the
// average speed/complexity of its members.
func (n *Network) ClusterDetect() []Event {
	units := n.graph.Units()
	strong := make(map[ids.UnitID][]ids.UnitID, len(units))
	for _, u := range units {
		for v, conn := range n.graph.Neighbors(u) {
			if conn.Weight >= n.cfg.ClusterThreshold {
				strong[u] = append(strong[u], v)
				strong[v] = append(strong[v], u)
			}
		}
	}

	visited := make(map[ids.UnitID]bool, len(units))
	var found []Event
	for _, start := range units {
		if visited[start] {
			continue
		}
		component := n.collectComponent(start, strong, visited)
		if len(component) < 2 {
			continue
		}
		ev := n.describeCluster(component)
		found = append(found, ev)
		n.emit(ev)
	}
	return found
}

func (n *Network) collectComponent(start ids.UnitID, strong map[ids.UnitID][]ids.UnitID, visited map[ids.UnitID]bool) []ids.UnitID {
	stack := []ids.UnitID{start}
	var component []ids.UnitID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		component = append(component, id)
		stack = append(stack, strong[id]...)
	}
	return component
}

func (n *Network) describeCluster(component []ids.UnitID) Event {
	layerCounts := make(map[unit.Layer]int)
	var speedSum, complexitySum float64
	var count int
	for _, id := range component {
		d, ok := n.graph.Descriptor(id)
		if !ok {
			continue
		}
		layerCounts[d.Layer]++
		speedSum += d.Speed
		complexitySum += d.Complexity
		count++
	}
	dominant := dominantLayer(layerCounts)
	confidence := 0.0
	avgSpeed, avgComplexity := 0.0, 0.0
	if count > 0 {
		confidence = float64(layerCounts[dominant]) / float64(count)
		avgSpeed = speedSum / float64(count)
		avgComplexity = complexitySum / float64(count)
	}
	label := fmt.Sprintf("%s-cluster(speed=%.2f,complexity=%.2f)", dominant, avgSpeed, avgComplexity)
	return Event{Kind: ClusterEmergence, Units: component, Label: label, Confidence: confidence}
}

func dominantLayer(counts map[unit.Layer]int) unit.Layer {
	var best unit.Layer
	bestCount := -1
	layers := make([]unit.Layer, 0, len(counts))
	for l := range counts {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i] < layers[j] })
	for _, l := range layers {
		if counts[l] > bestCount {
			best = l
			bestCount = counts[l]
		}
	}
	return best
}

// Specialize inspects unitID's recent output-category window and, if one
// category dominates it, emits a RoleSpecialization event with
// confidence equal to that category's share of the window (spec.md
// §4.H.5).
func (n *Network) Specialize(unitID ids.UnitID) *Event {
	n.mu.Lock()
	hist := append([]string(nil), n.categories[unitID]...)
	n.mu.Unlock()

	if len(hist) == 0 {
		return nil
	}
	counts := make(map[string]int, len(hist))
	for _, c := range hist {
		counts[c]++
	}
	var dominant string
	best := 0
	for c, ct := range counts {
		if ct > best || (ct == best && c < dominant) {
			dominant = c
			best = ct
		}
	}
	confidence := float64(best) / float64(len(hist))
	if confidence < n.cfg.CompatibilityThreshold {
		return nil
	}
	ev := Event{Kind: RoleSpecialization, Units: []ids.UnitID{unitID}, Label: dominant, Confidence: confidence}
	n.emit(ev)
	return &ev
}

// SelfHealing replaces removed's incident edges by wiring up to K
// compensating units within ±1 layer of removed's layer, chosen by
// capability similarity, in place of removed on both sides of its former
// traffic: downstream consumers that lost their source get
// candidate→consumer, and upstream producers that lost their target get
// producer→candidate (spec.md §4.H.6, §8 Scenario 5). The new edge's
// weight is the lost edge's weight. candidates is every remaining unit
// eligible to stand in.
func (n *Network) SelfHealing(removed unit.Descriptor, lostConsumers, lostProducers map[ids.UnitID]topology.Connection, candidates []unit.Descriptor) *Event {
	if len(lostConsumers) == 0 && len(lostProducers) == 0 {
		return nil
	}
	k := n.cfg.SelfHealingFanOut
	type scored struct {
		desc  unit.Descriptor
		score float64
	}
	var pool []scored
	for _, c := range candidates {
		if c.ID == removed.ID {
			continue
		}
		if !c.Layer.Adjacent(removed.Layer) && c.Layer != removed.Layer {
			continue
		}
		pool = append(pool, scored{desc: c, score: Compatibility(removed, c)})
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].score > pool[j].score })
	if len(pool) > k {
		pool = pool[:k]
	}
	if len(pool) == 0 {
		return nil
	}

	var healed []ids.UnitID
	for consumer, lostConn := range lostConsumers {
		weight := lostConn.Weight
		for _, cand := range pool {
			conn := topology.Connection{
				LatencyMs:     lostConn.LatencyMs,
				BandwidthMbps: weight * 100,
				Reliability:   lostConn.Reliability,
				Weight:        weight,
			}
			if err := n.graph.AddEdge(cand.desc.ID, consumer, conn); err == nil {
				n.mu.Lock()
				n.setEdgeStateLocked(cand.desc.ID, consumer, Active)
				n.mu.Unlock()
				healed = append(healed, cand.desc.ID, consumer)
			}
		}
	}
	for producer, lostConn := range lostProducers {
		weight := lostConn.Weight
		for _, cand := range pool {
			conn := topology.Connection{
				LatencyMs:     lostConn.LatencyMs,
				BandwidthMbps: weight * 100,
				Reliability:   lostConn.Reliability,
				Weight:        weight,
			}
			if err := n.graph.AddEdge(producer, cand.desc.ID, conn); err == nil {
				n.mu.Lock()
				n.setEdgeStateLocked(producer, cand.desc.ID, Active)
				n.mu.Unlock()
				healed = append(healed, producer, cand.desc.ID)
			}
		}
	}
	if len(healed) == 0 {
		return nil
	}
	ev := Event{Kind: SelfHealing, Units: healed, Label: removed.ID.String(), Confidence: math.Min(1, float64(len(pool))/float64(k))}
	n.emit(ev)
	return &ev
}
