// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package router implements the QoS-aware path computation of spec.md
// §4.G: a Dijkstra variant over the topology graph with a bandwidth/
// reliability-weighted edge cost, a bounded path cache invalidated on
// topology change, and deterministic tie-breaking.
package router

import (
	"container/heap"
	"sync"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/topology"
	"github.com/corticalmesh/substrate/utils/linked"
)

// QoS is the set of constraints a path must satisfy (spec.md §4.G).
type QoS struct {
	MaxLatencyMs     float64
	MinBandwidthMbps float64
	MinReliability   float64
}

// Path is a computed route: the ordered unit sequence plus its
// aggregate QoS figures.
type Path struct {
	Nodes       []ids.UnitID
	LatencyMs   float64
	Bandwidth   float64 // minimum edge bandwidth along the path
	Reliability float64 // product of edge reliabilities
}

type cacheKey struct {
	source, target ids.UnitID
}

// Router computes and caches shortest QoS-respecting paths over a
// topology.Graph.
type Router struct {
	graph *topology.Graph

	mu          sync.Mutex
	cacheCap    int
	cache       *linked.Hashmap[cacheKey, Path]
}

// New constructs a Router over graph with a path cache bounded at
// cacheCapacity entries. It subscribes to graph changes to invalidate
// affected cache entries per spec.md §4.G.
func New(graph *topology.Graph, cacheCapacity int) *Router {
	if cacheCapacity <= 0 {
		cacheCapacity = 1
	}
	r := &Router{
		graph:    graph,
		cacheCap: cacheCapacity,
		cache:    linked.NewHashmap[cacheKey, Path](),
	}
	graph.OnChange(r.handleChange)
	return r
}

func (r *Router) handleChange(c topology.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch c.Kind {
	case topology.UnitRemoved:
		r.invalidateTouching(c.Unit)
	case topology.EdgeAdded, topology.EdgeRemoved, topology.EdgeWeightChanged:
		r.invalidateTouching(c.Unit)
		r.invalidateTouching(c.Target)
	case topology.UnitAdded:
		// A new isolated node invalidates nothing; it has no edges yet.
	}
}

// invalidateTouching drops every cached path whose node sequence
// contains id. Must be called with r.mu held.
func (r *Router) invalidateTouching(id ids.UnitID) {
	var stale []cacheKey
	r.cache.Iterate(func(key cacheKey, p Path) bool {
		for _, n := range p.Nodes {
			if n == id {
				stale = append(stale, key)
				break
			}
		}
		return true
	})
	for _, key := range stale {
		r.cache.Delete(key)
	}
}

// edgeCost is spec.md §4.G's Dijkstra edge weight: latency plus a
// bandwidth penalty and a reliability penalty, each applied only when
// the QoS constraint that names it is active.
func edgeCost(conn topology.Connection, qos QoS) float64 {
	cost := conn.LatencyMs
	if qos.MinBandwidthMbps > 0 && conn.BandwidthMbps > 0 {
		cost += 100 / conn.BandwidthMbps
	}
	if qos.MinReliability > 0 {
		cost += 10 * (1 - conn.Reliability)
	}
	return cost
}

// Route computes the lowest-cost path from source to target satisfying
// qos, using and populating the path cache. A cached entry is reused
// without re-running Dijkstra and becomes the most recently used one.
// The cache key is (source, target) only, so a cached path is returned
// whatever qos it was computed under.
func (r *Router) Route(source, target ids.UnitID, qos QoS) (Path, error) {
	key := cacheKey{source, target}

	r.mu.Lock()
	if cached, ok := r.cache.Get(key); ok {
		r.cache.Delete(key)
		r.cache.Put(key, cached)
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	path, err := r.compute(source, target, qos)
	if err != nil {
		return Path{}, err
	}

	r.mu.Lock()
	if r.cache.Len() >= r.cacheCap {
		r.evictOldestLocked()
	}
	r.cache.Put(key, path)
	r.mu.Unlock()

	return path, nil
}

func (r *Router) evictOldestLocked() {
	if oldest, _, ok := r.cache.OldestEntry(); ok {
		r.cache.Delete(oldest)
	}
}

// Optimize evicts the LRU half of the path cache, per spec.md §4.G.
func (r *Router) Optimize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	toEvict := r.cache.Len() / 2
	for i := 0; i < toEvict; i++ {
		r.evictOldestLocked()
	}
}

type dijkstraEntry struct {
	id      ids.UnitID
	cost    float64 // QoS-weighted Dijkstra cost: latency plus bandwidth/reliability penalties
	latency float64 // true additive latency along pathSeq, independent of cost (spec.md §4.G)
	pathSeq []ids.UnitID
}

type dijkstraQueue []*dijkstraEntry

func (q dijkstraQueue) Len() int { return len(q) }
func (q dijkstraQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	// Tie-break: lexicographically smaller path by node id sequence
	// (spec.md §4.G).
	return lessPath(q[i].pathSeq, q[j].pathSeq)
}
func (q dijkstraQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *dijkstraQueue) Push(x interface{}) {
	*q = append(*q, x.(*dijkstraEntry))
}
func (q *dijkstraQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

func lessPath(a, b []ids.UnitID) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c < 0
		}
	}
	return len(a) < len(b)
}

// compute runs the QoS-weighted Dijkstra variant of spec.md §4.G,
// tracking the realized path to carry the tie-break through the heap.
func (r *Router) compute(source, target ids.UnitID, qos QoS) (Path, error) {
	if _, ok := r.graph.Descriptor(source); !ok {
		return Path{}, substraterr.New(substraterr.TopologyConflict, "router.Route", "unknown source unit")
	}
	if _, ok := r.graph.Descriptor(target); !ok {
		return Path{}, substraterr.New(substraterr.TopologyConflict, "router.Route", "unknown target unit")
	}

	best := make(map[ids.UnitID]float64)
	bestLatency := make(map[ids.UnitID]float64)
	bestPath := make(map[ids.UnitID][]ids.UnitID)
	visited := make(map[ids.UnitID]bool)

	pq := &dijkstraQueue{{id: source, cost: 0, latency: 0, pathSeq: []ids.UnitID{source}}}
	heap.Init(pq)
	best[source] = 0
	bestLatency[source] = 0
	bestPath[source] = []ids.UnitID{source}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*dijkstraEntry)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == target {
			break
		}

		for next, conn := range r.graph.Neighbors(cur.id) {
			if visited[next] {
				continue
			}
			if qos.MinBandwidthMbps > 0 && conn.BandwidthMbps < qos.MinBandwidthMbps {
				continue
			}
			if qos.MinReliability > 0 && conn.Reliability < qos.MinReliability {
				continue
			}
			// nd is the Dijkstra search's own cost metric (latency plus QoS
			// penalty terms); latencyNext is the true additive latency
			// reported on Path and checked against qos.MaxLatencyMs,
			// tracked separately per spec.md §4.G ("path latency is
			// additive") the same way aggregatePath already tracks
			// bandwidth and reliability apart from the search cost.
			nd := cur.cost + edgeCost(conn, qos)
			latencyNext := cur.latency + conn.LatencyMs
			if qos.MaxLatencyMs > 0 && latencyNext > qos.MaxLatencyMs {
				continue
			}
			seq := append(append([]ids.UnitID(nil), cur.pathSeq...), next)
			existing, ok := best[next]
			if !ok || nd < existing || (nd == existing && lessPath(seq, bestPath[next])) {
				best[next] = nd
				bestLatency[next] = latencyNext
				bestPath[next] = seq
				heap.Push(pq, &dijkstraEntry{id: next, cost: nd, latency: latencyNext, pathSeq: seq})
			}
		}
	}

	seq, ok := bestPath[target]
	if !ok {
		return Path{}, substraterr.New(substraterr.Validation, "router.Route", "no path satisfies the requested QoS")
	}

	return aggregatePath(r.graph, seq, bestLatency[target]), nil
}

// aggregatePath derives the path-level bandwidth (min edge bandwidth)
// and reliability (product of edge reliabilities, per spec.md §4.G)
// from the resolved node sequence. latency is the true additive sum of
// edge latencies along seq, independent of the Dijkstra search's
// QoS-weighted cost function.
func aggregatePath(g *topology.Graph, seq []ids.UnitID, latency float64) Path {
	p := Path{Nodes: seq, LatencyMs: latency, Reliability: 1}
	minBandwidth := -1.0
	for i := 0; i+1 < len(seq); i++ {
		conn, ok := g.Neighbors(seq[i])[seq[i+1]]
		if !ok {
			continue
		}
		if minBandwidth < 0 || conn.BandwidthMbps < minBandwidth {
			minBandwidth = conn.BandwidthMbps
		}
		p.Reliability *= conn.Reliability
	}
	if minBandwidth < 0 {
		minBandwidth = 0
	}
	p.Bandwidth = minBandwidth
	return p
}
