// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validators tracks each unit's current compatibility weight
// against its peers, the prefilter the self-organizing network's
// discovery and handshake steps sample against (spec.md §4.H.1/§4.H.2).
package validators

import (
	"sync"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/utils/sampler"
)

// Member is one unit tracked by a Set, with its current compatibility
// weight (not a stake/light value — a 0..1 similarity score derived from
// the handshake's compatibility formula).
type Member struct {
	ID     ids.UnitID
	Weight float64
}

// Set holds the discovered, weighted peer membership for one unit's
// neighborhood.
type Set struct {
	mu      sync.RWMutex
	members map[ids.UnitID]float64
}

// NewSet constructs an empty Set.
func NewSet() *Set {
	return &Set{members: make(map[ids.UnitID]float64)}
}

// Has reports whether id is a tracked member.
func (s *Set) Has(id ids.UnitID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[id]
	return ok
}

// Put records or updates id's weight.
func (s *Set) Put(id ids.UnitID, weight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = weight
}

// Remove drops id from the set.
func (s *Set) Remove(id ids.UnitID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, id)
}

// Len returns the number of tracked members.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// List returns a snapshot of every tracked member.
func (s *Set) List() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, 0, len(s.members))
	for id, w := range s.members {
		out = append(out, Member{ID: id, Weight: w})
	}
	return out
}

// TotalWeight sums every member's weight.
func (s *Set) TotalWeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, w := range s.members {
		total += w
	}
	return total
}

// Sample draws size members without replacement, biased by weight, using
// the rejection-style weighted sampler the self-organizing network's
// discovery step uses to gate which newly seen units get recorded
// (spec.md §4.H.1 "with a probability gated by a capability-similarity
// prefilter"). Weights that sum to zero fall back to uniform sampling.
func (s *Set) Sample(size int, src sampler.Source) []ids.UnitID {
	members := s.List()
	if size <= 0 || len(members) == 0 {
		return nil
	}
	if size > len(members) {
		size = len(members)
	}

	weights := make([]uint64, len(members))
	var total uint64
	for i, m := range members {
		w := uint64(m.Weight * 1000)
		if w == 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	if src == nil {
		src = sampler.NewSource(0)
	}

	chosen := make(map[int]bool, size)
	out := make([]ids.UnitID, 0, size)
	for len(out) < size && len(chosen) < len(members) {
		r := src.Uint64() % total
		var cum uint64
		for i, w := range weights {
			cum += w
			if r < cum {
				if !chosen[i] {
					chosen[i] = true
					out = append(out, members[i].ID)
				}
				break
			}
		}
	}
	return out
}
