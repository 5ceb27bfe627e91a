// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"strconv"

	"github.com/corticalmesh/substrate/gradient"
)

// Goal is one node of a Strategic unit's hierarchical goal tree.
type Goal struct {
	Name     string
	Weight   float64
	Children []*Goal
}

// sumWeights returns the total weight of g and all its descendants.
func (g *Goal) sumWeights() float64 {
	if g == nil {
		return 0
	}
	total := g.Weight
	for _, c := range g.Children {
		total += c.sumWeights()
	}
	return total
}

func (g *Goal) countNodes() int {
	if g == nil {
		return 0
	}
	n := 1
	for _, c := range g.Children {
		n += c.countNodes()
	}
	return n
}

// Strategic is the shared L5-L9 unit shape of spec.md §4.D: "L6-L9 units
// share L5's envelope and behavior, differing only in Layer and the
// Descriptor's advertised capability set" — a vision string plus a
// hierarchical goal tree, updated by reinforcement gradients rather than
// per-call execution.
type Strategic struct {
	base

	vision  string
	goals   *Goal
	deliberate func(Input, string, *Goal) (Output, error)
}

// NewStrategic constructs a unit at layer (L5..L9) with the given vision
// and goal tree. deliberate computes an Output from an Input, the
// current vision, and the goal tree.
func NewStrategic(layer Layer, descriptor Descriptor, vision string, goals *Goal, deliberate func(Input, string, *Goal) (Output, error)) *Strategic {
	if layer < L5 || layer > L9 {
		layer = L5
	}
	return &Strategic{
		base:       newBase(layer, descriptor),
		vision:     vision,
		goals:      goals,
		deliberate: deliberate,
	}
}

func (s *Strategic) Process(in Input) (Output, error) {
	s.mu.Lock()
	vision, goals := s.vision, s.goals
	s.mu.Unlock()

	out, err := s.deliberate(in, vision, goals)
	s.recordProcess(0, err)
	return out, err
}

// Learn re-weights the named goal by delta, the mechanism by which
// consensus outcomes and accumulated gradients reshape a Strategic
// unit's priorities over time (spec.md §4.D, §4.H).
func (s *Strategic) Learn(g gradient.Gradient) error {
	s.recordLearn()
	delta, ok := applyAdjustment(g, "goal_weight_delta")
	if !ok {
		return nil
	}
	goalName, _ := g.Adjustments["goal_name"].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	reweight(s.goals, goalName, delta)
	return nil
}

func reweight(g *Goal, name string, delta float64) bool {
	if g == nil {
		return false
	}
	if g.Name == name {
		g.Weight += delta
		if g.Weight < 0 {
			g.Weight = 0
		}
		return true
	}
	for _, c := range g.Children {
		if reweight(c, name, delta) {
			return true
		}
	}
	return false
}

// Vision returns the unit's current vision string.
func (s *Strategic) Vision() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vision
}

// SetVision updates the unit's vision string, the effect of an L8/L9
// meta-unit propagating a revised mandate downward (spec.md §4.D).
func (s *Strategic) SetVision(v string) {
	s.mu.Lock()
	s.vision = v
	s.mu.Unlock()
}

func (s *Strategic) Introspect() Snapshot {
	s.mu.Lock()
	nodes := s.goals.countNodes()
	totalWeight := s.goals.sumWeights()
	vision := s.vision
	s.mu.Unlock()
	const estimatedBytesPerGoal = 96
	return s.snapshot(uint64(nodes*estimatedBytesPerGoal), map[string]string{
		"vision":       vision,
		"goal_nodes":   strconv.Itoa(nodes),
		"goal_weight":  strconv.FormatFloat(totalWeight, 'f', 4, 64),
	})
}

func (s *Strategic) Reset() {
	s.mu.Lock()
	resetWeights(s.goals)
	s.mu.Unlock()
	s.reset()
}

func resetWeights(g *Goal) {
	if g == nil {
		return
	}
	g.Weight = 0
	for _, c := range g.Children {
		resetWeights(c)
	}
}

var _ Unit = (*Strategic)(nil)
