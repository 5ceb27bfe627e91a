// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gradient defines the reverse-flowing learning feedback message
// of spec.md §3: payload opaque to the fabric, propagating in reverse of
// a prior signal path.
package gradient

import "github.com/corticalmesh/substrate/ids"

// Gradient is addressed along the reverse of a prior signal's path.
// Adjustments are an opaque map; a well-formed Gradient's Learn call must
// never fail, and unknown adjustment keys are ignored by the consumer.
type Gradient struct {
	ID          ids.ID
	Source      ids.UnitID
	Path        []ids.UnitID
	Magnitude   float64
	Adjustments map[string]interface{}
}

// New constructs a Gradient with a fresh id.
func New(source ids.UnitID, path []ids.UnitID, magnitude float64, adjustments map[string]interface{}) Gradient {
	return Gradient{
		ID:          ids.GenerateID(),
		Source:      source,
		Path:        append([]ids.UnitID(nil), path...),
		Magnitude:   magnitude,
		Adjustments: adjustments,
	}
}

// Clip caps the magnitude at limit, per spec.md §4.B: "Gradients
// exceeding a magnitude clip (default 10) are clipped, not dropped."
func (g Gradient) Clip(limit float64) Gradient {
	if limit <= 0 {
		return g
	}
	if g.Magnitude > limit {
		g.Magnitude = limit
	} else if g.Magnitude < -limit {
		g.Magnitude = -limit
	}
	return g
}

// Target returns the next hop to deliver to when walking Path in
// reverse, and ok=false once the reversed path is exhausted.
func (g Gradient) Target(hopsConsumed int) (ids.UnitID, bool) {
	idx := len(g.Path) - 1 - hopsConsumed
	if idx < 0 {
		return ids.EmptyUnitID, false
	}
	return g.Path[idx], true
}
