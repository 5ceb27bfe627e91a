// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package signal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/ids"
)

func TestNewAssignsFreshIDAndTimestamp(t *testing.T) {
	source, target := ids.GenerateUnitID(), ids.GenerateUnitID()
	s := New(source, target, []byte("x"), 1.0, 0.1, map[string]string{"k": "v"})

	require.NotEqual(t, ids.ID{}, s.ID)
	require.Equal(t, source, s.Source)
	require.Equal(t, target, s.Target)
	require.False(t, s.Timestamp.IsZero())
	require.Equal(t, 0, s.Activation.PropagationDepth)
}

func TestNewSeedsPathWithSource(t *testing.T) {
	source := ids.GenerateUnitID()
	s := New(source, ids.GenerateUnitID(), nil, 1.0, 0.1, nil)
	require.Equal(t, []ids.UnitID{source}, s.Path)
}

func TestIsBroadcast(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.EmptyUnitID, nil, 1.0, 0.1, nil)
	require.True(t, s.IsBroadcast())

	s2 := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 1.0, 0.1, nil)
	require.False(t, s2.IsBroadcast())
}

func TestExpiredBelowStrengthFloor(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 0.005, 0.1, nil)
	require.True(t, s.Expired(0.01, 10))
	require.False(t, s.ShouldPropagate(0.01, 10))
}

func TestExpiredAtMaxDepth(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 1.0, 0.1, nil)
	s.Activation.PropagationDepth = 10
	require.True(t, s.Expired(0.01, 10))
}

func TestNotExpiredWithinBounds(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 1.0, 0.1, nil)
	require.False(t, s.Expired(0.01, 10))
	require.True(t, s.ShouldPropagate(0.01, 10))
}

func TestForwardAppliesDecayAndIncrementsDepth(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 1.0, 0.25, nil)
	newTarget := ids.GenerateUnitID()
	next := s.Forward(newTarget)

	require.Equal(t, newTarget, next.Target)
	require.InDelta(t, 0.75, next.Activation.Strength, 1e-9)
	require.Equal(t, 1, next.Activation.PropagationDepth)
	require.Equal(t, s.ID, next.ID)
	require.Equal(t, s.Source, next.Source)
}

func TestForwardCompoundsOverMultipleHops(t *testing.T) {
	s := New(ids.GenerateUnitID(), ids.GenerateUnitID(), nil, 1.0, 0.1, nil)
	hop1 := s.Forward(ids.GenerateUnitID())
	hop2 := hop1.Forward(ids.GenerateUnitID())

	require.InDelta(t, 0.81, hop2.Activation.Strength, 1e-9)
	require.Equal(t, 2, hop2.Activation.PropagationDepth)
}
