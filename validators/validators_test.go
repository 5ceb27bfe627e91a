// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package validators

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/utils/sampler"
)

func TestSetPutHasRemove(t *testing.T) {
	s := NewSet()
	id := ids.GenerateUnitID()

	require.False(t, s.Has(id))
	s.Put(id, 0.5)
	require.True(t, s.Has(id))
	require.Equal(t, 1, s.Len())

	s.Remove(id)
	require.False(t, s.Has(id))
	require.Equal(t, 0, s.Len())
}

func TestSetPutUpdatesWeight(t *testing.T) {
	s := NewSet()
	id := ids.GenerateUnitID()
	s.Put(id, 0.2)
	s.Put(id, 0.9)

	list := s.List()
	require.Len(t, list, 1)
	require.Equal(t, 0.9, list[0].Weight)
}

func TestSetTotalWeight(t *testing.T) {
	s := NewSet()
	s.Put(ids.GenerateUnitID(), 0.3)
	s.Put(ids.GenerateUnitID(), 0.7)
	require.InDelta(t, 1.0, s.TotalWeight(), 1e-9)
}

func TestSetSampleRespectsSize(t *testing.T) {
	s := NewSet()
	var members []ids.UnitID
	for i := 0; i < 5; i++ {
		id := ids.GenerateUnitID()
		members = append(members, id)
		s.Put(id, 1.0)
	}

	src := sampler.NewSource(1)
	out := s.Sample(3, src)
	require.Len(t, out, 3)

	seen := make(map[ids.UnitID]bool)
	for _, id := range out {
		require.False(t, seen[id], "sample must not repeat a member")
		seen[id] = true
		require.Contains(t, members, id)
	}
}

func TestSetSampleCapsAtMembershipSize(t *testing.T) {
	s := NewSet()
	a, b := ids.GenerateUnitID(), ids.GenerateUnitID()
	s.Put(a, 1.0)
	s.Put(b, 1.0)

	out := s.Sample(10, sampler.NewSource(2))
	require.Len(t, out, 2)
}

func TestSetSampleEmptySet(t *testing.T) {
	s := NewSet()
	require.Nil(t, s.Sample(3, sampler.NewSource(3)))
}

func TestSetSampleZeroOrNegativeSize(t *testing.T) {
	s := NewSet()
	s.Put(ids.GenerateUnitID(), 1.0)
	require.Nil(t, s.Sample(0, sampler.NewSource(4)))
	require.Nil(t, s.Sample(-1, sampler.NewSource(4)))
}

func TestSetSampleFallsBackToUniformWhenWeightsAreZero(t *testing.T) {
	s := NewSet()
	a, b := ids.GenerateUnitID(), ids.GenerateUnitID()
	s.Put(a, 0)
	s.Put(b, 0)

	out := s.Sample(2, sampler.NewSource(5))
	require.Len(t, out, 2)
}

func TestSetSampleNilSourceUsesDefault(t *testing.T) {
	s := NewSet()
	s.Put(ids.GenerateUnitID(), 1.0)
	out := s.Sample(1, nil)
	require.Len(t, out, 1)
}
