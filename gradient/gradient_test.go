// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package gradient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/ids"
)

func TestNewCopiesPath(t *testing.T) {
	path := []ids.UnitID{ids.GenerateUnitID(), ids.GenerateUnitID()}
	g := New(ids.GenerateUnitID(), path, 3.0, nil)

	path[0] = ids.GenerateUnitID() // mutate caller's slice afterward
	require.NotEqual(t, path[0], g.Path[0], "New must copy the path, not alias it")
}

func TestClipPositiveMagnitude(t *testing.T) {
	g := Gradient{Magnitude: 15}
	clipped := g.Clip(10)
	require.Equal(t, 10.0, clipped.Magnitude)
}

func TestClipNegativeMagnitude(t *testing.T) {
	g := Gradient{Magnitude: -15}
	clipped := g.Clip(10)
	require.Equal(t, -10.0, clipped.Magnitude)
}

func TestClipWithinLimitUnchanged(t *testing.T) {
	g := Gradient{Magnitude: 5}
	clipped := g.Clip(10)
	require.Equal(t, 5.0, clipped.Magnitude)
}

func TestClipZeroOrNegativeLimitIsNoOp(t *testing.T) {
	g := Gradient{Magnitude: 100}
	require.Equal(t, 100.0, g.Clip(0).Magnitude)
	require.Equal(t, 100.0, g.Clip(-5).Magnitude)
}

func TestTargetWalksPathInReverse(t *testing.T) {
	a, b, c := ids.GenerateUnitID(), ids.GenerateUnitID(), ids.GenerateUnitID()
	g := New(ids.GenerateUnitID(), []ids.UnitID{a, b, c}, 1, nil)

	hop0, ok := g.Target(0)
	require.True(t, ok)
	require.Equal(t, c, hop0)

	hop1, ok := g.Target(1)
	require.True(t, ok)
	require.Equal(t, b, hop1)

	hop2, ok := g.Target(2)
	require.True(t, ok)
	require.Equal(t, a, hop2)

	_, ok = g.Target(3)
	require.False(t, ok)
}

func TestTargetEmptyPath(t *testing.T) {
	g := New(ids.GenerateUnitID(), nil, 1, nil)
	_, ok := g.Target(0)
	require.False(t, ok)
}
