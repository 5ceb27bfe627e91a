// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package set

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfAndContains(t *testing.T) {
	s := Of(1, 2, 3)
	require.True(t, s.Contains(1))
	require.False(t, s.Contains(4))
	require.Equal(t, 3, s.Len())
}

func TestNewSetNegativeSizeReturnsEmptySet(t *testing.T) {
	s := NewSet[int](-1)
	require.Equal(t, 0, s.Len())
}

func TestAddOnZeroValueSetResizesLazily(t *testing.T) {
	var s Set[int]
	s.Add(1, 2)
	require.True(t, s.Contains(1))
	require.Equal(t, 2, s.Len())
}

func TestAddIsIdempotent(t *testing.T) {
	s := Of(1)
	s.Add(1)
	require.Equal(t, 1, s.Len())
}

func TestUnionAddsAllElements(t *testing.T) {
	a := Of(1, 2)
	b := Of(2, 3)
	a.Union(b)
	require.ElementsMatch(t, []int{1, 2, 3}, a.List())
}

func TestDifferenceRemovesSharedElements(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(2, 3)
	a.Difference(b)
	require.Equal(t, Of(1), a)
}

func TestOverlapsDetectsSharedElement(t *testing.T) {
	a := Of(1, 2)
	b := Of(2, 3)
	require.True(t, a.Overlaps(b))

	c := Of(4, 5)
	require.False(t, a.Overlaps(c))
}

func TestClearEmptiesSet(t *testing.T) {
	s := Of(1, 2)
	s.Clear()
	require.Equal(t, 0, s.Len())
}

func TestCappedListRespectsLimit(t *testing.T) {
	s := Of(1, 2, 3, 4)
	list := s.CappedList(2)
	require.Len(t, list, 2)
}

func TestCappedListNegativeSizeReturnsNil(t *testing.T) {
	s := Of(1, 2)
	require.Nil(t, s.CappedList(-1))
}

func TestCappedListLargerThanSetReturnsAllElements(t *testing.T) {
	s := Of(1, 2)
	require.Len(t, s.CappedList(10), 2)
}

func TestEqualsComparesContents(t *testing.T) {
	require.True(t, Of(1, 2).Equals(Of(2, 1)))
	require.False(t, Of(1, 2).Equals(Of(1, 3)))
}

func TestPeekOnEmptySetReturnsFalse(t *testing.T) {
	s := NewSet[int](0)
	_, ok := s.Peek()
	require.False(t, ok)
}

func TestPeekOnNonEmptySetReturnsMember(t *testing.T) {
	s := Of(7)
	elt, ok := s.Peek()
	require.True(t, ok)
	require.Equal(t, 7, elt)
}

func TestRemoveDeletesElements(t *testing.T) {
	s := Of(1, 2, 3)
	s.Remove(2, 3)
	require.Equal(t, Of(1), s)
}

func TestPopRemovesAndReturnsElement(t *testing.T) {
	s := Of(42)
	elt, ok := s.Pop()
	require.True(t, ok)
	require.Equal(t, 42, elt)
	require.Equal(t, 0, s.Len())
}

func TestPopOnEmptySetReturnsFalse(t *testing.T) {
	s := NewSet[int](0)
	_, ok := s.Pop()
	require.False(t, ok)
}

func TestMarshalUnmarshalJSONRoundTrip(t *testing.T) {
	s := Of(1, 2, 3)
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var out Set[int]
	require.NoError(t, json.Unmarshal(b, &out))
	require.True(t, s.Equals(out))
}

func TestStringContainsAllElements(t *testing.T) {
	s := Of(1)
	require.Equal(t, "{1}", s.String())
}

func TestStringOnEmptySet(t *testing.T) {
	s := NewSet[int](0)
	require.Equal(t, "{}", s.String())
}
