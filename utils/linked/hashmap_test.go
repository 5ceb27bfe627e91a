// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package linked

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashmapPutAndGet(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)

	v, ok := h.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestHashmapGetMissingKeyReturnsZeroValue(t *testing.T) {
	h := NewHashmap[string, int]()
	v, ok := h.Get("missing")
	require.False(t, ok)
	require.Equal(t, 0, v)
}

func TestHashmapPutUpdatesValueWithoutReordering(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Put("a", 100)

	v, ok := h.Get("a")
	require.True(t, ok)
	require.Equal(t, 100, v)
	require.Equal(t, 2, h.Len())

	oldestKey, _, _ := h.OldestEntry()
	require.Equal(t, "a", oldestKey)
}

func TestHashmapLen(t *testing.T) {
	h := NewHashmap[string, int]()
	require.Equal(t, 0, h.Len())
	h.Put("a", 1)
	h.Put("b", 2)
	require.Equal(t, 2, h.Len())
}

func TestHashmapDeleteRemovesEntry(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Delete("a")

	_, ok := h.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, h.Len())
}

func TestHashmapDeleteMissingKeyIsNoOp(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Delete("missing")
	require.Equal(t, 1, h.Len())
}

func TestHashmapClearRemovesAllEntries(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Clear()

	require.Equal(t, 0, h.Len())
	_, ok := h.Get("a")
	require.False(t, ok)
}

func TestHashmapIterateVisitsInsertionOrder(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Put("c", 3)

	var keys []string
	h.Iterate(func(k string, v int) bool {
		keys = append(keys, k)
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestHashmapIterateStopsOnFalse(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Put("c", 3)

	var keys []string
	h.Iterate(func(k string, v int) bool {
		keys = append(keys, k)
		return k != "b"
	})
	require.Equal(t, []string{"a", "b"}, keys)
}

func TestHashmapOldestAndNewestEntry(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)
	h.Put("c", 3)

	oldestKey, oldestVal, ok := h.OldestEntry()
	require.True(t, ok)
	require.Equal(t, "a", oldestKey)
	require.Equal(t, 1, oldestVal)

	newestKey, newestVal, ok := h.NewestEntry()
	require.True(t, ok)
	require.Equal(t, "c", newestKey)
	require.Equal(t, 3, newestVal)
}

func TestHashmapOldestAndNewestEntryEmptyReturnsFalse(t *testing.T) {
	h := NewHashmap[string, int]()

	_, _, ok := h.OldestEntry()
	require.False(t, ok)

	_, _, ok = h.NewestEntry()
	require.False(t, ok)
}

func TestHashmapIteratorWalksInsertionOrder(t *testing.T) {
	h := NewHashmap[string, int]()
	h.Put("a", 1)
	h.Put("b", 2)

	it := h.NewIterator()
	require.True(t, it.Next())
	require.Equal(t, "a", it.Key())
	require.Equal(t, 1, it.Value())

	require.True(t, it.Next())
	require.Equal(t, "b", it.Key())
	require.Equal(t, 2, it.Value())

	require.False(t, it.Next())
}

func TestHashmapIteratorOnEmptyMapHasNoElements(t *testing.T) {
	h := NewHashmap[string, int]()
	it := h.NewIterator()
	require.False(t, it.Next())
}
