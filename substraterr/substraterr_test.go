// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package substraterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatsWithAndWithoutWrapped(t *testing.T) {
	plain := New(Validation, "router.Route", "bad layer")
	require.Contains(t, plain.Error(), "validation")
	require.Contains(t, plain.Error(), "router.Route")
	require.Contains(t, plain.Error(), "bad layer")

	wrapped := Wrap(Internal, "unit.Process", "panicked", errors.New("boom"))
	require.Contains(t, wrapped.Error(), "boom")
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("inner")
	wrapped := Wrap(Internal, "op", "reason", inner)
	require.Equal(t, inner, wrapped.Unwrap())
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := New(Overloaded, "Submit", "queue full")
	sentinel := New(Overloaded, "", "")
	require.True(t, errors.Is(err, sentinel))

	other := New(Validation, "", "")
	require.False(t, errors.Is(err, other))
}

func TestKindOfUnwrapsChain(t *testing.T) {
	err := New(TopologyConflict, "AddEdge", "bad edge")
	wrapped := fmt.Errorf("context: %w", err)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	require.Equal(t, TopologyConflict, kind)
}

func TestKindOfNonTaxonomyError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)
}

func TestRetryableOnlyForTransportKinds(t *testing.T) {
	require.True(t, Retryable(New(TransportUnavailable, "", "")))
	require.True(t, Retryable(New(TransportTimeout, "", "")))
	require.False(t, Retryable(New(Validation, "", "")))
	require.False(t, Retryable(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "validation", Validation.String())
	require.Equal(t, "transport_unavailable", TransportUnavailable.String())
	require.Equal(t, "transport_timeout", TransportTimeout.String())
	require.Equal(t, "protocol_incompatible", ProtocolIncompatible.String())
	require.Equal(t, "overloaded", Overloaded.String())
	require.Equal(t, "topology_conflict", TopologyConflict.String())
	require.Equal(t, "internal", Internal.String())
	require.Equal(t, "unknown", Kind(99).String())
}
