// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package unit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/substraterr"
)

var testComponents = []Component{
	{Name: "intake", Responsibility: "validates and queues work", DependsOn: []string{"worker"}},
	{Name: "worker", Responsibility: "executes queued tasks"},
}

func TestOperationalProcessEnqueues(t *testing.T) {
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 4, nil, func(in Input) (Output, error) { return Output{}, nil })
	out, err := o.Process(Input{})
	require.NoError(t, err)
	require.Equal(t, "1", out.Metadata["queue_depth"])
	require.Equal(t, 1, o.QueueDepth())
}

func TestOperationalProcessReportsDecomposition(t *testing.T) {
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 4, testComponents, func(in Input) (Output, error) { return Output{}, nil })
	out, err := o.Process(Input{})
	require.NoError(t, err)

	var got []Component
	require.NoError(t, json.Unmarshal(out.Content, &got))
	require.Equal(t, testComponents, got)
}

func TestOperationalProcessRejectsWhenFull(t *testing.T) {
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 1, nil, func(in Input) (Output, error) { return Output{}, nil })
	_, err := o.Process(Input{})
	require.NoError(t, err)

	_, err = o.Process(Input{})
	require.Error(t, err)
	kind, ok := substraterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, substraterr.Overloaded, kind)
}

func TestOperationalDrainRunsHandlerInFIFOOrder(t *testing.T) {
	var seen []string
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 4, nil, func(in Input) (Output, error) {
		seen = append(seen, string(in.Content))
		return Output{Content: in.Content}, nil
	})
	_, _ = o.Process(Input{Content: []byte("a")})
	_, _ = o.Process(Input{Content: []byte("b")})

	outputs := o.Drain(10)
	require.Len(t, outputs, 2)
	require.Equal(t, []string{"a", "b"}, seen)
	require.Equal(t, 0, o.QueueDepth())
}

func TestOperationalDrainRespectsMax(t *testing.T) {
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 4, nil, func(in Input) (Output, error) { return Output{}, nil })
	_, _ = o.Process(Input{})
	_, _ = o.Process(Input{})
	_, _ = o.Process(Input{})

	outputs := o.Drain(2)
	require.Len(t, outputs, 2)
	require.Equal(t, 1, o.QueueDepth())
}

func TestOperationalResetEmptiesQueue(t *testing.T) {
	o := NewOperational(Descriptor{ID: ids.GenerateUnitID()}, 4, nil, func(in Input) (Output, error) { return Output{}, nil })
	_, _ = o.Process(Input{})
	o.Reset()
	require.Equal(t, 0, o.QueueDepth())
	require.True(t, o.Introspect().Healthy)
}
