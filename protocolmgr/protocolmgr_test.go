// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package protocolmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/protocol/signalproto"
	"github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/transport/memory"
	"github.com/corticalmesh/substrate/utils/version"
)

func newRegistry() *Registry {
	r := NewRegistry()
	r.Register(signalproto.New(65536))
	return r
}

func TestRegistryGetKnownAndUnknown(t *testing.T) {
	r := newRegistry()
	p, ok := r.Get(signalproto.ProtocolID)
	require.True(t, ok)
	require.Equal(t, signalproto.ProtocolID, p.ID())

	_, ok = r.Get("nope")
	require.False(t, ok)
}

func TestNegotiateWithPeerCachesResult(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	peer := ids.GenerateUnitID()
	caps := signalproto.New(65536).Capabilities()

	first, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, time.Now())
	require.NoError(t, err)

	second, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, time.Now())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNegotiateWithPeerUnknownProtocolErrors(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	_, err := m.NegotiateWithPeer(ids.GenerateUnitID(), "nope", codec.Capabilities{}, time.Now())
	require.Error(t, err)
	kind, ok := substraterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, substraterr.ProtocolIncompatible, kind)
}

func TestDropSessionForcesRenegotiation(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	peer := ids.GenerateUnitID()
	caps := signalproto.New(65536).Capabilities()

	first, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, time.Now())
	require.NoError(t, err)

	m.DropSession(peer, signalproto.ProtocolID)

	later := time.Now().Add(time.Hour)
	second, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, later)
	require.NoError(t, err)
	require.NotEqual(t, first.EstablishedAt, second.EstablishedAt)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	peer := ids.GenerateUnitID()
	caps := signalproto.New(65536).Capabilities()

	now := time.Now()
	_, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, now)
	require.NoError(t, err)

	m.sweep(now.Add(2 * time.Minute))

	m.mu.RLock()
	_, stillPresent := m.sessions[peer]
	m.mu.RUnlock()
	require.False(t, stillPresent)
}

func TestSendVersionedRoundTripsThroughTransport(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	tr := memory.New(nil, nil)
	defer tr.Close()

	peer := ids.GenerateUnitID()
	caps := signalproto.New(65536).Capabilities()
	ctx := context.Background()

	stream, err := tr.ReceiveRaw(ctx, "unit-a")
	require.NoError(t, err)

	s := signal.New(ids.GenerateUnitID(), peer, []byte("hi"), 0.9, 0.1, nil)
	require.NoError(t, m.SendVersioned(ctx, tr, peer, "unit-a", signalproto.ProtocolID, caps, s))

	msg, err := stream.Recv(ctx)
	require.NoError(t, err)

	negotiated, err := m.NegotiateWithPeer(peer, signalproto.ProtocolID, caps, time.Now())
	require.NoError(t, err)

	var out signal.Signal
	require.NoError(t, m.ReceiveVersioned(negotiated, msg.Bytes, &out))
	require.Equal(t, s.ID, out.ID)
}

func TestSendVersionedUnknownProtocolErrors(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	tr := memory.New(nil, nil)
	defer tr.Close()

	err := m.SendVersioned(context.Background(), tr, ids.GenerateUnitID(), "unit-a", "nope", codec.Capabilities{}, nil)
	require.Error(t, err)
}

func TestReceiveVersionedMigratesAcrossVersions(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	p := signalproto.New(65536)

	oldVersion := version.Semantic{Major: 0, Minor: 9, Patch: 0}
	m.RegisterMigration(signalproto.ProtocolID, oldVersion, p.Version(), func(message interface{}) (interface{}, error) {
		sig := message.(signal.Signal)
		sig.Metadata = map[string]string{"migrated": "true"}
		return sig, nil
	})

	s := signal.New(ids.GenerateUnitID(), ids.GenerateUnitID(), []byte("x"), 0.5, 0.1, nil)
	payload, err := p.Encode(codec.NegotiatedProtocol{Compression: codec.CompressionNone}, s)
	require.NoError(t, err)

	envelope := codec.EncodeEnvelope(codec.Envelope{
		ProtocolID: signalproto.ProtocolID,
		Version:    oldVersion,
		Payload:    payload,
	})

	var out signal.Signal
	err = m.ReceiveVersioned(codec.NegotiatedProtocol{Compression: codec.CompressionNone}, envelope, &out)
	require.NoError(t, err)
	require.Equal(t, "true", out.Metadata["migrated"])
}

func TestReceiveVersionedWithoutMigrationErrors(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	p := signalproto.New(65536)

	s := signal.New(ids.GenerateUnitID(), ids.GenerateUnitID(), []byte("x"), 0.5, 0.1, nil)
	payload, err := p.Encode(codec.NegotiatedProtocol{Compression: codec.CompressionNone}, s)
	require.NoError(t, err)

	envelope := codec.EncodeEnvelope(codec.Envelope{
		ProtocolID: signalproto.ProtocolID,
		Version:    version.Semantic{Major: 9, Minor: 9, Patch: 9},
		Payload:    payload,
	})

	var out signal.Signal
	err = m.ReceiveVersioned(codec.NegotiatedProtocol{Compression: codec.CompressionNone}, envelope, &out)
	require.Error(t, err)
	kind, ok := substraterr.KindOf(err)
	require.True(t, ok)
	require.Equal(t, substraterr.ProtocolIncompatible, kind)
}

func TestReceiveVersionedUnknownProtocolErrors(t *testing.T) {
	m := NewManager(newRegistry(), time.Minute)
	envelope := codec.EncodeEnvelope(codec.Envelope{ProtocolID: "nope", Version: version.Semantic{}, Payload: nil})

	var out signal.Signal
	err := m.ReceiveVersioned(codec.NegotiatedProtocol{}, envelope, &out)
	require.Error(t, err)
}
