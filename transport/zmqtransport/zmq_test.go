// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package zmqtransport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendRawDeliversAcrossConnectedPeers(t *testing.T) {
	server, err := New(nil, Config{
		NodeID:         "server",
		RouterEndpoint: "tcp://127.0.0.1:25601",
		PubEndpoint:    "tcp://127.0.0.1:25602",
	})
	require.NoError(t, err)
	defer server.Close()

	client, err := New(nil, Config{
		NodeID:         "client",
		RouterEndpoint: "tcp://127.0.0.1:25603",
		PubEndpoint:    "tcp://127.0.0.1:25604",
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.Start(ctx)
	client.Start(ctx)

	require.NoError(t, client.Connect("server", "tcp://127.0.0.1:25601"))
	time.Sleep(100 * time.Millisecond)

	stream, err := server.ReceiveRaw(ctx, "client")
	require.NoError(t, err)

	require.NoError(t, client.SendRaw(ctx, "server", []byte("hello from client")))

	recvCtx, recvCancel := context.WithTimeout(ctx, time.Second)
	defer recvCancel()
	msg, err := stream.Recv(recvCtx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello from client"), msg.Bytes)
	require.Equal(t, "client", msg.Address)
}

func TestSendRawToUnconnectedAddressErrors(t *testing.T) {
	tr, err := New(nil, Config{
		NodeID:         "solo",
		RouterEndpoint: "tcp://127.0.0.1:25605",
		PubEndpoint:    "tcp://127.0.0.1:25606",
	})
	require.NoError(t, err)
	defer tr.Close()

	err = tr.SendRaw(context.Background(), "nobody", []byte("x"))
	require.Error(t, err)
}

func TestSendRawRespectsContextCancellation(t *testing.T) {
	tr, err := New(nil, Config{
		NodeID:         "ctxcheck",
		RouterEndpoint: "tcp://127.0.0.1:25607",
		PubEndpoint:    "tcp://127.0.0.1:25608",
	})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = tr.SendRaw(ctx, "nobody", []byte("x"))
	require.Error(t, err)
}

func TestConnectIsIdempotent(t *testing.T) {
	tr, err := New(nil, Config{
		NodeID:         "idempotent",
		RouterEndpoint: "tcp://127.0.0.1:25609",
		PubEndpoint:    "tcp://127.0.0.1:25610",
	})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Connect("peer", "tcp://127.0.0.1:25601"))
	require.NoError(t, tr.Connect("peer", "tcp://127.0.0.1:25601"))
}

func TestReceiveAndSubscribeRejectAfterClose(t *testing.T) {
	tr, err := New(nil, Config{
		NodeID:         "closing",
		RouterEndpoint: "tcp://127.0.0.1:25611",
		PubEndpoint:    "tcp://127.0.0.1:25612",
	})
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	ctx := context.Background()
	_, err = tr.ReceiveRaw(ctx, "addr")
	require.Error(t, err)
	_, err = tr.SubscribeRaw(ctx, "topic")
	require.Error(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	tr, err := New(nil, Config{
		NodeID:         "closetwice",
		RouterEndpoint: "tcp://127.0.0.1:25613",
		PubEndpoint:    "tcp://127.0.0.1:25614",
	})
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}
