// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport defines the addressable point-to-point and pub/sub
// byte-delivery abstraction of spec.md §4.A. Any implementation
// satisfying Transport — in-memory channel, TCP, message broker — may
// back the substrate; this package supplies the contract,
// transport/memory supplies an in-memory implementation, and
// transport/zmqtransport supplies a real networked one.
package transport

import (
	"context"

	"github.com/corticalmesh/substrate/substraterr"
)

// Message is one unit of delivery: raw bytes addressed or topic-published
// by the caller. The transport does not interpret Bytes.
type Message struct {
	Address string // address the message was sent to or received from
	Bytes   []byte
}

// Stream is a receive-side handle yielding Messages in per-stream FIFO
// order, with no ordering guarantee across streams. Cancellation of the
// stream's context is observed by the next suspension point, per
// spec.md §4.A.
type Stream interface {
	// Recv blocks until a Message arrives or ctx is done.
	Recv(ctx context.Context) (Message, error)
	// Close releases the stream. Recv returns an error after Close.
	Close() error
}

// Transport is the byte-delivery abstraction consumed by the protocol
// suite and protocol manager. Address scheme is opaque to the transport
// but by convention of the form "peer:{id}:..." or "broadcast:{topic}".
type Transport interface {
	// SendRaw delivers bytes to address at-most-once, with per-stream
	// FIFO ordering relative to other sends to the same address. Returns
	// substraterr Kind TransportUnavailable if address is unreachable
	// (the implementations in this module do not retry before reporting
	// it), or TransportTimeout if ctx expires first.
	SendRaw(ctx context.Context, address string, data []byte) error

	// PublishRaw delivers bytes to every current subscriber of topic.
	// Broadcasts have no cross-subscriber ordering.
	PublishRaw(ctx context.Context, topic string, data []byte) error

	// ReceiveRaw returns a Stream of Messages sent to address via SendRaw.
	ReceiveRaw(ctx context.Context, address string) (Stream, error)

	// SubscribeRaw returns a Stream of Messages published to topic via
	// PublishRaw.
	SubscribeRaw(ctx context.Context, topic string) (Stream, error)

	// Close shuts the transport down, closing all outstanding streams.
	Close() error
}

// Unavailable constructs the substraterr.Error spec.md §4.A names for an
// unreachable destination.
func Unavailable(op, address string) error {
	return substraterr.New(substraterr.TransportUnavailable, op, "destination unreachable: "+address)
}

// Timeout constructs the substraterr.Error spec.md §4.A names for a
// deadline exceeded during send/receive.
func Timeout(op, address string) error {
	return substraterr.New(substraterr.TransportTimeout, op, "deadline exceeded: "+address)
}
