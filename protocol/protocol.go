// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocol defines the common contract shared by the Signal,
// Gradient, and Consensus protocols of spec.md §4.B.
package protocol

import (
	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/utils/version"
)

// Protocol is the contract every concrete protocol (Signal, Gradient,
// Consensus) implements.
type Protocol interface {
	ID() string
	Version() version.Semantic
	Capabilities() codec.Capabilities

	// Negotiate picks compression/encryption/size deterministically per
	// codec.Negotiate.
	Negotiate(peerCaps codec.Capabilities) codec.NegotiatedProtocol

	// Encode applies the protocol's inner structured format, then
	// compression last, per the negotiated state.
	Encode(negotiated codec.NegotiatedProtocol, message interface{}) ([]byte, error)
	// Decode applies decompression first, then the protocol's inner
	// structured format, per the negotiated state.
	Decode(negotiated codec.NegotiatedProtocol, data []byte, out interface{}) error
}
