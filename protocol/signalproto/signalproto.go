// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package signalproto implements the Signal protocol of spec.md §4.B:
// unordered, bidirectional, no encryption needed, broadcast supported.
package signalproto

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/codec/compress"
	"github.com/corticalmesh/substrate/signal"
	"github.com/corticalmesh/substrate/utils/set"
	"github.com/corticalmesh/substrate/utils/version"
)

const ProtocolID = "substrate.signal"

var currentVersion = version.Semantic{Major: 1, Minor: 0, Patch: 0}

// Protocol implements protocol.Protocol for Signal messages.
type Protocol struct {
	maxMessageSize uint64

	sent     atomic.Int64
	received atomic.Int64
	dropped  atomic.Int64
	// strengthSum1000 is the fixed-point (×1000) sum of strengths, to
	// permit atomic accumulation per spec.md §4.B.
	strengthSum1000 atomic.Int64
}

// New constructs a Signal protocol instance.
func New(maxMessageSize uint64) *Protocol {
	return &Protocol{maxMessageSize: maxMessageSize}
}

func (p *Protocol) ID() string               { return ProtocolID }
func (p *Protocol) Version() version.Semantic { return currentVersion }

func (p *Protocol) Capabilities() codec.Capabilities {
	return codec.Capabilities{
		Compression:     set.Of(codec.CompressionNone, codec.CompressionGzip, codec.CompressionLz4, codec.CompressionZstd),
		Encryption:      set.Of(codec.EncryptionNone),
		MaxMessageSize:  p.maxMessageSize,
		Streaming:       false,
		Bidirectional:   true,
		OrderedDelivery: false,
	}
}

func (p *Protocol) Negotiate(peerCaps codec.Capabilities) codec.NegotiatedProtocol {
	return codec.Negotiate(p.Capabilities(), peerCaps, currentVersion, time.Now(), 24*time.Hour)
}

// wireSignal is the stable structured format named by spec.md §6: field
// order id, source, optional target, timestamp, activation, metadata.
type wireSignal struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Target    string            `json:"target,omitempty"`
	Timestamp int64             `json:"timestamp"`
	Content   []byte            `json:"content"`
	Strength  float64           `json:"strength"`
	Decay     float64           `json:"decay_rate"`
	Depth     int               `json:"propagation_depth"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func toWire(s signal.Signal) wireSignal {
	w := wireSignal{
		ID:        s.ID.String(),
		Source:    s.Source.String(),
		Timestamp: s.Timestamp.UnixNano(),
		Content:   s.Activation.Content,
		Strength:  s.Activation.Strength,
		Decay:     s.Activation.DecayRate,
		Depth:     s.Activation.PropagationDepth,
		Metadata:  s.Metadata,
	}
	if !s.Target.IsEmpty() {
		w.Target = s.Target.String()
	}
	return w
}

// Encode serializes s, applying compression last per the negotiated
// state. Before sending, a signal failing ShouldPropagate is rejected
// and counted as dropped rather than returned as an encode error.
func (p *Protocol) Encode(negotiated codec.NegotiatedProtocol, message interface{}) ([]byte, error) {
	s, ok := message.(signal.Signal)
	if !ok {
		return nil, fmt.Errorf("signalproto: encode expects signal.Signal, got %T", message)
	}
	if !s.ShouldPropagate(signal.DefaultStrengthFloor, signal.DefaultMaxDepth) {
		p.dropped.Add(1)
		return nil, nil
	}

	raw, err := json.Marshal(toWire(s))
	if err != nil {
		return nil, fmt.Errorf("signalproto: marshal: %w", err)
	}
	out, err := compress.Compress(negotiated.Compression, raw)
	if err != nil {
		return nil, fmt.Errorf("signalproto: compress: %w", err)
	}
	p.sent.Add(1)
	p.strengthSum1000.Add(int64(s.Activation.Strength * 1000))
	return out, nil
}

// Decode reverses Encode: decompress first, then parse the structured
// format.
func (p *Protocol) Decode(negotiated codec.NegotiatedProtocol, data []byte, out interface{}) error {
	raw, err := compress.Decompress(negotiated.Compression, data)
	if err != nil {
		return fmt.Errorf("signalproto: decompress: %w", err)
	}
	var w wireSignal
	if err := json.Unmarshal(raw, &w); err != nil {
		return fmt.Errorf("signalproto: unmarshal: %w", err)
	}
	dst, ok := out.(*signal.Signal)
	if !ok {
		return fmt.Errorf("signalproto: decode expects *signal.Signal, got %T", out)
	}
	p.received.Add(1)
	return fromWire(w, dst)
}

func fromWire(w wireSignal, dst *signal.Signal) error {
	id, err := parseID(w.ID)
	if err != nil {
		return err
	}
	source, err := parseUnitID(w.Source)
	if err != nil {
		return err
	}
	var target = emptyUnitID
	if w.Target != "" {
		target, err = parseUnitID(w.Target)
		if err != nil {
			return err
		}
	}
	*dst = signal.Signal{
		ID:     id,
		Source: source,
		Target: target,
		Activation: signal.Activation{
			Content:          w.Content,
			Strength:         w.Strength,
			DecayRate:        w.Decay,
			PropagationDepth: w.Depth,
		},
		Metadata: w.Metadata,
	}
	dst.Timestamp = unixNano(w.Timestamp)
	return nil
}

// Counters returns the protocol's observable counters named in
// spec.md §4.B: sent, received, dropped, and the sum-of-strengths
// fixed-point accumulator (divide by 1000 for the float value).
func (p *Protocol) Counters() (sent, received, dropped, strengthSum1000 int64) {
	return p.sent.Load(), p.received.Load(), p.dropped.Load(), p.strengthSum1000.Load()
}
