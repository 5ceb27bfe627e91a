// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gradientproto implements the Gradient protocol of spec.md
// §4.B: ordered, bidirectional, batches per-target gradients, clips
// oversized magnitudes rather than dropping them.
package gradientproto

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/codec/compress"
	"github.com/corticalmesh/substrate/gradient"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/utils/set"
	"github.com/corticalmesh/substrate/utils/version"
)

const ProtocolID = "substrate.gradient"

var currentVersion = version.Semantic{Major: 1, Minor: 0, Patch: 0}

// Protocol implements protocol.Protocol for Gradient messages, plus the
// target-keyed batching described in spec.md §4.B.
type Protocol struct {
	maxMessageSize uint64
	magnitudeClip  float64
	batchSize      int
	flushInterval  time.Duration

	mu      sync.Mutex
	batches map[ids.UnitID][]gradient.Gradient
}

// New constructs a Gradient protocol instance.
func New(maxMessageSize uint64, magnitudeClip float64, batchSize int, flushInterval time.Duration) *Protocol {
	return &Protocol{
		maxMessageSize: maxMessageSize,
		magnitudeClip:  magnitudeClip,
		batchSize:      batchSize,
		flushInterval:  flushInterval,
		batches:        make(map[ids.UnitID][]gradient.Gradient),
	}
}

func (p *Protocol) ID() string                { return ProtocolID }
func (p *Protocol) Version() version.Semantic { return currentVersion }

func (p *Protocol) Capabilities() codec.Capabilities {
	return codec.Capabilities{
		Compression:     set.Of(codec.CompressionNone, codec.CompressionGzip, codec.CompressionLz4, codec.CompressionZstd),
		Encryption:      set.Of(codec.EncryptionNone, codec.EncryptionTLS, codec.EncryptionAES256),
		MaxMessageSize:  p.maxMessageSize,
		Streaming:       false,
		Bidirectional:   true,
		OrderedDelivery: true,
	}
}

func (p *Protocol) Negotiate(peerCaps codec.Capabilities) codec.NegotiatedProtocol {
	return codec.Negotiate(p.Capabilities(), peerCaps, currentVersion, time.Now(), 24*time.Hour)
}

// Offer queues g for its target, clipping an oversized magnitude instead
// of rejecting it, and reports whether the batch for that target should
// now be flushed (fill trigger; the caller's timer handles the other).
func (p *Protocol) Offer(target ids.UnitID, g gradient.Gradient) (shouldFlush bool) {
	g = g.Clip(p.magnitudeClip)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches[target] = append(p.batches[target], g)
	return len(p.batches[target]) >= p.batchSize
}

// Flush drains and returns the accumulated batch for target.
func (p *Protocol) Flush(target ids.UnitID) []gradient.Gradient {
	p.mu.Lock()
	defer p.mu.Unlock()
	batch := p.batches[target]
	delete(p.batches, target)
	return batch
}

// FlushAll drains every pending batch, used by the timer-triggered flush.
func (p *Protocol) FlushAll() map[ids.UnitID][]gradient.Gradient {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.batches
	p.batches = make(map[ids.UnitID][]gradient.Gradient)
	return out
}

type wireGradient struct {
	ID          string                 `json:"id"`
	Source      string                 `json:"source"`
	Path        []string               `json:"path"`
	Magnitude   float64                `json:"magnitude"`
	Adjustments map[string]interface{} `json:"adjustments,omitempty"`
}

func toWire(g gradient.Gradient) wireGradient {
	path := make([]string, len(g.Path))
	for i, id := range g.Path {
		path[i] = id.String()
	}
	return wireGradient{
		ID:          g.ID.String(),
		Source:      g.Source.String(),
		Path:        path,
		Magnitude:   g.Magnitude,
		Adjustments: g.Adjustments,
	}
}

// Encode serializes a batch ([]gradient.Gradient), the only shape
// Offer/Flush/FlushAll ever produce.
func (p *Protocol) Encode(negotiated codec.NegotiatedProtocol, message interface{}) ([]byte, error) {
	m, ok := message.([]gradient.Gradient)
	if !ok {
		return nil, fmt.Errorf("gradientproto: encode expects []gradient.Gradient, got %T", message)
	}
	wired := make([]wireGradient, len(m))
	for i, g := range m {
		wired[i] = toWire(g)
	}
	raw, err := json.Marshal(wired)
	if err != nil {
		return nil, fmt.Errorf("gradientproto: marshal: %w", err)
	}
	return compress.Compress(negotiated.Compression, raw)
}

// Decode reverses Encode into *[]gradient.Gradient.
func (p *Protocol) Decode(negotiated codec.NegotiatedProtocol, data []byte, out interface{}) error {
	raw, err := compress.Decompress(negotiated.Compression, data)
	if err != nil {
		return fmt.Errorf("gradientproto: decompress: %w", err)
	}
	dst, ok := out.(*[]gradient.Gradient)
	if !ok {
		return fmt.Errorf("gradientproto: decode expects *[]gradient.Gradient, got %T", out)
	}
	var wired []wireGradient
	if err := json.Unmarshal(raw, &wired); err != nil {
		return fmt.Errorf("gradientproto: unmarshal: %w", err)
	}
	result := make([]gradient.Gradient, 0, len(wired))
	for _, w := range wired {
		g, err := fromWire(w)
		if err != nil {
			return err
		}
		result = append(result, g)
	}
	*dst = result
	return nil
}

func fromWire(w wireGradient) (gradient.Gradient, error) {
	id, err := ids.FromString(w.ID)
	if err != nil {
		return gradient.Gradient{}, fmt.Errorf("gradientproto: bad id: %w", err)
	}
	source, err := ids.FromString(w.Source)
	if err != nil {
		return gradient.Gradient{}, fmt.Errorf("gradientproto: bad source: %w", err)
	}
	path := make([]ids.UnitID, len(w.Path))
	for i, s := range w.Path {
		pid, err := ids.FromString(s)
		if err != nil {
			return gradient.Gradient{}, fmt.Errorf("gradientproto: bad path entry: %w", err)
		}
		path[i] = ids.UnitID(pid)
	}
	return gradient.Gradient{
		ID:          id,
		Source:      ids.UnitID(source),
		Path:        path,
		Magnitude:   w.Magnitude,
		Adjustments: w.Adjustments,
	}, nil
}
