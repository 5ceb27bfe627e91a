// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memory implements transport.Transport over in-process Go
// channels: the primary, functional Transport backing for tests and
// single-process deployments, matching spec.md §6's "in-memory channel"
// example implementation of the consumed Transport abstraction.
package memory

import (
	"context"
	"sync"

	"github.com/corticalmesh/substrate/log"
	"github.com/corticalmesh/substrate/metrics"
	"github.com/corticalmesh/substrate/transport"
	"github.com/corticalmesh/substrate/utils/wrappers"

	"github.com/prometheus/client_golang/prometheus"
)

const streamBuffer = 64

// Transport is an in-memory, single-process transport.Transport. Sends
// to an address with no registered receive stream are silently dropped,
// matching at-most-once delivery with no durability guarantee.
type Transport struct {
	log     log.Logger
	metrics *metrics.Set

	mu       sync.RWMutex
	addrSubs map[string][]*memStream // address -> receive streams (FIFO per stream)
	topics   map[string][]*memStream // topic -> subscriber streams
	closed   bool
}

// New constructs an in-memory Transport.
func New(logger log.Logger, reg prometheus.Registerer) *Transport {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Transport{
		log:      log.Component(logger, "transport.memory"),
		metrics:  metrics.NewSet("transport_memory", reg, &wrappers.Errs{}),
		addrSubs: make(map[string][]*memStream),
		topics:   make(map[string][]*memStream),
	}
}

var _ transport.Transport = (*Transport)(nil)

func (t *Transport) SendRaw(ctx context.Context, address string, data []byte) error {
	select {
	case <-ctx.Done():
		return transport.Timeout("memory.SendRaw", address)
	default:
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return transport.Unavailable("memory.SendRaw", address)
	}

	streams := t.addrSubs[address]
	if len(streams) == 0 {
		t.metrics.Dropped.Inc()
		return nil // at-most-once: no receiver is not an error condition
	}
	msg := transport.Message{Address: address, Bytes: append([]byte(nil), data...)}
	for _, s := range streams {
		s.deliver(msg)
	}
	t.metrics.Sent.Inc()
	return nil
}

func (t *Transport) PublishRaw(ctx context.Context, topic string, data []byte) error {
	select {
	case <-ctx.Done():
		return transport.Timeout("memory.PublishRaw", topic)
	default:
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return transport.Unavailable("memory.PublishRaw", topic)
	}

	msg := transport.Message{Address: topic, Bytes: append([]byte(nil), data...)}
	for _, s := range t.topics[topic] {
		s.deliver(msg)
	}
	t.metrics.Sent.Inc()
	return nil
}

func (t *Transport) ReceiveRaw(_ context.Context, address string) (transport.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.Unavailable("memory.ReceiveRaw", address)
	}
	s := newMemStream(func(s *memStream) { t.removeAddrStream(address, s) })
	t.addrSubs[address] = append(t.addrSubs[address], s)
	return s, nil
}

func (t *Transport) SubscribeRaw(_ context.Context, topic string) (transport.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.Unavailable("memory.SubscribeRaw", topic)
	}
	s := newMemStream(func(s *memStream) { t.removeTopicStream(topic, s) })
	t.topics[topic] = append(t.topics[topic], s)
	return s, nil
}

func (t *Transport) removeAddrStream(address string, s *memStream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addrSubs[address] = removeStream(t.addrSubs[address], s)
}

func (t *Transport) removeTopicStream(topic string, s *memStream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.topics[topic] = removeStream(t.topics[topic], s)
}

func removeStream(streams []*memStream, target *memStream) []*memStream {
	out := streams[:0]
	for _, s := range streams {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, streams := range t.addrSubs {
		for _, s := range streams {
			s.closeLocked()
		}
	}
	for _, streams := range t.topics {
		for _, s := range streams {
			s.closeLocked()
		}
	}
	t.addrSubs = make(map[string][]*memStream)
	t.topics = make(map[string][]*memStream)
	t.log.Info("memory transport closed")
	return nil
}

// memStream is a buffered FIFO channel backing one receive/subscribe
// registration.
type memStream struct {
	ch        chan transport.Message
	once      sync.Once
	onClose   func(*memStream)
}

func newMemStream(onClose func(*memStream)) *memStream {
	return &memStream{ch: make(chan transport.Message, streamBuffer), onClose: onClose}
}

func (s *memStream) deliver(msg transport.Message) {
	select {
	case s.ch <- msg:
	default:
		// Backpressure at the transport layer: drop rather than block the
		// sender, consistent with at-most-once delivery.
	}
}

func (s *memStream) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return transport.Message{}, transport.Unavailable("memory.Recv", "")
		}
		return msg, nil
	case <-ctx.Done():
		return transport.Message{}, transport.Timeout("memory.Recv", "")
	}
}

func (s *memStream) Close() error {
	s.once.Do(func() {
		close(s.ch)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
	return nil
}

// closeLocked closes the channel without invoking onClose, for use by
// Transport.Close while already holding the transport's lock.
func (s *memStream) closeLocked() {
	s.once.Do(func() {
		close(s.ch)
	})
}
