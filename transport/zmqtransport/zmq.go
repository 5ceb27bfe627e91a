// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package zmqtransport implements transport.Transport over ZeroMQ via
// github.com/pebbe/zmq4 — a real, widely used Go ZMQ binding (the
// teacher's cmd/consensus wiring reaches for a proprietary in-house ZMQ
// package; this substrate uses the genuine upstream binding instead, see
// DESIGN.md). DEALER/ROUTER sockets back point-to-point SendRaw/
// ReceiveRaw, and a PUB socket backs PublishRaw. There is no SUB socket:
// a stream returned by SubscribeRaw is fed by nothing, so it receives no
// messages until it is closed.
package zmqtransport

import (
	"context"
	"fmt"
	"sync"

	zmq "github.com/pebbe/zmq4"

	"github.com/corticalmesh/substrate/log"
	"github.com/corticalmesh/substrate/transport"
)

// Config configures the ZMQ transport's bind endpoints.
type Config struct {
	NodeID       string
	RouterEndpoint string // e.g. "tcp://*:5555"
	PubEndpoint    string // e.g. "tcp://*:5556"
}

// Transport is a ZeroMQ-backed transport.Transport.
type Transport struct {
	log log.Logger
	cfg Config

	ctx *zmq.Context

	mu     sync.Mutex
	router *zmq.Socket // ROUTER: bound, receives SendRaw deliveries
	dealer map[string]*zmq.Socket // address -> DEALER connected to peer's router
	pub    *zmq.Socket            // PUB: bound, publishes topics

	recvStreams map[string][]*routedStream
	subStreams  map[string][]*routedStream

	closed bool
}

// New creates a ZMQ transport bound to the endpoints in cfg. Callers
// must call Start to begin the background receive loop.
func New(logger log.Logger, cfg Config) (*Transport, error) {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	zctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("zmqtransport: new context: %w", err)
	}
	router, err := zctx.NewSocket(zmq.ROUTER)
	if err != nil {
		return nil, fmt.Errorf("zmqtransport: new router socket: %w", err)
	}
	if err := router.Bind(cfg.RouterEndpoint); err != nil {
		return nil, fmt.Errorf("zmqtransport: bind router %s: %w", cfg.RouterEndpoint, err)
	}
	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("zmqtransport: new pub socket: %w", err)
	}
	if err := pub.Bind(cfg.PubEndpoint); err != nil {
		return nil, fmt.Errorf("zmqtransport: bind pub %s: %w", cfg.PubEndpoint, err)
	}
	return &Transport{
		log:         log.Component(logger, "transport.zmq"),
		cfg:         cfg,
		ctx:         zctx,
		router:      router,
		dealer:      make(map[string]*zmq.Socket),
		pub:         pub,
		recvStreams: make(map[string][]*routedStream),
		subStreams:  make(map[string][]*routedStream),
	}, nil
}

var _ transport.Transport = (*Transport)(nil)

// Connect registers address as reachable at endpoint (e.g.
// "tcp://host:5555"), opening a DEALER socket to its ROUTER.
func (t *Transport) Connect(address, endpoint string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.dealer[address]; ok {
		return nil
	}
	d, err := t.ctx.NewSocket(zmq.DEALER)
	if err != nil {
		return fmt.Errorf("zmqtransport: new dealer socket: %w", err)
	}
	if t.cfg.NodeID != "" {
		if err := d.SetIdentity(t.cfg.NodeID); err != nil {
			return fmt.Errorf("zmqtransport: set dealer identity: %w", err)
		}
	}
	if err := d.Connect(endpoint); err != nil {
		return fmt.Errorf("zmqtransport: connect dealer %s: %w", endpoint, err)
	}
	t.dealer[address] = d
	return nil
}

func (t *Transport) SendRaw(ctx context.Context, address string, data []byte) error {
	select {
	case <-ctx.Done():
		return transport.Timeout("zmq.SendRaw", address)
	default:
	}
	t.mu.Lock()
	d, ok := t.dealer[address]
	t.mu.Unlock()
	if !ok {
		return transport.Unavailable("zmq.SendRaw", address)
	}
	if _, err := d.SendBytes(data, 0); err != nil {
		return transport.Unavailable("zmq.SendRaw", address)
	}
	return nil
}

func (t *Transport) PublishRaw(ctx context.Context, topic string, data []byte) error {
	select {
	case <-ctx.Done():
		return transport.Timeout("zmq.PublishRaw", topic)
	default:
	}
	frame := append([]byte(topic+"\x00"), data...)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.pub.SendBytes(frame, 0); err != nil {
		return transport.Unavailable("zmq.PublishRaw", topic)
	}
	return nil
}

func (t *Transport) ReceiveRaw(_ context.Context, address string) (transport.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.Unavailable("zmq.ReceiveRaw", address)
	}
	s := newRoutedStream()
	t.recvStreams[address] = append(t.recvStreams[address], s)
	return s, nil
}

func (t *Transport) SubscribeRaw(_ context.Context, topic string) (transport.Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.Unavailable("zmq.SubscribeRaw", topic)
	}
	s := newRoutedStream()
	t.subStreams[topic] = append(t.subStreams[topic], s)
	return s, nil
}

// Start runs the router's receive loop until ctx is canceled. It
// demultiplexes inbound frames by peer identity and fans them out to the
// matching ReceiveRaw streams for that address.
func (t *Transport) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			frames, err := t.router.RecvMessageBytes(0)
			if err != nil {
				t.log.Warn("zmq router recv failed", "error", err)
				continue
			}
			if len(frames) < 2 {
				continue
			}
			identity, payload := string(frames[0]), frames[len(frames)-1]
			t.mu.Lock()
			streams := append([]*routedStream(nil), t.recvStreams[identity]...)
			t.mu.Unlock()
			for _, s := range streams {
				s.deliver(transport.Message{Address: identity, Bytes: payload})
			}
		}
	}()
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, d := range t.dealer {
		_ = d.Close()
	}
	_ = t.router.Close()
	_ = t.pub.Close()
	for _, streams := range t.recvStreams {
		for _, s := range streams {
			s.closeLocked()
		}
	}
	for _, streams := range t.subStreams {
		for _, s := range streams {
			s.closeLocked()
		}
	}
	return t.ctx.Term()
}

type routedStream struct {
	ch   chan transport.Message
	once sync.Once
}

func newRoutedStream() *routedStream {
	return &routedStream{ch: make(chan transport.Message, 64)}
}

func (s *routedStream) deliver(msg transport.Message) {
	select {
	case s.ch <- msg:
	default:
	}
}

func (s *routedStream) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return transport.Message{}, transport.Unavailable("zmq.Recv", "")
		}
		return msg, nil
	case <-ctx.Done():
		return transport.Message{}, transport.Timeout("zmq.Recv", "")
	}
}

func (s *routedStream) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func (s *routedStream) closeLocked() { s.Close() }
