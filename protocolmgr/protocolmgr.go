// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package protocolmgr is the protocol registry and per-peer negotiation
// cache described by spec.md §4.B/§4.C: it picks a protocol by ID,
// negotiates and caches the agreed wire parameters per peer, wraps
// outbound messages in a versioned envelope, and migrates inbound
// messages across protocol versions when the sender and receiver
// disagree.
package protocolmgr

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/corticalmesh/substrate/codec"
	"github.com/corticalmesh/substrate/ids"
	"github.com/corticalmesh/substrate/protocol"
	"github.com/corticalmesh/substrate/substraterr"
	"github.com/corticalmesh/substrate/transport"
	"github.com/corticalmesh/substrate/utils/version"
)

// Registry holds every protocol this unit can speak, keyed by protocol
// ID (spec.md §4.B: "signal", "gradient", "consensus").
type Registry struct {
	mu        sync.RWMutex
	protocols map[string]protocol.Protocol
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{protocols: make(map[string]protocol.Protocol)}
}

// Register adds p to the registry, keyed by p.ID().
func (r *Registry) Register(p protocol.Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocols[p.ID()] = p
}

// Get returns the protocol registered under id.
func (r *Registry) Get(id string) (protocol.Protocol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.protocols[id]
	return p, ok
}

// MigrationFunc adapts a decoded message produced under fromVersion into
// the shape expected by toVersion.
type MigrationFunc func(message interface{}) (interface{}, error)

// migrationKey identifies a (protocolID, from, to) version migration.
type migrationKey struct {
	protocolID string
	from, to   version.Semantic
}

// session is the cached negotiation outcome for one (peer, protocol)
// pair, grounded on networking/benchlist's failure/expiry bookkeeping
// shape: a map entry with a last-touched timestamp, swept by a janitor
// rather than an explicit per-entry timer.
type session struct {
	negotiated codec.NegotiatedProtocol
	lastUsed   time.Time
}

// Manager composes a Registry with the per-peer negotiation cache,
// versioned envelope wrapping, and version migration of spec.md §4.B/§4.C.
type Manager struct {
	registry *Registry
	ttl      time.Duration

	mu         sync.RWMutex
	sessions   map[ids.UnitID]map[string]*session
	migrations map[migrationKey]MigrationFunc
}

// NewManager constructs a Manager backed by registry, caching negotiated
// sessions for ttl since last use.
func NewManager(registry *Registry, ttl time.Duration) *Manager {
	return &Manager{
		registry:   registry,
		ttl:        ttl,
		sessions:   make(map[ids.UnitID]map[string]*session),
		migrations: make(map[migrationKey]MigrationFunc),
	}
}

// RegisterMigration installs the function that adapts protocolID messages
// decoded at fromVersion into toVersion's expected shape.
func (m *Manager) RegisterMigration(protocolID string, from, to version.Semantic, fn MigrationFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrations[migrationKey{protocolID, from, to}] = fn
}

// NegotiateWithPeer negotiates protocolID's wire parameters against peer's
// advertised capabilities, caching the result for ttl. A cache hit that
// has not expired is returned without renegotiating.
func (m *Manager) NegotiateWithPeer(peer ids.UnitID, protocolID string, peerCaps codec.Capabilities, now time.Time) (codec.NegotiatedProtocol, error) {
	p, ok := m.registry.Get(protocolID)
	if !ok {
		return codec.NegotiatedProtocol{}, substraterr.New(substraterr.ProtocolIncompatible, "NegotiateWithPeer", fmt.Sprintf("unknown protocol %q", protocolID))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	peerSessions, ok := m.sessions[peer]
	if !ok {
		peerSessions = make(map[string]*session)
		m.sessions[peer] = peerSessions
	}
	if s, ok := peerSessions[protocolID]; ok && !s.negotiated.Expired(now) {
		s.lastUsed = now
		return s.negotiated, nil
	}

	negotiated := p.Negotiate(peerCaps)
	peerSessions[protocolID] = &session{negotiated: negotiated, lastUsed: now}
	return negotiated, nil
}

// DropSession evicts the cached negotiation for (peer, protocolID), e.g.
// after a transport failure, forcing renegotiation on next use.
func (m *Manager) DropSession(peer ids.UnitID, protocolID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if peerSessions, ok := m.sessions[peer]; ok {
		delete(peerSessions, protocolID)
	}
}

// RunJanitor evicts sessions idle for longer than the manager's TTL at
// each tick, until ctx is canceled.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for peer, peerSessions := range m.sessions {
		for protocolID, s := range peerSessions {
			if now.Sub(s.lastUsed) > m.ttl {
				delete(peerSessions, protocolID)
			}
		}
		if len(peerSessions) == 0 {
			delete(m.sessions, peer)
		}
	}
}

// SendVersioned negotiates (or reuses) the session for (peer, protocolID),
// encodes message with that protocol, wraps the result in a versioned
// envelope (spec.md §6), and sends it on transportImpl.
func (m *Manager) SendVersioned(ctx context.Context, transportImpl transport.Transport, peer ids.UnitID, address, protocolID string, peerCaps codec.Capabilities, message interface{}) error {
	p, ok := m.registry.Get(protocolID)
	if !ok {
		return substraterr.New(substraterr.ProtocolIncompatible, "SendVersioned", fmt.Sprintf("unknown protocol %q", protocolID))
	}
	negotiated, err := m.NegotiateWithPeer(peer, protocolID, peerCaps, time.Now())
	if err != nil {
		return err
	}
	payload, err := p.Encode(negotiated, message)
	if err != nil {
		return substraterr.Wrap(substraterr.Internal, "SendVersioned", "encode failed", err)
	}
	if payload == nil {
		// Encode rejected the message (e.g. a decayed signal); nothing to
		// send, and that is not itself an error.
		return nil
	}
	envelope := codec.EncodeEnvelope(codec.Envelope{
		ProtocolID: protocolID,
		Version:    p.Version(),
		Payload:    payload,
	})
	return transportImpl.SendRaw(ctx, address, envelope)
}

// ReceiveVersioned decodes an inbound envelope, checking the sender's
// protocol version against what's registered locally. An exact version
// match decodes directly; otherwise a registered migration is applied to
// the decoded value before returning it. A version with neither an exact
// match nor a registered migration is reported as ProtocolIncompatible.
func (m *Manager) ReceiveVersioned(negotiated codec.NegotiatedProtocol, raw []byte, out interface{}) error {
	envelope, err := codec.DecodeEnvelope(raw)
	if err != nil {
		return substraterr.Wrap(substraterr.Internal, "ReceiveVersioned", "malformed envelope", err)
	}
	p, ok := m.registry.Get(envelope.ProtocolID)
	if !ok {
		return substraterr.New(substraterr.ProtocolIncompatible, "ReceiveVersioned", fmt.Sprintf("unknown protocol %q", envelope.ProtocolID))
	}

	localVersion := p.Version()
	if envelope.Version.Compare(localVersion) == 0 {
		return p.Decode(negotiated, envelope.Payload, out)
	}

	m.mu.RLock()
	fn, ok := m.migrations[migrationKey{envelope.ProtocolID, envelope.Version, localVersion}]
	m.mu.RUnlock()
	if !ok {
		return substraterr.New(substraterr.ProtocolIncompatible, "ReceiveVersioned",
			fmt.Sprintf("%s: no migration from %s to %s", envelope.ProtocolID, envelope.Version, localVersion))
	}

	if err := p.Decode(negotiated, envelope.Payload, out); err != nil {
		return err
	}
	migrated, err := fn(derefOut(out))
	if err != nil {
		return substraterr.Wrap(substraterr.Internal, "ReceiveVersioned", "migration failed", err)
	}
	return assignOut(out, migrated)
}

// derefOut reads the value behind the pointer out points to, so a
// MigrationFunc receives the plain decoded value rather than the
// destination pointer.
func derefOut(out interface{}) interface{} {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return out
	}
	return v.Elem().Interface()
}

// assignOut writes a migrated value back into the pointer out points to.
// It requires value's dynamic type to be assignable to out's pointed-to
// type, which holds whenever a MigrationFunc returns the same Go type it
// received (migrations adapt field values, not message shapes).
func assignOut(out interface{}, value interface{}) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return substraterr.New(substraterr.Internal, "assignOut", "out must be a non-nil pointer")
	}
	elem := v.Elem()
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(elem.Type()) {
		return substraterr.New(substraterr.Internal, "assignOut", fmt.Sprintf("migrated value of type %s not assignable to %s", rv.Type(), elem.Type()))
	}
	elem.Set(rv)
	return nil
}
