// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"github.com/corticalmesh/substrate/utils/version"
	"github.com/corticalmesh/substrate/utils/wrappers"
)

// Envelope is the versioned envelope of spec.md §6: { protocol id,
// version, payload bytes }. Migrations convert payloads between
// adjacent versions.
type Envelope struct {
	ProtocolID string
	Version    version.Semantic
	Payload    []byte
}

// EncodeEnvelope serializes e per spec.md §6's wire format: one varint
// protocol-id-length, protocol-id bytes, three varints (major, minor,
// patch), one varint payload length, payload bytes.
func EncodeEnvelope(e Envelope) []byte {
	p := wrappers.NewPacker(len(e.ProtocolID) + len(e.Payload) + 24)
	p.PackVarString(e.ProtocolID)
	p.PackUvarint(uint64(e.Version.Major))
	p.PackUvarint(uint64(e.Version.Minor))
	p.PackUvarint(uint64(e.Version.Patch))
	p.PackVarBytes(e.Payload)
	return p.Bytes
}

// DecodeEnvelope parses bytes produced by EncodeEnvelope.
func DecodeEnvelope(b []byte) (Envelope, error) {
	u := wrappers.NewUnpacker(b)
	protocolID := u.UnpackVarString()
	major := u.UnpackUvarint()
	minor := u.UnpackUvarint()
	patch := u.UnpackUvarint()
	payload := u.UnpackVarBytes()
	if u.Err != nil {
		return Envelope{}, u.Err
	}
	return Envelope{
		ProtocolID: protocolID,
		Version:    version.Semantic{Major: int(major), Minor: int(minor), Patch: int(patch)},
		Payload:    payload,
	}, nil
}
