// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Errs is a collection of errors, accumulated during a multi-step
// registration or validation pass and rendered as one error at the end.
type Errs struct {
	mu   sync.RWMutex
	errs []error
}

// Add adds an error to the collection. A nil error is a no-op.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored returns true if any errors have been added.
func (e *Errs) Errored() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs) > 0
}

// Err returns the errors as a single error, or nil if none were added.
func (e *Errs) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return errors.New(e.String())
	}
}

// String returns a string representation of all errors.
func (e *Errs) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error", len(e.errs)))
	if len(e.errs) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(" occurred:")
	for _, err := range e.errs {
		sb.WriteString("\n\t* ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Len returns the number of errors accumulated.
func (e *Errs) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs)
}

// Packer packs data into bytes. Used to build the wire formats of
// spec.md §6: the versioned envelope (varint-length-prefixed protocol id
// and payload, three version varints) and the signal protocol's stable
// structured encoding.
type Packer struct {
	Bytes []byte
	Err   error
}

// NewPacker returns a new Packer with the given initial capacity hint.
func NewPacker(size int) *Packer {
	return &Packer{Bytes: make([]byte, 0, size)}
}

// PackByte packs a single byte.
func (p *Packer) PackByte(b byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b)
}

// PackBytes appends a raw byte slice with no length prefix.
func (p *Packer) PackBytes(bytes []byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, bytes...)
}

// PackInt packs a uint32 as 4 bytes, big-endian.
func (p *Packer) PackInt(i uint32) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
}

// PackLong packs a uint64 as 8 bytes, big-endian.
func (p *Packer) PackLong(l uint64) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes,
		byte(l>>56), byte(l>>48), byte(l>>40), byte(l>>32),
		byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
}

// PackUvarint packs v as a LEB128 varint, per the wire format named in
// spec.md §6 for protocol-id length, version triples, and payload length.
func (p *Packer) PackUvarint(v uint64) {
	if p.Err != nil {
		return
	}
	p.Bytes = binary.AppendUvarint(p.Bytes, v)
}

// PackVarBytes packs a varint length prefix followed by the bytes.
func (p *Packer) PackVarBytes(bytes []byte) {
	p.PackUvarint(uint64(len(bytes)))
	p.PackBytes(bytes)
}

// PackVarString packs a varint length prefix followed by the string's bytes.
func (p *Packer) PackVarString(s string) {
	p.PackVarBytes([]byte(s))
}

var errBadVarint = errors.New("wrappers: malformed varint")

// Unpacker reads sequentially from a byte slice, mirroring Packer's
// encoding. Each method is a no-op once Err is set, so callers can chain
// unpacks and check Err once at the end.
type Unpacker struct {
	Bytes  []byte
	Offset int
	Err    error
}

// NewUnpacker wraps b for sequential reads.
func NewUnpacker(b []byte) *Unpacker {
	return &Unpacker{Bytes: b}
}

// UnpackByte reads a single byte.
func (u *Unpacker) UnpackByte() byte {
	if u.Err != nil {
		return 0
	}
	if u.Offset >= len(u.Bytes) {
		u.Err = errBadVarint
		return 0
	}
	b := u.Bytes[u.Offset]
	u.Offset++
	return b
}

// UnpackBytes reads exactly n raw bytes.
func (u *Unpacker) UnpackBytes(n int) []byte {
	if u.Err != nil {
		return nil
	}
	if n < 0 || u.Offset+n > len(u.Bytes) {
		u.Err = errBadVarint
		return nil
	}
	b := u.Bytes[u.Offset : u.Offset+n]
	u.Offset += n
	return b
}

// UnpackUvarint reads a LEB128 varint.
func (u *Unpacker) UnpackUvarint() uint64 {
	if u.Err != nil {
		return 0
	}
	v, n := binary.Uvarint(u.Bytes[u.Offset:])
	if n <= 0 {
		u.Err = errBadVarint
		return 0
	}
	u.Offset += n
	return v
}

// UnpackVarBytes reads a varint length prefix followed by that many bytes.
func (u *Unpacker) UnpackVarBytes() []byte {
	n := u.UnpackUvarint()
	if u.Err != nil {
		return nil
	}
	return u.UnpackBytes(int(n))
}

// UnpackVarString reads a varint-length-prefixed string.
func (u *Unpacker) UnpackVarString() string {
	return string(u.UnpackVarBytes())
}

// Remaining returns the bytes not yet consumed.
func (u *Unpacker) Remaining() []byte {
	if u.Offset >= len(u.Bytes) {
		return nil
	}
	return u.Bytes[u.Offset:]
}
