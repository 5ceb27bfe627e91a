// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"time"

	"github.com/corticalmesh/substrate/utils/set"
	"github.com/corticalmesh/substrate/utils/version"
)

// Compression is one of the four compression schemes of spec.md §3.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionLz4
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "none"
	}
}

// compressionPriority orders compression schemes by negotiation
// preference: "choose the highest mutually supported compression
// (priority Zstd > Lz4 > Gzip > None)" (spec.md §4.B).
var compressionPriority = []Compression{CompressionZstd, CompressionLz4, CompressionGzip, CompressionNone}

// Encryption is one of the three encryption schemes of spec.md §3.
type Encryption int

const (
	EncryptionNone Encryption = iota
	EncryptionTLS
	EncryptionAES256
)

func (e Encryption) String() string {
	switch e {
	case EncryptionTLS:
		return "tls"
	case EncryptionAES256:
		return "aes256"
	default:
		return "none"
	}
}

// encryptionPriority orders encryption schemes strongest-first so
// negotiation picks "the strongest mutually supported encryption"
// (spec.md §4.B).
var encryptionPriority = []Encryption{EncryptionAES256, EncryptionTLS, EncryptionNone}

// Capabilities is what a protocol or peer advertises for negotiation
// (spec.md §4.B capabilities() result).
type Capabilities struct {
	Compression       set.Set[Compression]
	Encryption        set.Set[Encryption]
	MaxMessageSize    uint64
	Streaming         bool
	Bidirectional     bool
	OrderedDelivery   bool
}

// NegotiatedProtocol is the agreed compression, encryption, size, and
// version for a peer session (spec.md §3). Cached per peer until TTL
// expiry or explicit drop.
type NegotiatedProtocol struct {
	ProtocolVersion version.Semantic
	Compression     Compression
	Encryption      Encryption
	MaxMessageSize  uint64
	EstablishedAt   time.Time
	ValidUntil      time.Time
}

// Negotiate deterministically picks the highest mutually supported
// compression, the strongest mutually supported encryption, and
// min(self.max, peer.max) for size, per spec.md §4.B. It never fails:
// when only "None" intersects, that is itself a valid negotiation
// outcome (spec.md §8 boundary behavior).
func Negotiate(self, peer Capabilities, protocolVersion version.Semantic, now time.Time, ttl time.Duration) NegotiatedProtocol {
	compression := CompressionNone
	for _, c := range compressionPriority {
		if self.Compression.Contains(c) && peer.Compression.Contains(c) {
			compression = c
			break
		}
	}

	encryption := EncryptionNone
	for _, e := range encryptionPriority {
		if self.Encryption.Contains(e) && peer.Encryption.Contains(e) {
			encryption = e
			break
		}
	}

	maxSize := self.MaxMessageSize
	if peer.MaxMessageSize < maxSize {
		maxSize = peer.MaxMessageSize
	}

	return NegotiatedProtocol{
		ProtocolVersion: protocolVersion,
		Compression:     compression,
		Encryption:      encryption,
		MaxMessageSize:  maxSize,
		EstablishedAt:   now,
		ValidUntil:      now.Add(ttl),
	}
}

// Valid checks spec.md §8 invariant 4: valid_until > established_at and
// max_message_size <= min(self_cap, peer_cap).
func (n NegotiatedProtocol) Valid(selfCap, peerCap uint64) bool {
	min := selfCap
	if peerCap < min {
		min = peerCap
	}
	return n.ValidUntil.After(n.EstablishedAt) && n.MaxMessageSize <= min
}

// Expired reports whether now is at or past ValidUntil.
func (n NegotiatedProtocol) Expired(now time.Time) bool {
	return !now.Before(n.ValidUntil)
}
