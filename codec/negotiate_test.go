// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/utils/set"
	"github.com/corticalmesh/substrate/utils/version"
)

var v1 = version.Semantic{Major: 1, Minor: 0, Patch: 0}

func TestNegotiatePicksHighestMutualCompression(t *testing.T) {
	self := Capabilities{
		Compression:    set.Of(CompressionNone, CompressionGzip, CompressionZstd),
		Encryption:     set.Of(EncryptionNone),
		MaxMessageSize: 1024,
	}
	peer := Capabilities{
		Compression:    set.Of(CompressionNone, CompressionGzip, CompressionLz4),
		Encryption:     set.Of(EncryptionNone),
		MaxMessageSize: 2048,
	}

	n := Negotiate(self, peer, v1, time.Unix(0, 0), time.Hour)
	require.Equal(t, CompressionGzip, n.Compression)
}

func TestNegotiatePicksStrongestMutualEncryption(t *testing.T) {
	self := Capabilities{
		Compression: set.Of(CompressionNone),
		Encryption:  set.Of(EncryptionNone, EncryptionTLS, EncryptionAES256),
	}
	peer := Capabilities{
		Compression: set.Of(CompressionNone),
		Encryption:  set.Of(EncryptionNone, EncryptionTLS),
	}

	n := Negotiate(self, peer, v1, time.Unix(0, 0), time.Hour)
	require.Equal(t, EncryptionTLS, n.Encryption)
}

func TestNegotiateFallsBackToNoneWithoutOverlap(t *testing.T) {
	self := Capabilities{Compression: set.Of(CompressionZstd), Encryption: set.Of(EncryptionAES256)}
	peer := Capabilities{Compression: set.Of(CompressionGzip), Encryption: set.Of(EncryptionTLS)}

	n := Negotiate(self, peer, v1, time.Unix(0, 0), time.Hour)
	require.Equal(t, CompressionNone, n.Compression)
	require.Equal(t, EncryptionNone, n.Encryption)
}

func TestNegotiatePicksMinimumMaxMessageSize(t *testing.T) {
	self := Capabilities{Compression: set.Of(CompressionNone), Encryption: set.Of(EncryptionNone), MaxMessageSize: 4096}
	peer := Capabilities{Compression: set.Of(CompressionNone), Encryption: set.Of(EncryptionNone), MaxMessageSize: 1024}

	n := Negotiate(self, peer, v1, time.Unix(0, 0), time.Hour)
	require.Equal(t, uint64(1024), n.MaxMessageSize)
}

func TestNegotiateSetsValidUntilFromTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	n := Negotiate(Capabilities{}, Capabilities{}, v1, now, 5*time.Minute)
	require.Equal(t, now, n.EstablishedAt)
	require.Equal(t, now.Add(5*time.Minute), n.ValidUntil)
}

func TestValidRejectsOversizedMessageLimit(t *testing.T) {
	n := NegotiatedProtocol{
		EstablishedAt:  time.Unix(0, 0),
		ValidUntil:     time.Unix(100, 0),
		MaxMessageSize: 2048,
	}
	require.False(t, n.Valid(1024, 4096))
	require.True(t, n.Valid(2048, 4096))
}

func TestValidRejectsNonPositiveWindow(t *testing.T) {
	n := NegotiatedProtocol{
		EstablishedAt:  time.Unix(100, 0),
		ValidUntil:     time.Unix(100, 0),
		MaxMessageSize: 10,
	}
	require.False(t, n.Valid(10, 10))
}

func TestExpired(t *testing.T) {
	n := NegotiatedProtocol{ValidUntil: time.Unix(100, 0)}
	require.False(t, n.Expired(time.Unix(99, 0)))
	require.True(t, n.Expired(time.Unix(100, 0)))
	require.True(t, n.Expired(time.Unix(101, 0)))
}

func TestCompressionString(t *testing.T) {
	require.Equal(t, "none", CompressionNone.String())
	require.Equal(t, "gzip", CompressionGzip.String())
	require.Equal(t, "lz4", CompressionLz4.String())
	require.Equal(t, "zstd", CompressionZstd.String())
}

func TestEncryptionString(t *testing.T) {
	require.Equal(t, "none", EncryptionNone.String())
	require.Equal(t, "tls", EncryptionTLS.String())
	require.Equal(t, "aes256", EncryptionAES256.String())
}
