// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package compress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corticalmesh/substrate/codec"
)

var schemes = []codec.Compression{
	codec.CompressionNone,
	codec.CompressionGzip,
	codec.CompressionLz4,
	codec.CompressionZstd,
}

func TestRoundTripAllSchemes(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated repeated repeated")
	for _, scheme := range schemes {
		scheme := scheme
		t.Run(scheme.String(), func(t *testing.T) {
			compressed, err := Compress(scheme, payload)
			require.NoError(t, err)

			decompressed, err := Decompress(scheme, compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestCompressNoneIsPassthrough(t *testing.T) {
	payload := []byte("unchanged")
	out, err := Compress(codec.CompressionNone, payload)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestCompressEmptyInput(t *testing.T) {
	for _, scheme := range schemes {
		compressed, err := Compress(scheme, nil)
		require.NoError(t, err)

		decompressed, err := Decompress(scheme, compressed)
		require.NoError(t, err)
		require.Empty(t, decompressed)
	}
}

func TestCompressUnknownSchemeErrors(t *testing.T) {
	_, err := Compress(codec.Compression(99), []byte("x"))
	require.Error(t, err)
}

func TestDecompressUnknownSchemeErrors(t *testing.T) {
	_, err := Decompress(codec.Compression(99), []byte("x"))
	require.Error(t, err)
}

func TestDecompressGarbageErrors(t *testing.T) {
	_, err := Decompress(codec.CompressionGzip, []byte("not gzip data"))
	require.Error(t, err)

	_, err = Decompress(codec.CompressionZstd, []byte("not zstd data"))
	require.Error(t, err)
}
