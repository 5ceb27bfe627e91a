// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package compress implements the negotiated compression transforms of
// spec.md §3/§4.B: applied last on encode, first on decode. Gzip and
// Zstd come from github.com/klauspost/compress, the same dependency the
// teacher and the rest of the retrieved pack pull in for fast block
// codecs. No example repo vendors an lz4 binding, so the codec.Lz4 slot
// is served by klauspost/compress/s2 — the nearest fast, block-oriented
// codec already in the dependency graph (see DESIGN.md).
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/corticalmesh/substrate/codec"
)

// Compress applies scheme to data.
func Compress(scheme codec.Compression, data []byte) ([]byte, error) {
	switch scheme {
	case codec.CompressionNone:
		return data, nil
	case codec.CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress: gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: gzip close: %w", err)
		}
		return buf.Bytes(), nil
	case codec.CompressionLz4:
		return s2.Encode(nil, data), nil
	case codec.CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("compress: unknown scheme %v", scheme)
	}
}

// Decompress reverses Compress.
func Decompress(scheme codec.Compression, data []byte) ([]byte, error) {
	switch scheme {
	case codec.CompressionNone:
		return data, nil
	case codec.CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress: gzip reader: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("decompress: gzip read: %w", err)
		}
		return out, nil
	case codec.CompressionLz4:
		return s2.Decode(nil, data)
	case codec.CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("decompress: zstd reader: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("decompress: unknown scheme %v", scheme)
	}
}
