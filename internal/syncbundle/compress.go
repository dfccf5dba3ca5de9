/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package syncbundle

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"syncengine/internal/errors"
)

// Algorithm selects the compression codec applied to a bundle's raw
// container payload before it is written to disk. Every codec the
// teacher corpus depends on for wire/at-rest compression gets a branch
// here so a peer-specific transport can pick whichever one its link
// favors (zstd for ratio, lz4 for speed, snappy for CPU-constrained
// peers) without the bundle format itself caring which.
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmSnappy Algorithm = "snappy"
)

// algorithmByte/byteAlgorithm give Algorithm a one-byte wire encoding so
// a bundle file can carry its own compression codec as a plaintext
// prefix ahead of the (possibly sealed) container: the receiving side
// never has to be told out-of-band which codec the sender picked.
var algorithmByte = map[Algorithm]byte{
	AlgorithmNone:   0,
	AlgorithmZstd:   1,
	AlgorithmLZ4:    2,
	AlgorithmSnappy: 3,
}

var byteAlgorithm = map[byte]Algorithm{
	0: AlgorithmNone,
	1: AlgorithmZstd,
	2: AlgorithmLZ4,
	3: AlgorithmSnappy,
}

func encodeAlgorithmHeader(algo Algorithm) (byte, error) {
	if algo == "" {
		algo = AlgorithmNone
	}
	b, ok := algorithmByte[algo]
	if !ok {
		return 0, errors.NewBundleError("unknown bundle compression algorithm").WithDetail(string(algo))
	}
	return b, nil
}

func decodeAlgorithmHeader(b byte) (Algorithm, error) {
	algo, ok := byteAlgorithm[b]
	if !ok {
		return "", errors.BundleUnreadable("unrecognized bundle compression header byte")
	}
	return algo, nil
}

func compressPayload(algo Algorithm, raw []byte) ([]byte, error) {
	switch algo {
	case "", AlgorithmNone:
		return raw, nil
	case AlgorithmZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.NewBundleError("failed to initialize zstd encoder").WithCause(err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	case AlgorithmLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, errors.NewBundleError("lz4 compression failed").WithCause(err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.NewBundleError("lz4 compression failed").WithCause(err)
		}
		return buf.Bytes(), nil
	case AlgorithmSnappy:
		return snappy.Encode(nil, raw), nil
	default:
		return nil, errors.NewBundleError("unknown bundle compression algorithm").WithDetail(string(algo))
	}
}

func decompressPayload(algo Algorithm, data []byte) ([]byte, error) {
	switch algo {
	case "", AlgorithmNone:
		return data, nil
	case AlgorithmZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.NewBundleError("failed to initialize zstd decoder").WithCause(err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.BundleUnreadable("zstd decompression failed").WithCause(err)
		}
		return out, nil
	case AlgorithmLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.BundleUnreadable("lz4 decompression failed").WithCause(err)
		}
		return out, nil
	case AlgorithmSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, errors.BundleUnreadable("snappy decompression failed").WithCause(err)
		}
		return out, nil
	default:
		return nil, errors.NewBundleError("unknown bundle compression algorithm").WithDetail(string(algo))
	}
}
