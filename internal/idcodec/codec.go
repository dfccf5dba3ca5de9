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

package idcodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"syncengine/internal/errors"
)

// ValueType tags the scalar kinds a captured row value can hold. This is
// the sync engine's own minimal scalar set, trimmed down from the host
// database's richer column-type catalog (VARCHAR/DECIMAL/UUID/JSONB and
// friends all arrive here as TypeText or TypeBlob -- the sync log only
// needs to replicate bytes, not re-validate host-side column semantics).
type ValueType byte

const (
	TypeNull ValueType = iota
	TypeInt
	TypeReal
	TypeText
	TypeBlob
)

// Value is a single captured column value.
type Value struct {
	Type ValueType
	Int  int64
	Real float64
	Text string
	Blob []byte
}

// NullValue, IntValue, RealValue, TextValue, and BlobValue construct a
// Value of the matching type.
func NullValue() Value          { return Value{Type: TypeNull} }
func IntValue(v int64) Value    { return Value{Type: TypeInt, Int: v} }
func RealValue(v float64) Value { return Value{Type: TypeReal, Real: v} }
func TextValue(v string) Value  { return Value{Type: TypeText, Text: v} }
func BlobValue(v []byte) Value  { return Value{Type: TypeBlob, Blob: v} }

// String renders v for diagnostics and CLI display; it is never used
// for wire encoding.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "NULL"
	case TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case TypeReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case TypeText:
		return v.Text
	case TypeBlob:
		return fmt.Sprintf("0x%x", v.Blob)
	default:
		return "?"
	}
}

// EncodeValues serializes a row's column values deterministically: keys
// are sorted lexicographically before encoding so that two equal maps
// always produce byte-identical output, which content hashing and bundle
// sealing both depend on.
func EncodeValues(values map[string]Value) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = appendUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = appendUvarint(buf, uint64(len(k)))
		buf = append(buf, k...)
		buf = appendValue(buf, values[k])
	}
	return buf
}

func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Type))
	switch v.Type {
	case TypeNull:
		// no payload
	case TypeInt:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.Int))
		buf = append(buf, tmp[:]...)
	case TypeReal:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v.Real))
		buf = append(buf, tmp[:]...)
	case TypeText:
		buf = appendUvarint(buf, uint64(len(v.Text)))
		buf = append(buf, v.Text...)
	case TypeBlob:
		buf = appendUvarint(buf, uint64(len(v.Blob)))
		buf = append(buf, v.Blob...)
	}
	return buf
}

// DecodeValues is the inverse of EncodeValues.
func DecodeValues(b []byte) (map[string]Value, error) {
	r := &reader{buf: b}

	n, err := r.uvarint()
	if err != nil {
		return nil, errors.InvalidPrimaryKey("truncated value map header").WithCause(err)
	}

	out := make(map[string]Value, n)
	for i := uint64(0); i < n; i++ {
		klen, err := r.uvarint()
		if err != nil {
			return nil, errors.InvalidPrimaryKey("truncated key length").WithCause(err)
		}
		key, err := r.bytes(int(klen))
		if err != nil {
			return nil, errors.InvalidPrimaryKey("truncated key").WithCause(err)
		}
		val, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		out[string(key)] = val
	}
	return out, nil
}

func decodeValue(r *reader) (Value, error) {
	typByte, err := r.byte()
	if err != nil {
		return Value{}, errors.InvalidPrimaryKey("truncated value tag").WithCause(err)
	}
	switch ValueType(typByte) {
	case TypeNull:
		return NullValue(), nil
	case TypeInt:
		raw, err := r.bytes(8)
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated int value").WithCause(err)
		}
		return IntValue(int64(binary.BigEndian.Uint64(raw))), nil
	case TypeReal:
		raw, err := r.bytes(8)
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated real value").WithCause(err)
		}
		return RealValue(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case TypeText:
		n, err := r.uvarint()
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated text length").WithCause(err)
		}
		raw, err := r.bytes(int(n))
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated text value").WithCause(err)
		}
		return TextValue(string(raw)), nil
	case TypeBlob:
		n, err := r.uvarint()
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated blob length").WithCause(err)
		}
		raw, err := r.bytes(int(n))
		if err != nil {
			return Value{}, errors.InvalidPrimaryKey("truncated blob value").WithCause(err)
		}
		blob := make([]byte, len(raw))
		copy(blob, raw)
		return BlobValue(blob), nil
	default:
		return Value{}, errors.InvalidPrimaryKey(fmt.Sprintf("unknown value type tag %d", typByte))
	}
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// reader is a tiny cursor over a byte slice used by DecodeValues.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("unexpected end of buffer")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("unexpected end of buffer")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("invalid uvarint")
	}
	r.pos += n
	return v, nil
}
