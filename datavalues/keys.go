package datavalues

import (
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"
)

const (
	keyNull  byte = 0
	keyValid byte = 1
)

// ByteOrder is the byte order of fixed width values in row keys.
var ByteOrder = binary.LittleEndian

// Fixed keys for row hashing. Equal rows always hash equal within a process
// and across processes.
const (
	hashKey0 uint64 = 0x736f6d6570736575
	hashKey1 uint64 = 0x646f72616e646f6d
)

// RowKeyEncoder appends the key bytes of one row of s to a buffer. Every row
// starts with a null marker. Fixed width values follow in little endian,
// variable width values are prefixed with their length so adjacent columns
// can never run into each other.
type RowKeyEncoder func(buf []byte, row int) []byte

func encoderFor[T any](a *Array[T], put func([]byte, T) []byte) RowKeyEncoder {
	return func(buf []byte, row int) []byte {
		if a.IsNull(row) {
			return append(buf, keyNull)
		}
		return put(append(buf, keyValid), a.values[row])
	}
}

func putBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func putBytes(buf []byte, v []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func putString(buf []byte, v string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	return append(buf, v...)
}

// Float keys fold -0 into +0 and every NaN into one payload so values that
// compare equal share a key.
func float32Key(v float32) uint32 {
	switch {
	case v == 0:
		return 0
	case v != v:
		return 0x7fc00000
	}
	return math.Float32bits(v)
}

func float64Key(v float64) uint64 {
	switch {
	case v == 0:
		return 0
	case v != v:
		return 0x7ff8000000000000
	}
	return math.Float64bits(v)
}

func putFloat32(buf []byte, v float32) []byte { return ByteOrder.AppendUint32(buf, float32Key(v)) }

func putFloat64(buf []byte, v float64) []byte { return ByteOrder.AppendUint64(buf, float64Key(v)) }

func putList(buf []byte, v []DataValue) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(v)))
	for _, e := range v {
		buf = AppendValueKey(buf, e)
	}
	return buf
}

// NewRowKeyEncoder returns the key encoder for s.
func NewRowKeyEncoder(s Series) RowKeyEncoder {
	switch a := s.(type) {
	case *BooleanArray:
		return encoderFor(a, putBool)
	case *Int8Array:
		return encoderFor(a, func(b []byte, v int8) []byte { return append(b, byte(v)) })
	case *Int16Array:
		return encoderFor(a, func(b []byte, v int16) []byte { return ByteOrder.AppendUint16(b, uint16(v)) })
	case *Int32Array:
		return encoderFor(a, func(b []byte, v int32) []byte { return ByteOrder.AppendUint32(b, uint32(v)) })
	case *Int64Array:
		return encoderFor(a, func(b []byte, v int64) []byte { return ByteOrder.AppendUint64(b, uint64(v)) })
	case *UInt8Array:
		return encoderFor(a, func(b []byte, v uint8) []byte { return append(b, v) })
	case *UInt16Array:
		return encoderFor(a, ByteOrder.AppendUint16)
	case *UInt32Array:
		return encoderFor(a, ByteOrder.AppendUint32)
	case *UInt64Array:
		return encoderFor(a, ByteOrder.AppendUint64)
	case *Float32Array:
		return encoderFor(a, putFloat32)
	case *Float64Array:
		return encoderFor(a, putFloat64)
	case *Utf8Array:
		return encoderFor(a, putString)
	case *BinaryArray:
		return encoderFor(a, putBytes)
	case *ListArray:
		return encoderFor(a, putList)
	}
	return func(buf []byte, row int) []byte {
		return AppendValueKey(buf, s.Get(row))
	}
}

// AppendRowKey appends the key of row of s. Prefer NewRowKeyEncoder when
// encoding many rows of the same series.
func AppendRowKey(buf []byte, s Series, row int) []byte {
	return NewRowKeyEncoder(s)(buf, row)
}

// AppendValueKey appends the key of a scalar using the same layout as the
// row encoders, so a constant column and its materialized array agree.
func AppendValueKey(buf []byte, v DataValue) []byte {
	if v.IsNull() {
		return append(buf, keyNull)
	}
	buf = append(buf, keyValid)
	switch x := v.v.(type) {
	case bool:
		return putBool(buf, x)
	case int8:
		return append(buf, byte(x))
	case int16:
		return ByteOrder.AppendUint16(buf, uint16(x))
	case int32:
		return ByteOrder.AppendUint32(buf, uint32(x))
	case int64:
		return ByteOrder.AppendUint64(buf, uint64(x))
	case uint8:
		return append(buf, x)
	case uint16:
		return ByteOrder.AppendUint16(buf, x)
	case uint32:
		return ByteOrder.AppendUint32(buf, x)
	case uint64:
		return ByteOrder.AppendUint64(buf, x)
	case float32:
		return putFloat32(buf, x)
	case float64:
		return putFloat64(buf, x)
	case string:
		return putString(buf, x)
	case []byte:
		return putBytes(buf, x)
	case []DataValue:
		return putList(buf, x)
	}
	return buf
}

// nullHash is the hash of a null row.
var nullHash = siphash.Hash(hashKey0, hashKey1, []byte{keyNull})

// VecHash computes a siphash of every row. Null rows share one hash.
func VecHash(s Series) *UInt64Array {
	enc := NewRowKeyEncoder(s)
	out := make([]uint64, s.Len())
	buf := make([]byte, 0, 16)
	for i := range out {
		if s.IsNull(i) {
			out[i] = nullHash
			continue
		}
		buf = enc(buf[:0], i)
		out[i] = siphash.Hash(hashKey0, hashKey1, buf)
	}
	return NewUInt64Array(out...)
}

// HashValue hashes a scalar consistently with VecHash.
func HashValue(v DataValue) uint64 {
	if v.IsNull() {
		return nullHash
	}
	return siphash.Hash(hashKey0, hashKey1, AppendValueKey(nil, v))
}

// CombineHashes folds two hash columns of equal length into one.
func CombineHashes(lhs, rhs *UInt64Array) *UInt64Array {
	out := make([]uint64, len(lhs.values))
	for i := range out {
		out[i] = CombineHash(lhs.values[i], rhs.values[i])
	}
	return NewUInt64Array(out...)
}

// CombineHash mixes two hashes; arithmetic wraps.
func CombineHash(l, r uint64) uint64 {
	h := 17*37 + l
	return h*37 + r
}
