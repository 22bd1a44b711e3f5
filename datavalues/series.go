package datavalues

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// Series is a dense typed sequence with optional validity.
type Series interface {
	DataType() DataType
	Len() int
	NullCount() int
	IsNull(i int) bool
	// Validity returns the valid-row bitmap, nil when no row is null.
	// Callers must not modify it.
	Validity() *roaring.Bitmap
	// Get returns row i as a scalar. It panics when i is out of range.
	Get(i int) DataValue
	Slice(offset, length int) Series
	Take(indices []uint32) Series
	// WithValidity returns a series sharing the values with a new validity.
	WithValidity(validity *roaring.Bitmap) Series
}

// Array is the typed implementation of Series. T is the native payload type
// of the variant (see DataValue).
type Array[T any] struct {
	dt       DataType
	values   []T
	validity *roaring.Bitmap
}

type (
	BooleanArray = Array[bool]
	Int8Array    = Array[int8]
	Int16Array   = Array[int16]
	Int32Array   = Array[int32]
	Int64Array   = Array[int64]
	UInt8Array   = Array[uint8]
	UInt16Array  = Array[uint16]
	UInt32Array  = Array[uint32]
	UInt64Array  = Array[uint64]
	Float32Array = Array[float32]
	Float64Array = Array[float64]
	Utf8Array    = Array[string]
	BinaryArray  = Array[[]byte]
	ListArray    = Array[[]DataValue]
)

func NewArray[T any](dt DataType, values []T) *Array[T] {
	return &Array[T]{dt: dt, values: values}
}

func NewArrayWithValidity[T any](dt DataType, values []T, validity *roaring.Bitmap) *Array[T] {
	return &Array[T]{dt: dt, values: values, validity: normalizeValidity(validity, len(values))}
}

func NewBooleanArray(values ...bool) *BooleanArray {
	return NewArray(BooleanType, values)
}

func NewInt32Array(values ...int32) *Int32Array {
	return NewArray(Int32Type, values)
}

func NewInt64Array(values ...int64) *Int64Array {
	return NewArray(Int64Type, values)
}

func NewUInt8Array(values ...uint8) *UInt8Array {
	return NewArray(UInt8Type, values)
}

func NewUInt64Array(values ...uint64) *UInt64Array {
	return NewArray(UInt64Type, values)
}

func NewFloat64Array(values ...float64) *Float64Array {
	return NewArray(Float64Type, values)
}

func NewUtf8Array(values ...string) *Utf8Array {
	return NewArray(Utf8Type, values)
}

func NewBinaryArray(values ...[]byte) *BinaryArray {
	return NewArray(BinaryType, values)
}

func (a *Array[T]) DataType() DataType { return a.dt }

func (a *Array[T]) Len() int { return len(a.values) }

func (a *Array[T]) NullCount() int { return nullCount(a.validity, len(a.values)) }

func (a *Array[T]) IsNull(i int) bool {
	return a.validity != nil && !a.validity.Contains(uint32(i))
}

func (a *Array[T]) Validity() *roaring.Bitmap { return a.validity }

// Values exposes the raw payload. Slots of null rows hold zero values.
func (a *Array[T]) Values() []T { return a.values }

func (a *Array[T]) Value(i int) T { return a.values[i] }

func (a *Array[T]) Get(i int) DataValue {
	v := a.values[i]
	if a.IsNull(i) {
		return NullOf(a.dt)
	}
	return DataValue{typ: a.dt, v: v}
}

func (a *Array[T]) Slice(offset, length int) Series {
	return &Array[T]{
		dt:       a.dt,
		values:   a.values[offset : offset+length],
		validity: normalizeValidity(sliceValidity(a.validity, offset, length), length),
	}
}

func (a *Array[T]) Take(indices []uint32) Series {
	values := make([]T, len(indices))
	for i, idx := range indices {
		values[i] = a.values[idx]
	}
	return &Array[T]{
		dt:       a.dt,
		values:   values,
		validity: normalizeValidity(takeValidity(a.validity, indices), len(indices)),
	}
}

func (a *Array[T]) WithValidity(validity *roaring.Bitmap) Series {
	return NewArrayWithValidity(a.dt, a.values, validity)
}

// NullArray is a series of the Null type: every row is null.
type NullArray struct {
	n int
}

func NewNullArray(n int) *NullArray { return &NullArray{n: n} }

func (a *NullArray) DataType() DataType { return NullType }

func (a *NullArray) Len() int { return a.n }

func (a *NullArray) NullCount() int { return a.n }

func (a *NullArray) IsNull(int) bool { return true }

func (a *NullArray) Validity() *roaring.Bitmap { return AllInvalid() }

func (a *NullArray) Get(i int) DataValue {
	if i < 0 || i >= a.n {
		panic(errorcode.LogicalError("index %d out of range for null array of length %d", i, a.n))
	}
	return Null()
}

func (a *NullArray) Slice(_, length int) Series { return &NullArray{n: length} }

func (a *NullArray) Take(indices []uint32) Series { return &NullArray{n: len(indices)} }

func (a *NullArray) WithValidity(*roaring.Bitmap) Series { return a }

// StripValidity returns s with every row marked valid.
func StripValidity(s Series) Series {
	if s.Validity() == nil {
		return s
	}
	return s.WithValidity(nil)
}

func buildTyped[T any](dt DataType, n int, get func(int) DataValue) (Series, error) {
	values := make([]T, n)
	var validity *roaring.Bitmap
	for i := 0; i < n; i++ {
		v := get(i)
		if v.IsNull() {
			if validity == nil {
				validity = AllValid(n)
			}
			validity.Remove(uint32(i))
			continue
		}
		x, ok := v.v.(T)
		if !ok || v.typ.id != dt.id {
			return nil, errorcode.BadDataValueType("Cannot append value %s of type %s to series of type %s", v, v.typ, dt)
		}
		values[i] = x
	}
	return NewArrayWithValidity(dt, values, validity), nil
}

func buildSeries(dt DataType, n int, get func(int) DataValue) (Series, error) {
	switch dt.id {
	case TypeNull:
		return NewNullArray(n), nil
	case TypeBoolean:
		return buildTyped[bool](dt, n, get)
	case TypeInt8:
		return buildTyped[int8](dt, n, get)
	case TypeInt16:
		return buildTyped[int16](dt, n, get)
	case TypeInt32, TypeDate32:
		return buildTyped[int32](dt, n, get)
	case TypeInt64, TypeDate64:
		return buildTyped[int64](dt, n, get)
	case TypeUInt8:
		return buildTyped[uint8](dt, n, get)
	case TypeUInt16:
		return buildTyped[uint16](dt, n, get)
	case TypeUInt32:
		return buildTyped[uint32](dt, n, get)
	case TypeUInt64:
		return buildTyped[uint64](dt, n, get)
	case TypeFloat32:
		return buildTyped[float32](dt, n, get)
	case TypeFloat64:
		return buildTyped[float64](dt, n, get)
	case TypeUtf8:
		return buildTyped[string](dt, n, get)
	case TypeBinary:
		return buildTyped[[]byte](dt, n, get)
	case TypeList:
		return buildTyped[[]DataValue](dt, n, get)
	}
	return nil, errorcode.BadDataValueType("Unsupported series type %s", dt)
}

// SeriesFromValues builds a series of type dt. Every non-null value must be
// of type dt.
func SeriesFromValues(dt DataType, values []DataValue) (Series, error) {
	return buildSeries(dt, len(values), func(i int) DataValue { return values[i] })
}

// NewSeriesFromValue repeats v n times. A null value yields an all-null
// series of the value's type.
func NewSeriesFromValue(v DataValue, n int) (Series, error) {
	return buildSeries(v.typ, n, func(int) DataValue { return v })
}

// SeriesBuilder accumulates values row by row.
type SeriesBuilder struct {
	dt     DataType
	values []DataValue
}

func NewSeriesBuilder(dt DataType, capacity int) *SeriesBuilder {
	return &SeriesBuilder{dt: dt, values: make([]DataValue, 0, capacity)}
}

func (b *SeriesBuilder) Append(v DataValue) { b.values = append(b.values, v) }

func (b *SeriesBuilder) AppendNull() { b.values = append(b.values, NullOf(b.dt)) }

func (b *SeriesBuilder) Len() int { return len(b.values) }

func (b *SeriesBuilder) Finish() (Series, error) {
	return SeriesFromValues(b.dt, b.values)
}

// SeriesValues returns every row of s as a scalar.
func SeriesValues(s Series) []DataValue {
	out := make([]DataValue, s.Len())
	for i := range out {
		out[i] = s.Get(i)
	}
	return out
}
