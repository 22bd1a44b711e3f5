package datavalues

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// Concat appends series of one type into a single series. Payloads are
// copied as typed slices and validities are shifted into place.
func Concat(parts []Series) (Series, error) {
	if len(parts) == 0 {
		return nil, errorcode.LogicalError("Cannot concat empty series list")
	}
	dt := parts[0].DataType()
	total := 0
	for _, p := range parts {
		if !p.DataType().Equal(dt) {
			return nil, errorcode.LogicalError("Cannot concat series of type %s and %s", dt, p.DataType())
		}
		total += p.Len()
	}
	switch parts[0].(type) {
	case *NullArray:
		return NewNullArray(total), nil
	case *BooleanArray:
		return concatArrays[bool](dt, parts, total)
	case *Int8Array:
		return concatArrays[int8](dt, parts, total)
	case *Int16Array:
		return concatArrays[int16](dt, parts, total)
	case *Int32Array:
		return concatArrays[int32](dt, parts, total)
	case *Int64Array:
		return concatArrays[int64](dt, parts, total)
	case *UInt8Array:
		return concatArrays[uint8](dt, parts, total)
	case *UInt16Array:
		return concatArrays[uint16](dt, parts, total)
	case *UInt32Array:
		return concatArrays[uint32](dt, parts, total)
	case *UInt64Array:
		return concatArrays[uint64](dt, parts, total)
	case *Float32Array:
		return concatArrays[float32](dt, parts, total)
	case *Float64Array:
		return concatArrays[float64](dt, parts, total)
	case *Utf8Array:
		return concatArrays[string](dt, parts, total)
	case *BinaryArray:
		return concatArrays[[]byte](dt, parts, total)
	case *ListArray:
		return concatArrays[[]DataValue](dt, parts, total)
	}
	return nil, errorcode.LogicalError("Unsupported series %T in concat", parts[0])
}

func concatArrays[T any](dt DataType, parts []Series, total int) (Series, error) {
	values := make([]T, 0, total)
	var validity *roaring.Bitmap
	for _, p := range parts {
		a, ok := p.(*Array[T])
		if !ok {
			return nil, errorcode.LogicalError("Cannot concat %T with %T", parts[0], p)
		}
		offset := len(values)
		values = append(values, a.values...)
		switch {
		case a.validity != nil:
			if validity == nil {
				validity = AllValid(offset)
			}
			validity.Or(roaring.AddOffset(a.validity, uint32(offset)))
		case validity != nil && len(a.values) > 0:
			validity.AddRange(uint64(offset), uint64(len(values)))
		}
	}
	return NewArrayWithValidity(dt, values, validity), nil
}
