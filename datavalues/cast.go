package datavalues

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zhaox1n/datafuse/errorcode"
)

const millisPerDay = 24 * 60 * 60 * 1000

// Cast converts every row of s to target. A row that cannot be represented
// fails the whole cast.
func Cast(s Series, target DataType) (Series, error) {
	if s.DataType().Equal(target) {
		return s, nil
	}
	values := make([]DataValue, s.Len())
	for i := range values {
		v, err := CastValue(s.Get(i), target)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return SeriesFromValues(target, values)
}

// TryCast converts every row of s to target, turning rows that cannot be
// represented into nulls.
func TryCast(s Series, target DataType) (Series, error) {
	if s.DataType().Equal(target) {
		return s, nil
	}
	values := make([]DataValue, s.Len())
	for i := range values {
		v, err := CastValue(s.Get(i), target)
		if err != nil {
			v = NullOf(target)
		}
		values[i] = v
	}
	return SeriesFromValues(target, values)
}

// CastValue converts a single value. Nulls stay null with the target type.
func CastValue(v DataValue, target DataType) (DataValue, error) {
	if v.IsNull() {
		return NullOf(target), nil
	}
	src := v.DataType()
	if src.Equal(target) {
		return v, nil
	}
	switch {
	case target.IsNull():
		return Null(), nil
	case target.id == TypeUtf8:
		if b, ok := v.v.([]byte); ok {
			return Utf8(string(b)), nil
		}
		if src.id == TypeDate32 {
			return Utf8(time.UnixMilli(int64(v.v.(int32)) * millisPerDay).UTC().Format(time.DateOnly)), nil
		}
		if src.id == TypeDate64 {
			return Utf8(time.UnixMilli(v.v.(int64)).UTC().Format(time.DateTime)), nil
		}
		return Utf8(v.String()), nil
	case target.id == TypeBinary:
		if s, ok := v.v.(string); ok {
			return Binary([]byte(s)), nil
		}
		return Binary([]byte(v.String())), nil
	case target.id == TypeBoolean:
		return castToBoolean(v)
	case target.IsInteger():
		return castToInteger(v, target)
	case target.IsFloat():
		f, err := castToFloat(v)
		if err != nil {
			return Null(), err
		}
		if target.id == TypeFloat32 {
			return Float32(float32(f)), nil
		}
		return Float64(f), nil
	case target.IsDate():
		return castToDate(v, target)
	}
	return Null(), cannotCast(v, target)
}

func cannotCast(v DataValue, target DataType) error {
	return errorcode.BadDataValueType("Cannot cast %s value %s to %s", v.DataType(), v, target)
}

func castToBoolean(v DataValue) (DataValue, error) {
	switch x := v.v.(type) {
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return Null(), cannotCast(v, BooleanType)
		}
		return Boolean(b), nil
	}
	if v.DataType().IsNumeric() {
		f, err := v.AsFloat64()
		if err != nil {
			return Null(), err
		}
		return Boolean(f != 0), nil
	}
	return Null(), cannotCast(v, BooleanType)
}

func castToFloat(v DataValue) (float64, error) {
	switch x := v.v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, cannotCast(v, Float64Type)
		}
		return f, nil
	}
	if v.DataType().IsNumeric() || v.DataType().IsDate() {
		if v.DataType().IsDate() {
			i, err := v.AsInt64()
			return float64(i), err
		}
		return v.AsFloat64()
	}
	return 0, cannotCast(v, Float64Type)
}

func castToInteger(v DataValue, target DataType) (DataValue, error) {
	var (
		i        int64
		u        uint64
		unsigned bool
	)
	switch x := v.v.(type) {
	case bool:
		if x {
			i = 1
		}
	case uint64:
		u, unsigned = x, true
	case float32, float64:
		f, _ := v.AsFloat64()
		f = math.Trunc(f)
		switch {
		case math.IsNaN(f) || math.IsInf(f, 0):
			return Null(), cannotCast(v, target)
		case f >= 0 && f < math.MaxUint64:
			u, unsigned = uint64(f), true
		case f < 0 && f >= math.MinInt64:
			i = int64(f)
		default:
			return Null(), cannotCast(v, target)
		}
	case string:
		s := strings.TrimSpace(x)
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			i = parsed
		} else if parsed, err := strconv.ParseUint(s, 10, 64); err == nil {
			u, unsigned = parsed, true
		} else {
			return Null(), cannotCast(v, target)
		}
	default:
		n, err := v.AsInt64()
		if err != nil {
			return Null(), cannotCast(v, target)
		}
		i = n
	}
	if out, ok := fitInteger(target, i, u, unsigned); ok {
		return out, nil
	}
	return Null(), errorcode.BadDataValueType("Value %s is out of range of %s", v, target)
}

func integerBounds(t DataType) (lo int64, hi uint64) {
	switch t.id {
	case TypeInt8:
		return math.MinInt8, math.MaxInt8
	case TypeInt16:
		return math.MinInt16, math.MaxInt16
	case TypeInt32:
		return math.MinInt32, math.MaxInt32
	case TypeInt64:
		return math.MinInt64, math.MaxInt64
	case TypeUInt8:
		return 0, math.MaxUint8
	case TypeUInt16:
		return 0, math.MaxUint16
	case TypeUInt32:
		return 0, math.MaxUint32
	}
	return 0, math.MaxUint64
}

func fitInteger(target DataType, i int64, u uint64, unsigned bool) (DataValue, bool) {
	lo, hi := integerBounds(target)
	if unsigned {
		if u > hi {
			return Null(), false
		}
		if u <= math.MaxInt64 {
			i = int64(u)
		}
	} else {
		if i < lo || (i > 0 && uint64(i) > hi) {
			return Null(), false
		}
		u = uint64(i)
	}
	switch target.id {
	case TypeInt8:
		return Int8(int8(i)), true
	case TypeInt16:
		return Int16(int16(i)), true
	case TypeInt32:
		return Int32(int32(i)), true
	case TypeInt64:
		return Int64(i), true
	case TypeUInt8:
		return UInt8(uint8(u)), true
	case TypeUInt16:
		return UInt16(uint16(u)), true
	case TypeUInt32:
		return UInt32(uint32(u)), true
	}
	return UInt64(u), true
}

func castToDate(v DataValue, target DataType) (DataValue, error) {
	src := v.DataType()
	var millis int64
	switch {
	case src.id == TypeDate32:
		millis = int64(v.v.(int32)) * millisPerDay
	case src.id == TypeDate64:
		millis = v.v.(int64)
	case src.id == TypeUtf8:
		s := strings.TrimSpace(v.v.(string))
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			if t, err = time.Parse(time.DateTime, s); err != nil {
				return Null(), cannotCast(v, target)
			}
		}
		millis = t.UnixMilli()
	case src.IsInteger():
		n, err := v.AsInt64()
		if err != nil {
			return Null(), cannotCast(v, target)
		}
		if target.id == TypeDate32 {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return Null(), cannotCast(v, target)
			}
			return Date32(int32(n)), nil
		}
		return Date64(n), nil
	default:
		return Null(), cannotCast(v, target)
	}
	if target.id == TypeDate32 {
		days := millis / millisPerDay
		if millis%millisPerDay < 0 {
			days--
		}
		return Date32(int32(days)), nil
	}
	return Date64(millis), nil
}
