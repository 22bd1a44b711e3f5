package datavalues

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zhaox1n/datafuse/errorcode"
)

// DataValue is a typed scalar. Any variant may be null; a null value keeps
// its type so a typed null column can be rebuilt from it.
//
// The payload is stored as the native Go type of the variant: int8..int64,
// uint8..uint64, float32, float64, bool, string, []byte, int32 for Date32,
// int64 for Date64 and []DataValue for lists.
type DataValue struct {
	typ  DataType
	null bool
	v    interface{}
}

// Null returns the untyped null.
func Null() DataValue { return DataValue{typ: NullType, null: true} }

// NullOf returns a null of the given type.
func NullOf(t DataType) DataValue { return DataValue{typ: t, null: true} }

func Boolean(v bool) DataValue { return DataValue{typ: BooleanType, v: v} }
func Int8(v int8) DataValue { return DataValue{typ: Int8Type, v: v} }
func Int16(v int16) DataValue { return DataValue{typ: Int16Type, v: v} }
func Int32(v int32) DataValue { return DataValue{typ: Int32Type, v: v} }
func Int64(v int64) DataValue { return DataValue{typ: Int64Type, v: v} }
func UInt8(v uint8) DataValue { return DataValue{typ: UInt8Type, v: v} }
func UInt16(v uint16) DataValue { return DataValue{typ: UInt16Type, v: v} }
func UInt32(v uint32) DataValue { return DataValue{typ: UInt32Type, v: v} }
func UInt64(v uint64) DataValue { return DataValue{typ: UInt64Type, v: v} }
func Float32(v float32) DataValue { return DataValue{typ: Float32Type, v: v} }
func Float64(v float64) DataValue { return DataValue{typ: Float64Type, v: v} }
func Utf8(v string) DataValue { return DataValue{typ: Utf8Type, v: v} }
func Binary(v []byte) DataValue { return DataValue{typ: BinaryType, v: v} }
func Date32(days int32) DataValue { return DataValue{typ: Date32Type, v: days} }
func Date64(millis int64) DataValue { return DataValue{typ: Date64Type, v: millis} }

// List builds a list value with the given element type.
func List(elem DataType, values ...DataValue) DataValue {
	return DataValue{typ: ListOf(elem), v: append([]DataValue(nil), values...)}
}

func (d DataValue) DataType() DataType { return d.typ }

func (d DataValue) IsNull() bool { return d.null || d.typ.id == TypeNull }

// Raw returns the native payload, or nil for nulls.
func (d DataValue) Raw() interface{} {
	if d.IsNull() {
		return nil
	}
	return d.v
}

func (d DataValue) expect(id TypeID) error {
	if d.typ.id != id {
		return errorcode.BadDataValueType("Unexpected type:%s, expect %s", d.typ, id)
	}
	if d.IsNull() {
		return errorcode.BadDataValueType("Unexpected null value of type %s", d.typ)
	}
	return nil
}

func (d DataValue) AsBool() (bool, error) {
	if err := d.expect(TypeBoolean); err != nil {
		return false, err
	}
	return d.v.(bool), nil
}

func (d DataValue) AsString() (string, error) {
	if err := d.expect(TypeUtf8); err != nil {
		return "", err
	}
	return d.v.(string), nil
}

// AsBytes returns the bytes of a Utf8 or Binary value.
func (d DataValue) AsBytes() ([]byte, error) {
	if d.typ.id == TypeUtf8 && !d.IsNull() {
		return []byte(d.v.(string)), nil
	}
	if err := d.expect(TypeBinary); err != nil {
		return nil, err
	}
	return d.v.([]byte), nil
}

func (d DataValue) AsList() ([]DataValue, error) {
	if err := d.expect(TypeList); err != nil {
		return nil, err
	}
	return d.v.([]DataValue), nil
}

// AsInt64 returns any integer or date value widened to int64. Unsigned
// values that overflow int64 are an error.
func (d DataValue) AsInt64() (int64, error) {
	if d.IsNull() {
		return 0, errorcode.BadDataValueType("Unexpected null value of type %s", d.typ)
	}
	switch v := d.v.(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errorcode.BadDataValueType("Value %d of type UInt64 overflows Int64", v)
		}
		return int64(v), nil
	}
	return 0, errorcode.BadDataValueType("Unexpected type:%s to get i64 number", d.typ)
}

// AsUint64 returns any non-negative integer value as uint64.
func (d DataValue) AsUint64() (uint64, error) {
	if d.IsNull() {
		return 0, errorcode.BadDataValueType("Unexpected null value of type %s", d.typ)
	}
	if u, ok := d.v.(uint64); ok {
		return u, nil
	}
	if d.typ.IsUnsignedInteger() || d.typ.IsSignedInteger() {
		i, err := d.AsInt64()
		if err != nil {
			return 0, err
		}
		if i < 0 {
			return 0, errorcode.BadDataValueType("Negative value %d can not be read as u64", i)
		}
		return uint64(i), nil
	}
	return 0, errorcode.BadDataValueType("Unexpected type:%s to get u64 number", d.typ)
}

// AsFloat64 returns any numeric value as float64.
func (d DataValue) AsFloat64() (float64, error) {
	if d.IsNull() {
		return 0, errorcode.BadDataValueType("Unexpected null value of type %s", d.typ)
	}
	switch v := d.v.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case uint64:
		return float64(v), nil
	}
	if d.typ.IsInteger() {
		i, err := d.AsInt64()
		return float64(i), err
	}
	return 0, errorcode.BadDataValueType("Unexpected type:%s to get f64 number", d.typ)
}

// Equal reports structural equality: same type, same nullness, same payload.
// Nulls of the same type are equal.
func (d DataValue) Equal(o DataValue) bool {
	if d.IsNull() || o.IsNull() {
		return d.IsNull() && o.IsNull() && d.typ.Equal(o.typ)
	}
	if !d.typ.Equal(o.typ) {
		return false
	}
	c, err := d.Compare(o)
	return err == nil && c == 0
}

// Compare orders two values of the same variant. Nulls sort first. Lists
// only support equality and report ordering as a type error.
func (d DataValue) Compare(o DataValue) (int, error) {
	if d.IsNull() || o.IsNull() {
		switch {
		case d.IsNull() && o.IsNull():
			return 0, nil
		case d.IsNull():
			return -1, nil
		default:
			return 1, nil
		}
	}
	if d.typ.id != o.typ.id {
		return 0, errorcode.BadDataValueType("Cannot compare %s with %s", d.typ, o.typ)
	}
	switch a := d.v.(type) {
	case bool:
		return compareBool(a, o.v.(bool)), nil
	case int8:
		return cmp.Compare(a, o.v.(int8)), nil
	case int16:
		return cmp.Compare(a, o.v.(int16)), nil
	case int32:
		return cmp.Compare(a, o.v.(int32)), nil
	case int64:
		return cmp.Compare(a, o.v.(int64)), nil
	case uint8:
		return cmp.Compare(a, o.v.(uint8)), nil
	case uint16:
		return cmp.Compare(a, o.v.(uint16)), nil
	case uint32:
		return cmp.Compare(a, o.v.(uint32)), nil
	case uint64:
		return cmp.Compare(a, o.v.(uint64)), nil
	case float32:
		return cmp.Compare(a, o.v.(float32)), nil
	case float64:
		return cmp.Compare(a, o.v.(float64)), nil
	case string:
		return strings.Compare(a, o.v.(string)), nil
	case []byte:
		return bytes.Compare(a, o.v.([]byte)), nil
	case []DataValue:
		if listEqual(a, o.v.([]DataValue)) {
			return 0, nil
		}
		return 0, errorcode.BadDataValueType("Cannot order values of type %s", d.typ)
	}
	return 0, errorcode.BadDataValueType("Cannot compare values of type %s", d.typ)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func listEqual(a, b []DataValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (d DataValue) String() string {
	if d.IsNull() {
		return "NULL"
	}
	switch v := d.v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return hex.EncodeToString(v)
	case []DataValue:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(d.v)
}

// TryFromSeries reads row i of s, failing instead of panicking when the row
// is out of range.
func TryFromSeries(s Series, i int) (DataValue, error) {
	if i < 0 || i >= s.Len() {
		return NullOf(s.DataType()), errorcode.BadArguments("Row %d out of range for series of length %d", i, s.Len())
	}
	return s.Get(i), nil
}

// NewValueFromInterface converts a native Go value to a DataValue. nil maps
// to the untyped null.
func NewValueFromInterface(v interface{}) (DataValue, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case DataValue:
		return x, nil
	case bool:
		return Boolean(x), nil
	case int:
		return Int64(int64(x)), nil
	case int8:
		return Int8(x), nil
	case int16:
		return Int16(x), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Int64(x), nil
	case uint:
		return UInt64(uint64(x)), nil
	case uint8:
		return UInt8(x), nil
	case uint16:
		return UInt16(x), nil
	case uint32:
		return UInt32(x), nil
	case uint64:
		return UInt64(x), nil
	case float32:
		return Float32(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return Utf8(x), nil
	case []byte:
		return Binary(x), nil
	}
	return Null(), errorcode.BadDataValueType("Unsupported native value %T", v)
}
