// Package datavalues implements the columnar value model: scalar values,
// typed arrays with validity bitmaps, constant columns and the compute
// kernels that operate on them.
package datavalues

import (
	"fmt"

	"github.com/zhaox1n/datafuse/errorcode"
)

// TypeID identifies the physical variant of a value or array.
type TypeID int

const (
	TypeNull TypeID = iota
	TypeBoolean
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUInt8
	TypeUInt16
	TypeUInt32
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeUtf8
	TypeBinary
	TypeDate32
	TypeDate64
	TypeList
)

var typeNames = map[TypeID]string{
	TypeNull:    "Null",
	TypeBoolean: "Boolean",
	TypeInt8:    "Int8",
	TypeInt16:   "Int16",
	TypeInt32:   "Int32",
	TypeInt64:   "Int64",
	TypeUInt8:   "UInt8",
	TypeUInt16:  "UInt16",
	TypeUInt32:  "UInt32",
	TypeUInt64:  "UInt64",
	TypeFloat32: "Float32",
	TypeFloat64: "Float64",
	TypeUtf8:    "Utf8",
	TypeBinary:  "Binary",
	TypeDate32:  "Date32",
	TypeDate64:  "Date64",
	TypeList:    "List",
}

func (id TypeID) String() string {
	if name, ok := typeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("TypeID(%d)", int(id))
}

// DataType is a TypeID plus, for lists, the element type.
type DataType struct {
	id   TypeID
	elem *DataType
}

var (
	NullType    = DataType{id: TypeNull}
	BooleanType = DataType{id: TypeBoolean}
	Int8Type    = DataType{id: TypeInt8}
	Int16Type   = DataType{id: TypeInt16}
	Int32Type   = DataType{id: TypeInt32}
	Int64Type   = DataType{id: TypeInt64}
	UInt8Type   = DataType{id: TypeUInt8}
	UInt16Type  = DataType{id: TypeUInt16}
	UInt32Type  = DataType{id: TypeUInt32}
	UInt64Type  = DataType{id: TypeUInt64}
	Float32Type = DataType{id: TypeFloat32}
	Float64Type = DataType{id: TypeFloat64}
	Utf8Type    = DataType{id: TypeUtf8}
	BinaryType  = DataType{id: TypeBinary}
	Date32Type  = DataType{id: TypeDate32}
	Date64Type  = DataType{id: TypeDate64}
)

// ListOf returns the list type with the given element type.
func ListOf(elem DataType) DataType {
	e := elem
	return DataType{id: TypeList, elem: &e}
}

func (t DataType) ID() TypeID { return t.id }

// Elem returns the element type of a list, or NullType for other types.
func (t DataType) Elem() DataType {
	if t.elem == nil {
		return NullType
	}
	return *t.elem
}

func (t DataType) Equal(o DataType) bool {
	if t.id != o.id {
		return false
	}
	if t.id == TypeList {
		return t.Elem().Equal(o.Elem())
	}
	return true
}

func (t DataType) String() string {
	if t.id == TypeList {
		return fmt.Sprintf("List(%s)", t.Elem())
	}
	return t.id.String()
}

func (t DataType) IsNull() bool { return t.id == TypeNull }

func (t DataType) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

func (t DataType) IsInteger() bool {
	return t.IsSignedInteger() || t.IsUnsignedInteger()
}

func (t DataType) IsSignedInteger() bool {
	switch t.id {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return true
	}
	return false
}

func (t DataType) IsUnsignedInteger() bool {
	switch t.id {
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64:
		return true
	}
	return false
}

func (t DataType) IsFloat() bool {
	return t.id == TypeFloat32 || t.id == TypeFloat64
}

func (t DataType) IsDate() bool {
	return t.id == TypeDate32 || t.id == TypeDate64
}

// IsVariableWidth reports whether values of t have no fixed byte width.
func (t DataType) IsVariableWidth() bool {
	switch t.id {
	case TypeUtf8, TypeBinary, TypeList:
		return true
	}
	return false
}

// ByteSize returns the fixed width of a value in bytes, or 0 for variable
// width and Null types.
func (t DataType) ByteSize() int {
	switch t.id {
	case TypeBoolean, TypeInt8, TypeUInt8:
		return 1
	case TypeInt16, TypeUInt16:
		return 2
	case TypeInt32, TypeUInt32, TypeFloat32, TypeDate32:
		return 4
	case TypeInt64, TypeUInt64, TypeFloat64, TypeDate64:
		return 8
	}
	return 0
}

func integerOfSize(signed bool, size int) DataType {
	switch {
	case signed && size <= 1:
		return Int8Type
	case signed && size == 2:
		return Int16Type
	case signed && size == 4:
		return Int32Type
	case signed:
		return Int64Type
	case size <= 1:
		return UInt8Type
	case size == 2:
		return UInt16Type
	case size == 4:
		return UInt32Type
	default:
		return UInt64Type
	}
}

func nextSize(size int) int {
	if size >= 8 {
		return 8
	}
	return size * 2
}

// NumericalCoercion returns the smallest type both numeric types can be
// represented in, used for comparisons and ordinary arithmetic.
func NumericalCoercion(lhs, rhs DataType) (DataType, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return NullType, errorcode.BadDataValueType(
			"DataValue Error: Unsupported (%s) and (%s)", lhs, rhs)
	}
	if lhs.Equal(rhs) {
		return lhs, nil
	}
	if lhs.IsFloat() || rhs.IsFloat() {
		if lhs.id == TypeFloat32 && rhs.ByteSize() < 4 || rhs.id == TypeFloat32 && lhs.ByteSize() < 4 {
			return Float32Type, nil
		}
		if lhs.id == TypeFloat32 && rhs.id == TypeFloat32 {
			return Float32Type, nil
		}
		return Float64Type, nil
	}
	size := max(lhs.ByteSize(), rhs.ByteSize())
	if lhs.IsSignedInteger() == rhs.IsSignedInteger() {
		return integerOfSize(lhs.IsSignedInteger(), size), nil
	}
	// Mixed signedness: widen the unsigned side into a signed type.
	unsigned := lhs
	if lhs.IsSignedInteger() {
		unsigned = rhs
	}
	if unsigned.ByteSize() >= size {
		size = nextSize(unsigned.ByteSize())
	}
	return integerOfSize(true, size), nil
}

// NumericalArithmeticCoercion returns the result type of a binary arithmetic
// operator. Division always yields Float64, modulo stays integral when both
// sides are integers.
func NumericalArithmeticCoercion(op string, lhs, rhs DataType) (DataType, error) {
	if !lhs.IsNumeric() || !rhs.IsNumeric() {
		return NullType, errorcode.BadDataValueType(
			"DataValue Error: Unsupported (%s) %s (%s)", lhs, op, rhs)
	}
	switch op {
	case "/":
		return Float64Type, nil
	case "+", "*":
		if lhs.IsFloat() || rhs.IsFloat() {
			return Float64Type, nil
		}
		if lhs.IsSignedInteger() || rhs.IsSignedInteger() {
			return Int64Type, nil
		}
		return UInt64Type, nil
	case "-":
		if lhs.IsFloat() || rhs.IsFloat() {
			return Float64Type, nil
		}
		return Int64Type, nil
	case "%":
		if lhs.IsFloat() || rhs.IsFloat() {
			return Float64Type, nil
		}
		if lhs.IsSignedInteger() {
			return Int64Type, nil
		}
		return UInt64Type, nil
	}
	return NullType, errorcode.BadDataValueType("DataValue Error: Unsupported arithmetic operator %s", op)
}

// NumericalUnaryArithmeticCoercion returns the result type of negation.
func NumericalUnaryArithmeticCoercion(op string, t DataType) (DataType, error) {
	if !t.IsNumeric() {
		return NullType, errorcode.BadDataValueType(
			"DataValue Error: Unsupported unary %s (%s)", op, t)
	}
	if t.IsFloat() {
		return Float64Type, nil
	}
	return Int64Type, nil
}
