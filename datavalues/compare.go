package datavalues

import (
	"bytes"
	"cmp"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// CompareOp is a comparison operator producing a boolean series.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNotEq
	OpGt
	OpGtEq
	OpLt
	OpLtEq
	OpEqMissing
	OpLike
	OpNotLike
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpNotEq:
		return "neq"
	case OpGt:
		return "gt"
	case OpGtEq:
		return "gt_eq"
	case OpLt:
		return "lt"
	case OpLtEq:
		return "lt_eq"
	case OpEqMissing:
		return "eq_missing"
	case OpLike:
		return "like"
	case OpNotLike:
		return "nlike"
	}
	return "unknown"
}

func (op CompareOp) predicate() func(int) bool {
	switch op {
	case OpNotEq:
		return func(c int) bool { return c != 0 }
	case OpGt:
		return func(c int) bool { return c > 0 }
	case OpGtEq:
		return func(c int) bool { return c >= 0 }
	case OpLt:
		return func(c int) bool { return c < 0 }
	case OpLtEq:
		return func(c int) bool { return c <= 0 }
	default:
		return func(c int) bool { return c == 0 }
	}
}

type broadcast int

const (
	elementwise broadcast = iota
	scalarRight
	scalarLeft
)

// broadcastMode picks how two operands line up: a single-row right operand
// wins over a single-row left one, equal lengths go elementwise, anything
// else is an arity error.
func broadcastMode(op string, lhs, rhs Series) (int, broadcast, error) {
	switch {
	case rhs.Len() == 1:
		return lhs.Len(), scalarRight, nil
	case lhs.Len() == 1:
		return rhs.Len(), scalarLeft, nil
	case lhs.Len() == rhs.Len():
		return lhs.Len(), elementwise, nil
	}
	return 0, elementwise, errorcode.NumberArgumentsNotMatch(
		"Cannot apply %s to series of different lengths: %d and %d", op, lhs.Len(), rhs.Len())
}

func rowIndices(mode broadcast, i int) (int, int) {
	switch mode {
	case scalarRight:
		return i, 0
	case scalarLeft:
		return 0, i
	}
	return i, i
}

// Compare evaluates lhs op rhs. Numeric operands of different types are
// coerced to their common type first. A null single-row operand yields an
// all-false result; otherwise a row is null when either input row is null.
func Compare(op CompareOp, lhs, rhs Series) (*BooleanArray, error) {
	switch op {
	case OpEqMissing:
		return EqMissing(lhs, rhs)
	case OpLike:
		return Like(lhs, rhs)
	case OpNotLike:
		return NotLike(lhs, rhs)
	}
	lhs, rhs, err := coerceComparison(op, lhs, rhs)
	if err != nil {
		return nil, err
	}
	n, mode, err := broadcastMode(op.String(), lhs, rhs)
	if err != nil {
		return nil, err
	}
	switch mode {
	case scalarRight:
		if rhs.IsNull(0) {
			return allFalse(n), nil
		}
	case scalarLeft:
		if lhs.IsNull(0) {
			return allFalse(n), nil
		}
	}
	return compareDispatch(op, lhs, rhs, mode, n)
}

func Eq(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpEq, lhs, rhs) }
func Neq(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpNotEq, lhs, rhs) }
func Gt(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpGt, lhs, rhs) }
func GtEq(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpGtEq, lhs, rhs) }
func Lt(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpLt, lhs, rhs) }
func LtEq(lhs, rhs Series) (*BooleanArray, error) { return Compare(OpLtEq, lhs, rhs) }

// CompareScalar compares every row of s with v.
func CompareScalar(op CompareOp, s Series, v DataValue) (*BooleanArray, error) {
	scalar, err := NewSeriesFromValue(v, 1)
	if err != nil {
		return nil, err
	}
	return Compare(op, s, scalar)
}

// EqMissing is a null-safe equality: two nulls are equal, a null and a value
// are not, and the result never contains nulls.
func EqMissing(lhs, rhs Series) (*BooleanArray, error) {
	lhs, rhs, err := coerceComparison(OpEq, lhs, rhs)
	if err != nil {
		return nil, err
	}
	n, mode, err := broadcastMode(OpEqMissing.String(), lhs, rhs)
	if err != nil {
		return nil, err
	}
	eq, err := compareDispatch(OpEq, lhs, rhs, mode, n)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		li, ri := rowIndices(mode, i)
		ln, rn := lhs.IsNull(li), rhs.IsNull(ri)
		out[i] = (ln && rn) || (!ln && !rn && eq.values[i])
	}
	return NewBooleanArray(out...), nil
}

func coerceComparison(op CompareOp, lhs, rhs Series) (Series, Series, error) {
	lt, rt := lhs.DataType(), rhs.DataType()
	if lt.IsNull() || rt.IsNull() {
		return lhs, rhs, nil
	}
	if lt.id == TypeList || rt.id == TypeList {
		if lt.Equal(rt) && (op == OpEq || op == OpNotEq) {
			return lhs, rhs, nil
		}
		return nil, nil, unsupportedCompare(op, lt, rt)
	}
	if lt.Equal(rt) {
		return lhs, rhs, nil
	}
	if lt.IsNumeric() && rt.IsNumeric() {
		target, err := NumericalCoercion(lt, rt)
		if err != nil {
			return nil, nil, err
		}
		l, err := Cast(lhs, target)
		if err != nil {
			return nil, nil, err
		}
		r, err := Cast(rhs, target)
		if err != nil {
			return nil, nil, err
		}
		return l, r, nil
	}
	return nil, nil, unsupportedCompare(op, lt, rt)
}

func unsupportedCompare(op CompareOp, lt, rt DataType) error {
	return errorcode.BadDataValueType("Unsupported compare operation: %s for %s and %s", op, lt, rt)
}

func compareDispatch(op CompareOp, lhs, rhs Series, mode broadcast, n int) (*BooleanArray, error) {
	if lhs.DataType().IsNull() || rhs.DataType().IsNull() {
		return allNull(n), nil
	}
	switch l := lhs.(type) {
	case *Array[bool]:
		return compareTyped(op, mode, n, l, rhs.(*Array[bool]), compareBool), nil
	case *Array[int8]:
		return compareTyped(op, mode, n, l, rhs.(*Array[int8]), cmp.Compare[int8]), nil
	case *Array[int16]:
		return compareTyped(op, mode, n, l, rhs.(*Array[int16]), cmp.Compare[int16]), nil
	case *Array[int32]:
		return compareTyped(op, mode, n, l, rhs.(*Array[int32]), cmp.Compare[int32]), nil
	case *Array[int64]:
		return compareTyped(op, mode, n, l, rhs.(*Array[int64]), cmp.Compare[int64]), nil
	case *Array[uint8]:
		return compareTyped(op, mode, n, l, rhs.(*Array[uint8]), cmp.Compare[uint8]), nil
	case *Array[uint16]:
		return compareTyped(op, mode, n, l, rhs.(*Array[uint16]), cmp.Compare[uint16]), nil
	case *Array[uint32]:
		return compareTyped(op, mode, n, l, rhs.(*Array[uint32]), cmp.Compare[uint32]), nil
	case *Array[uint64]:
		return compareTyped(op, mode, n, l, rhs.(*Array[uint64]), cmp.Compare[uint64]), nil
	case *Array[float32]:
		return compareTyped(op, mode, n, l, rhs.(*Array[float32]), cmp.Compare[float32]), nil
	case *Array[float64]:
		return compareTyped(op, mode, n, l, rhs.(*Array[float64]), cmp.Compare[float64]), nil
	case *Array[string]:
		return compareTyped(op, mode, n, l, rhs.(*Array[string]), strings.Compare), nil
	case *Array[[]byte]:
		return compareTyped(op, mode, n, l, rhs.(*Array[[]byte]), bytes.Compare), nil
	case *Array[[]DataValue]:
		return compareTyped(op, mode, n, l, rhs.(*Array[[]DataValue]), compareListEq), nil
	}
	return nil, unsupportedCompare(op, lhs.DataType(), rhs.DataType())
}

// compareListEq only distinguishes equal from not equal.
func compareListEq(a, b []DataValue) int {
	if listEqual(a, b) {
		return 0
	}
	return 1
}

func compareTyped[T any](op CompareOp, mode broadcast, n int, lhs, rhs *Array[T], cmpf func(a, b T) int) *BooleanArray {
	holds := op.predicate()
	out := make([]bool, n)
	switch mode {
	case scalarRight:
		s := rhs.values[0]
		for i, v := range lhs.values {
			out[i] = holds(cmpf(v, s))
		}
		return finishBool(out, lhs.validity)
	case scalarLeft:
		s := lhs.values[0]
		for i, v := range rhs.values {
			out[i] = holds(cmpf(s, v))
		}
		return finishBool(out, rhs.validity)
	}
	for i := range out {
		out[i] = holds(cmpf(lhs.values[i], rhs.values[i]))
	}
	return finishBool(out, CombineValidities(lhs.validity, rhs.validity))
}

// finishBool clears the slots of null rows so the payload never reports a
// match for them.
func finishBool(out []bool, validity *roaring.Bitmap) *BooleanArray {
	validity = normalizeValidity(validity, len(out))
	if validity != nil {
		for i := range out {
			if out[i] && !validity.Contains(uint32(i)) {
				out[i] = false
			}
		}
	}
	return &BooleanArray{dt: BooleanType, values: out, validity: validity}
}

func allFalse(n int) *BooleanArray {
	return NewBooleanArray(make([]bool, n)...)
}

func allNull(n int) *BooleanArray {
	return NewArrayWithValidity(BooleanType, make([]bool, n), AllInvalid())
}
