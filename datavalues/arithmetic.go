package datavalues

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// ArithmeticOp is a binary numeric operator.
type ArithmeticOp int

const (
	OpPlus ArithmeticOp = iota
	OpMinus
	OpMul
	OpDiv
	OpModulo
)

func (op ArithmeticOp) String() string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpModulo:
		return "%"
	}
	return "?"
}

type number interface {
	~int64 | ~uint64 | ~float64
}

// Arithmetic evaluates lhs op rhs after coercing both sides to the result
// type given by NumericalArithmeticCoercion. Broadcasting follows Compare;
// a null single-row operand makes every row null.
func Arithmetic(op ArithmeticOp, lhs, rhs Series) (Series, error) {
	n, mode, err := broadcastMode(op.String(), lhs, rhs)
	if err != nil {
		return nil, err
	}
	if lhs.DataType().IsNull() || rhs.DataType().IsNull() {
		return NewNullArray(n), nil
	}
	target, err := NumericalArithmeticCoercion(op.String(), lhs.DataType(), rhs.DataType())
	if err != nil {
		return nil, err
	}
	l, err := Cast(lhs, target)
	if err != nil {
		return nil, err
	}
	r, err := Cast(rhs, target)
	if err != nil {
		return nil, err
	}
	switch target.id {
	case TypeFloat64:
		return arithmeticTyped(op, mode, n, l.(*Float64Array), r.(*Float64Array), floatOp(op))
	case TypeInt64:
		return arithmeticTyped(op, mode, n, l.(*Int64Array), r.(*Int64Array), intOp[int64](op))
	case TypeUInt64:
		return arithmeticTyped(op, mode, n, l.(*UInt64Array), r.(*UInt64Array), intOp[uint64](op))
	}
	return nil, errorcode.LogicalError("Unexpected arithmetic result type %s", target)
}

func floatOp(op ArithmeticOp) func(a, b float64) (float64, error) {
	switch op {
	case OpPlus:
		return func(a, b float64) (float64, error) { return a + b, nil }
	case OpMinus:
		return func(a, b float64) (float64, error) { return a - b, nil }
	case OpMul:
		return func(a, b float64) (float64, error) { return a * b, nil }
	case OpDiv:
		return func(a, b float64) (float64, error) { return a / b, nil }
	}
	return func(a, b float64) (float64, error) { return math.Mod(a, b), nil }
}

func intOp[T int64 | uint64](op ArithmeticOp) func(a, b T) (T, error) {
	switch op {
	case OpPlus:
		return func(a, b T) (T, error) { return a + b, nil }
	case OpMinus:
		return func(a, b T) (T, error) { return a - b, nil }
	case OpMul:
		return func(a, b T) (T, error) { return a * b, nil }
	case OpDiv:
		return func(a, b T) (T, error) {
			if b == 0 {
				return 0, errorcode.BadArguments("Division by zero")
			}
			return a / b, nil
		}
	}
	return func(a, b T) (T, error) {
		if b == 0 {
			return 0, errorcode.BadArguments("Division by zero in modulo")
		}
		return a % b, nil
	}
}

func arithmeticTyped[T number](op ArithmeticOp, mode broadcast, n int, lhs, rhs *Array[T], f func(a, b T) (T, error)) (Series, error) {
	var validity *roaring.Bitmap
	switch mode {
	case scalarRight:
		if rhs.IsNull(0) {
			return NewArrayWithValidity(lhs.dt, make([]T, n), AllInvalid()), nil
		}
		validity = lhs.validity
	case scalarLeft:
		if lhs.IsNull(0) {
			return NewArrayWithValidity(rhs.dt, make([]T, n), AllInvalid()), nil
		}
		validity = rhs.validity
	default:
		validity = CombineValidities(lhs.validity, rhs.validity)
	}
	out := make([]T, n)
	for i := range out {
		if validity != nil && !validity.Contains(uint32(i)) {
			continue
		}
		li, ri := rowIndices(mode, i)
		v, err := f(lhs.values[li], rhs.values[ri])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return NewArrayWithValidity(lhs.dt, out, validity), nil
}

// Negate returns -s, widened to Int64 or Float64.
func Negate(s Series) (Series, error) {
	if s.DataType().IsNull() {
		return s, nil
	}
	target, err := NumericalUnaryArithmeticCoercion("-", s.DataType())
	if err != nil {
		return nil, err
	}
	c, err := Cast(s, target)
	if err != nil {
		return nil, err
	}
	switch a := c.(type) {
	case *Float64Array:
		return negateTyped(a), nil
	case *Int64Array:
		return negateTyped(a), nil
	}
	return nil, errorcode.LogicalError("Unexpected negation type %s", target)
}

func negateTyped[T int64 | float64](a *Array[T]) Series {
	out := make([]T, len(a.values))
	for i, v := range a.values {
		out[i] = -v
	}
	return NewArrayWithValidity(a.dt, out, a.validity)
}
