package datavalues

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/zhaox1n/datafuse/errorcode"
)

// LogicOp is a boolean connective evaluated with three-valued logic.
type LogicOp int

const (
	OpAnd LogicOp = iota
	OpOr
	OpXor
)

func (op LogicOp) String() string {
	switch op {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	}
	return "xor"
}

func asBooleanArray(s Series) (*BooleanArray, error) {
	switch a := s.(type) {
	case *BooleanArray:
		return a, nil
	case *NullArray:
		return allNull(a.Len()), nil
	}
	return nil, errorcode.BadDataValueType("Illegal type %s of logic operand, expected Boolean", s.DataType())
}

// Logic evaluates lhs op rhs. AND is false when either side is false and
// OR is true when either side is true, even if the other side is null.
// Otherwise a null input makes the row null.
func Logic(op LogicOp, lhs, rhs Series) (*BooleanArray, error) {
	l, err := asBooleanArray(lhs)
	if err != nil {
		return nil, err
	}
	r, err := asBooleanArray(rhs)
	if err != nil {
		return nil, err
	}
	n, mode, err := broadcastMode(op.String(), l, r)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	var validity *roaring.Bitmap
	if l.validity != nil || r.validity != nil {
		validity = roaring.New()
	}
	for i := range out {
		li, ri := rowIndices(mode, i)
		lv, rv := l.values[li], r.values[ri]
		ln, rn := l.IsNull(li), r.IsNull(ri)
		var value, valid bool
		switch op {
		case OpAnd:
			value = !ln && !rn && lv && rv
			valid = (!ln && !rn) || (!ln && !lv) || (!rn && !rv)
		case OpOr:
			value = (!ln && lv) || (!rn && rv)
			valid = (!ln && !rn) || value
		default:
			value = lv != rv
			valid = !ln && !rn
		}
		out[i] = value && valid
		if validity != nil && valid {
			validity.Add(uint32(i))
		}
	}
	return NewArrayWithValidity(BooleanType, out, validity), nil
}

func And(lhs, rhs Series) (*BooleanArray, error) { return Logic(OpAnd, lhs, rhs) }

func Or(lhs, rhs Series) (*BooleanArray, error) { return Logic(OpOr, lhs, rhs) }

func Xor(lhs, rhs Series) (*BooleanArray, error) { return Logic(OpXor, lhs, rhs) }

// Not negates a boolean series; nulls stay null.
func Not(s Series) (*BooleanArray, error) {
	a, err := asBooleanArray(s)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(a.values))
	for i, v := range a.values {
		out[i] = !v
	}
	return finishBool(out, a.validity), nil
}
