package datavalues

import (
	"bytes"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/errorcode"
)

func rows(s Series) []interface{} {
	out := make([]interface{}, s.Len())
	for i := range out {
		out[i] = s.Get(i).Raw()
	}
	return out
}

func TestArithmetic(t *testing.T) {
	lhs := mustSeries(t, Int32Type, Int32(1), Int32(2), Null(), Int32(7))
	rhs := NewInt64Array(2)

	tests := []struct {
		op   ArithmeticOp
		typ  DataType
		want []interface{}
	}{
		{OpPlus, Int64Type, []interface{}{int64(3), int64(4), nil, int64(9)}},
		{OpMinus, Int64Type, []interface{}{int64(-1), int64(0), nil, int64(5)}},
		{OpMul, Int64Type, []interface{}{int64(2), int64(4), nil, int64(14)}},
		{OpDiv, Float64Type, []interface{}{0.5, 1.0, nil, 3.5}},
		{OpModulo, Int64Type, []interface{}{int64(1), int64(0), nil, int64(1)}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := Arithmetic(tt.op, lhs, rhs)
			require.NoError(t, err)
			assert.True(t, tt.typ.Equal(got.DataType()), got.DataType().String())
			assert.Equal(t, tt.want, rows(got))
		})
	}

	t.Run("modulo by zero", func(t *testing.T) {
		_, err := Arithmetic(OpModulo, NewInt64Array(1, 2), NewInt64Array(0))
		assert.True(t, errors.Is(err, errorcode.ErrBadArguments))
	})

	t.Run("null rows skip division", func(t *testing.T) {
		divisor := mustSeries(t, Int64Type, Int64(1), Null())
		got, err := Arithmetic(OpModulo, NewInt64Array(5, 6), divisor)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(0), nil}, rows(got))
	})

	t.Run("non numeric", func(t *testing.T) {
		_, err := Arithmetic(OpPlus, NewUtf8Array("a"), NewInt64Array(1))
		assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
	})

	t.Run("negate", func(t *testing.T) {
		got, err := Negate(NewUInt8Array(1, 2))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(-1), int64(-2)}, rows(got))
	})
}

func TestLogicThreeValued(t *testing.T) {
	lhs := mustSeries(t, BooleanType, Boolean(true), Boolean(true), Boolean(false), Null(), Null(), Null())
	rhs := mustSeries(t, BooleanType, Boolean(true), Null(), Null(), Boolean(false), Boolean(true), Null())

	and, err := And(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, nil, false, false, nil, nil}, rows(and))

	or, err := Or(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, true, nil, nil, true, nil}, rows(or))

	xor, err := Xor(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, nil, nil, nil, nil, nil}, rows(xor))

	not, err := Not(lhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, false, true, nil, nil, nil}, rows(not))

	_, err = And(NewInt64Array(1), NewBooleanArray(true))
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
}

func TestFilterSeries(t *testing.T) {
	s := NewInt64Array(1, 2, 3, 4)

	t.Run("nulls are false", func(t *testing.T) {
		pred := mustSeries(t, BooleanType, Boolean(true), Null(), Boolean(false), Boolean(true))
		got, err := FilterSeries(s, pred)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(1), int64(4)}, rows(got))
	})

	t.Run("all selected returns input", func(t *testing.T) {
		got, err := FilterSeries(s, NewBooleanArray(true, true, true, true))
		require.NoError(t, err)
		assert.Same(t, s, got)
	})

	t.Run("none selected", func(t *testing.T) {
		got, err := FilterSeries(s, NewBooleanArray(false, false, false, false))
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	})

	t.Run("scalar predicate", func(t *testing.T) {
		n, err := FilterCount(4, NewBooleanArray(true))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := FilterSeries(s, NewBooleanArray(true, false))
		assert.True(t, errors.Is(err, errorcode.ErrNumberArgumentsNotMatch))
	})
}

func TestCast(t *testing.T) {
	t.Run("string to int", func(t *testing.T) {
		got, err := Cast(NewUtf8Array("1", " 42 "), Int64Type)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(1), int64(42)}, rows(got))

		_, err = Cast(NewUtf8Array("x"), Int64Type)
		assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
	})

	t.Run("try cast nulls failures", func(t *testing.T) {
		got, err := TryCast(NewUtf8Array("1", "x", "300"), UInt8Type)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{uint8(1), nil, nil}, rows(got))
	})

	t.Run("range checks", func(t *testing.T) {
		_, err := Cast(NewInt64Array(-1), UInt64Type)
		assert.Error(t, err)
		_, err = Cast(NewFloat64Array(math.NaN()), Int32Type)
		assert.Error(t, err)
		got, err := Cast(NewFloat64Array(2.9, -2.9), Int8Type)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int8(2), int8(-2)}, rows(got))
	})

	t.Run("dates", func(t *testing.T) {
		got, err := Cast(NewUtf8Array("1970-01-02"), Date32Type)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int32(1)}, rows(got))

		back, err := Cast(got, Utf8Type)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"1970-01-02"}, rows(back))
	})

	t.Run("nulls keep type", func(t *testing.T) {
		got, err := Cast(mustSeries(t, Int64Type, Null()), Utf8Type)
		require.NoError(t, err)
		assert.True(t, got.IsNull(0))
		assert.Equal(t, TypeUtf8, got.DataType().ID())
	})
}

func TestRowKeysAreUnambiguous(t *testing.T) {
	a := NewUtf8Array("ab", "a")
	b := NewUtf8Array("c", "bc")
	encA, encB := NewRowKeyEncoder(a), NewRowKeyEncoder(b)

	k0 := encB(encA(nil, 0), 0)
	k1 := encB(encA(nil, 1), 1)
	assert.False(t, bytes.Equal(k0, k1))

	nulls := mustSeries(t, Utf8Type, Null(), Utf8(""))
	enc := NewRowKeyEncoder(nulls)
	assert.False(t, bytes.Equal(enc(nil, 0), enc(nil, 1)))
}

func TestRowKeyMatchesValueKey(t *testing.T) {
	values := []DataValue{Int16(-3), UInt32(7), Float64(1.5), Utf8("x"), Binary([]byte{1, 2}), Boolean(true), List(Int64Type, Int64(1))}
	for _, v := range values {
		v := v
		t.Run(v.DataType().String(), func(t *testing.T) {
			s, err := NewSeriesFromValue(v, 2)
			require.NoError(t, err)
			assert.Equal(t, AppendValueKey(nil, v), AppendRowKey(nil, s, 1))
			assert.Equal(t, HashValue(v), VecHash(s).Value(1))
		})
	}
}

func TestVecHash(t *testing.T) {
	s := mustSeries(t, Int64Type, Int64(1), Int64(1), Int64(2), Null(), Null())
	h := VecHash(s)
	assert.Equal(t, h.Value(0), h.Value(1))
	assert.NotEqual(t, h.Value(0), h.Value(2))
	assert.Equal(t, h.Value(3), h.Value(4))

	combined := CombineHashes(h, h)
	assert.Equal(t, CombineHash(h.Value(2), h.Value(2)), combined.Value(2))
	assert.Equal(t, uint64((17*37+5)*37+9), CombineHash(5, 9))
}
