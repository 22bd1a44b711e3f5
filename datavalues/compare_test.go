package datavalues

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/errorcode"
)

func mustSeries(t *testing.T, dt DataType, values ...DataValue) Series {
	t.Helper()
	s, err := SeriesFromValues(dt, values)
	require.NoError(t, err)
	return s
}

// boolRows renders a boolean series as true/false/nil for easy assertions.
func boolRows(s Series) []interface{} {
	out := make([]interface{}, s.Len())
	for i := range out {
		out[i] = s.Get(i).Raw()
	}
	return out
}

func TestCompareElementwise(t *testing.T) {
	lhs := mustSeries(t, Int64Type, Int64(1), Int64(2), Null(), Int64(4))
	rhs := mustSeries(t, Int64Type, Int64(1), Int64(3), Int64(3), Int64(3))

	tests := []struct {
		op   CompareOp
		want []interface{}
	}{
		{OpEq, []interface{}{true, false, nil, false}},
		{OpNotEq, []interface{}{false, true, nil, true}},
		{OpGt, []interface{}{false, false, nil, true}},
		{OpGtEq, []interface{}{true, false, nil, true}},
		{OpLt, []interface{}{false, true, nil, false}},
		{OpLtEq, []interface{}{true, true, nil, false}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.op.String(), func(t *testing.T) {
			got, err := Compare(tt.op, lhs, rhs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, boolRows(got))
		})
	}
}

func TestCompareBroadcast(t *testing.T) {
	lhs := mustSeries(t, Int64Type, Int64(1), Null(), Int64(3))

	t.Run("scalar right", func(t *testing.T) {
		got, err := Gt(lhs, NewInt64Array(2))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{false, nil, true}, boolRows(got))
	})

	t.Run("scalar left", func(t *testing.T) {
		got, err := Gt(NewInt64Array(2), lhs)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{true, nil, false}, boolRows(got))
	})

	t.Run("null scalar is all false", func(t *testing.T) {
		null := mustSeries(t, Int64Type, Null())
		got, err := Eq(lhs, null)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{false, false, false}, boolRows(got))
		assert.Equal(t, 0, got.NullCount())

		got, err = Lt(null, lhs)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{false, false, false}, boolRows(got))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Eq(lhs, NewInt64Array(1, 2))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errorcode.ErrNumberArgumentsNotMatch))
	})
}

func TestCompareCoercion(t *testing.T) {
	got, err := Eq(NewInt32Array(1, 2, 3), NewFloat64Array(1, 2.5, 3))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false, true}, boolRows(got))

	_, err = Eq(NewInt64Array(1), NewUtf8Array("1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
	assert.Contains(t, err.Error(), "Unsupported compare operation: eq")
}

func TestCompareBoolean(t *testing.T) {
	s := NewBooleanArray(true, false)
	got, err := Eq(s, NewBooleanArray(true))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false}, boolRows(got))

	got, err = Eq(s, NewBooleanArray(false))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, true}, boolRows(got))

	got, err = Lt(NewBooleanArray(false), s)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false}, boolRows(got))
}

func TestEqMissing(t *testing.T) {
	lhs := mustSeries(t, Int64Type, Null(), Null(), Int64(1), Int64(2))
	rhs := mustSeries(t, Int64Type, Null(), Int64(1), Int64(1), Null())

	got, err := EqMissing(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false, true, false}, boolRows(got))
	assert.Equal(t, 0, got.NullCount())

	got, err = EqMissing(lhs, mustSeries(t, Int64Type, Null()))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, true, false, false}, boolRows(got))
}

func TestCompareLists(t *testing.T) {
	elem := Int64Type
	lt := ListOf(elem)
	lhs := mustSeries(t, lt,
		List(elem, Int64(1), Int64(2)),
		List(elem, Int64(1)),
		NullOf(lt),
	)
	rhs := mustSeries(t, lt,
		List(elem, Int64(1), Int64(2)),
		List(elem, Int64(1), Int64(2)),
		List(elem),
	)

	got, err := Eq(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false, nil}, boolRows(got))

	got, err = Neq(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, true, nil}, boolRows(got))

	_, err = Lt(lhs, rhs)
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
}

func TestLike(t *testing.T) {
	s := mustSeries(t, Utf8Type, Utf8("abc"), Utf8("xbz"), Null(), Utf8("a%c"))

	tests := []struct {
		pattern string
		op      CompareOp
		want    []interface{}
	}{
		{"a%", OpLike, []interface{}{true, false, nil, true}},
		{"_b_", OpLike, []interface{}{true, true, nil, false}},
		{`a\%c`, OpLike, []interface{}{false, false, nil, true}},
		{"a%", OpNotLike, []interface{}{false, true, nil, false}},
		{"abc", OpLike, []interface{}{true, false, nil, false}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.op.String()+" "+tt.pattern, func(t *testing.T) {
			got, err := Compare(tt.op, s, NewUtf8Array(tt.pattern))
			require.NoError(t, err)
			assert.Equal(t, tt.want, boolRows(got))
		})
	}

	t.Run("pattern per row", func(t *testing.T) {
		got, err := Like(NewUtf8Array("abc", "abc"), NewUtf8Array("a%", "b%"))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{true, false}, boolRows(got))
	})

	t.Run("non string", func(t *testing.T) {
		_, err := Like(NewInt64Array(1), NewUtf8Array("1"))
		assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
	})
}

func TestCompareNullType(t *testing.T) {
	got, err := Eq(NewNullArray(2), NewInt64Array(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil, nil}, boolRows(got))
}

func TestCompareLaws(t *testing.T) {
	tests := []struct {
		name     string
		lhs, rhs Series
	}{
		{"int64",
			mustSeries(t, Int64Type, Int64(-3), Int64(0), Null(), Int64(7), Int64(7), Int64(math.MaxInt64)),
			mustSeries(t, Int64Type, Int64(2), Int64(0), Int64(1), Null(), Int64(7), Int64(math.MinInt64))},
		{"int32 with int64",
			mustSeries(t, Int32Type, Int32(-3), Int32(0), Null(), Int32(9), Int32(7), Int32(1)),
			mustSeries(t, Int64Type, Int64(2), Int64(0), Int64(1), Null(), Int64(7), Int64(1<<40))},
		{"uint8",
			mustSeries(t, UInt8Type, UInt8(0), UInt8(255), Null(), UInt8(3), UInt8(4), UInt8(9)),
			mustSeries(t, UInt8Type, UInt8(1), UInt8(254), UInt8(0), UInt8(3), Null(), UInt8(9))},
		{"float64",
			mustSeries(t, Float64Type, Float64(-1.5), Float64(0), Float64(math.NaN()), Null(), Float64(math.Inf(1)), Float64(2)),
			mustSeries(t, Float64Type, Float64(-1.5), Float64(math.Copysign(0, -1)), Float64(1), Float64(3), Float64(1e300), Float64(math.NaN()))},
		{"int8 with float64",
			mustSeries(t, Int8Type, Int8(-128), Int8(0), Null(), Int8(1), Int8(5), Int8(127)),
			mustSeries(t, Float64Type, Float64(-128.5), Float64(0), Float64(1), Float64(1), Null(), Float64(126.9))},
		{"utf8",
			mustSeries(t, Utf8Type, Utf8(""), Utf8("a"), Utf8("ab"), Null(), Utf8("b"), Utf8("é")),
			mustSeries(t, Utf8Type, Utf8("a"), Utf8("a"), Utf8("a"), Utf8("x"), Null(), Utf8("e"))},
		{"boolean",
			mustSeries(t, BooleanType, Boolean(false), Boolean(true), Boolean(true), Null(), Boolean(false), Boolean(true)),
			mustSeries(t, BooleanType, Boolean(true), Boolean(false), Boolean(true), Boolean(false), Null(), Boolean(true))},
		{"date32",
			mustSeries(t, Date32Type, Date32(0), Date32(19000), Null(), Date32(-5), Date32(3), Date32(3)),
			mustSeries(t, Date32Type, Date32(1), Date32(18999), Date32(4), Null(), Date32(3), Date32(2))},
	}

	run := func(t *testing.T, op CompareOp, l, r Series) *BooleanArray {
		t.Helper()
		out, err := Compare(op, l, r)
		require.NoError(t, err)
		require.Equal(t, l.Len(), out.Len())
		return out
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			l, r := tt.lhs, tt.rhs
			lt, eq, gt := run(t, OpLt, l, r), run(t, OpEq, l, r), run(t, OpGt, l, r)
			for i := 0; i < l.Len(); i++ {
				if l.IsNull(i) || r.IsNull(i) {
					assert.True(t, lt.IsNull(i) && eq.IsNull(i) && gt.IsNull(i), "row %d", i)
					continue
				}
				holds := 0
				for _, res := range []*BooleanArray{lt, eq, gt} {
					if res.Get(i).Equal(Boolean(true)) {
						holds++
					}
				}
				assert.Equal(t, 1, holds, "exactly one of lt, eq, gt at row %d", i)
			}

			pairs := []struct{ op, mirror CompareOp }{
				{OpEq, OpEq},
				{OpNotEq, OpNotEq},
				{OpLt, OpGt},
				{OpLtEq, OpGtEq},
				{OpGt, OpLt},
				{OpGtEq, OpLtEq},
			}
			for _, p := range pairs {
				assert.Equal(t, boolRows(run(t, p.op, l, r)), boolRows(run(t, p.mirror, r, l)),
					"%s(a, b) against %s(b, a)", p.op, p.mirror)
			}

			eqRows, neqRows := boolRows(eq), boolRows(run(t, OpNotEq, l, r))
			for i := range eqRows {
				if eqRows[i] != nil {
					assert.NotEqual(t, eqRows[i], neqRows[i], "row %d", i)
				}
			}
		})
	}
}
