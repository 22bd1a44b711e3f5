package datavalues

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/errorcode"
)

func TestDataValueAccessors(t *testing.T) {
	v := Int32(7)
	i, err := v.AsInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(7), i)

	_, err = v.AsString()
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))

	_, err = NullOf(BooleanType).AsBool()
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))

	_, err = UInt64(1 << 63).AsInt64()
	assert.Error(t, err)
}

func TestTryFromSeries(t *testing.T) {
	s := NewArray(Int64Type, []int64{4, 5})
	v, err := TryFromSeries(s, 1)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int64(5)))

	_, err = TryFromSeries(s, 2)
	assert.True(t, errors.Is(err, errorcode.ErrBadArguments))
}

func TestValidityIgnoresBitsPastLength(t *testing.T) {
	// rows 0 and 2 valid, plus stray bits past the end
	stray := roaring.BitmapOf(0, 2, 3, 9)
	a := NewArrayWithValidity(Int64Type, []int64{1, 2, 3}, stray)
	require.NotNil(t, a.Validity())
	assert.Equal(t, 1, a.NullCount())
	assert.True(t, a.IsNull(1))
	assert.Equal(t, uint64(4), stray.GetCardinality())

	full := NewArrayWithValidity(Int64Type, []int64{1, 2}, roaring.BitmapOf(0, 1, 5))
	assert.Nil(t, full.Validity())
	assert.Equal(t, 0, full.NullCount())
}

func TestConcat(t *testing.T) {
	plain := NewInt64Array(1, 2)
	withNull := NewArrayWithValidity(Int64Type, []int64{3, 0}, roaring.BitmapOf(0))

	out, err := Concat([]Series{plain, withNull, plain})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Len())
	assert.Equal(t, 1, out.NullCount())
	assert.True(t, out.IsNull(3))
	assert.True(t, out.Get(4).Equal(Int64(1)))

	out, err = Concat([]Series{plain, plain})
	require.NoError(t, err)
	assert.Nil(t, out.Validity())

	nulls, err := Concat([]Series{NewNullArray(2), NewNullArray(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, nulls.NullCount())

	_, err = Concat([]Series{plain, NewUtf8Array("x")})
	assert.True(t, errors.Is(err, errorcode.ErrLogicalError))
}

func TestDataValueCompare(t *testing.T) {
	c, err := Utf8("a").Compare(Utf8("b"))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = Null().Compare(Int64(1))
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = Int64(1).Compare(Utf8("1"))
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))

	assert.True(t, List(Int64Type, Int64(1)).Equal(List(Int64Type, Int64(1))))
	assert.False(t, Int64(1).Equal(Int32(1)))
	assert.Equal(t, "[1, NULL]", List(Int64Type, Int64(1), Null()).String())
}

func TestSeriesOperations(t *testing.T) {
	s := mustSeries(t, Int64Type, Int64(1), Null(), Int64(3), Int64(4))
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 1, s.NullCount())

	sliced := s.Slice(1, 2)
	assert.Equal(t, []interface{}{nil, int64(3)}, rows(sliced))

	taken := s.Take([]uint32{3, 1, 0})
	assert.Equal(t, []interface{}{int64(4), nil, int64(1)}, rows(taken))

	stripped := StripValidity(s)
	assert.Equal(t, 0, stripped.NullCount())

	assert.Panics(t, func() { s.Get(4) })
	assert.Panics(t, func() { NewNullArray(1).Get(1) })

	_, err := SeriesFromValues(Int64Type, []DataValue{Utf8("x")})
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
}

func TestSeriesBuilder(t *testing.T) {
	b := NewSeriesBuilder(Utf8Type, 2)
	b.Append(Utf8("a"))
	b.AppendNull()
	s, err := b.Finish()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", nil}, rows(s))
}

func TestDataColumn(t *testing.T) {
	t.Run("constant", func(t *testing.T) {
		c := ConstantColumn(Int64(5), 3)
		assert.True(t, c.IsConstant())
		assert.Equal(t, 3, c.Len())

		arr, err := c.ToArray()
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(5), int64(5), int64(5)}, rows(arr))

		minimal, err := c.ToMinimalArray()
		require.NoError(t, err)
		assert.Equal(t, 1, minimal.Len())

		assert.Panics(t, func() { c.Get(3) })
	})

	t.Run("null constant", func(t *testing.T) {
		c := ConstantColumn(NullOf(Utf8Type), 2)
		allNull, _ := c.Validity()
		assert.True(t, allNull)
		assert.Equal(t, 2, c.NullCount())

		arr, err := c.ToArray()
		require.NoError(t, err)
		assert.Equal(t, 2, arr.NullCount())
		assert.Equal(t, TypeUtf8, arr.DataType().ID())
	})

	t.Run("resize", func(t *testing.T) {
		c := ArrayColumn(NewInt64Array(9)).ResizeConstant(4)
		assert.True(t, c.IsConstant())
		assert.Equal(t, 4, c.Len())
		assert.Equal(t, int64(9), c.Get(3).Raw())

		wide := ArrayColumn(NewInt64Array(1, 2)).ResizeConstant(4)
		assert.False(t, wide.IsConstant())
		assert.Equal(t, 2, wide.Len())
	})

	t.Run("constant folding", func(t *testing.T) {
		got, err := ConstantColumn(Int64(1), 10).Compare(OpLt, ConstantColumn(Int64(2), 10))
		require.NoError(t, err)
		assert.True(t, got.IsConstant())
		assert.Equal(t, 10, got.Len())
		assert.Equal(t, true, got.Get(0).Raw())

		sum, err := ArrayColumn(NewInt64Array(1, 2)).Arithmetic(OpPlus, ConstantColumn(Int64(10), 2))
		require.NoError(t, err)
		assert.False(t, sum.IsConstant())
		assert.Equal(t, []interface{}{int64(11), int64(12)}, rows(sum.array))
	})
}

func TestCoercion(t *testing.T) {
	tests := []struct {
		l, r, want DataType
	}{
		{Int8Type, Int16Type, Int16Type},
		{UInt8Type, Int8Type, Int16Type},
		{UInt32Type, Int64Type, Int64Type},
		{Int32Type, Float32Type, Float64Type},
		{Int8Type, Float32Type, Float32Type},
		{UInt64Type, UInt8Type, UInt64Type},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.l.String()+"_"+tt.r.String(), func(t *testing.T) {
			got, err := NumericalCoercion(tt.l, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}

	_, err := NumericalCoercion(Utf8Type, Int8Type)
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))

	got, err := NumericalArithmeticCoercion("/", Int8Type, Int8Type)
	require.NoError(t, err)
	assert.Equal(t, Float64Type, got)
}
