package aggregates

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

func int64Column(t *testing.T, values ...dv.DataValue) dv.DataColumn {
	t.Helper()
	s, err := dv.SeriesFromValues(dv.Int64Type, values)
	require.NoError(t, err)
	return dv.ArrayColumn(s)
}

func accumulate(t *testing.T, name string, columns ...dv.DataColumn) dv.DataValue {
	t.Helper()
	args := make([]dv.DataField, len(columns))
	rows := 0
	for i, c := range columns {
		args[i] = dv.NewDataField("a", c.DataType(), true)
		rows = c.Len()
	}
	fn, err := Default().Get(name, args)
	require.NoError(t, err)
	require.NoError(t, fn.Accumulate(columns, rows))
	v, err := fn.Result()
	require.NoError(t, err)
	return v
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	for _, name := range []string{"COUNT", "sum", "Min", "max", "avg", "countdistinct", "SUMDISTINCT"} {
		assert.True(t, f.Check(name), name)
	}
	assert.Equal(t, "countDistinct", DistinctName("count", true))
	assert.Equal(t, "count", DistinctName("count", false))

	_, err := f.Get("median", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorcode.ErrUnknownAggregateFunc))

	_, err = f.Get("sum", nil)
	assert.True(t, errors.Is(err, errorcode.ErrNumberArgumentsNotMatch))

	_, err = f.Get("sum", []dv.DataField{dv.NewDataField("s", dv.Utf8Type, false)})
	assert.True(t, errors.Is(err, errorcode.ErrBadDataValueType))
}

func TestBasicAggregates(t *testing.T) {
	col := int64Column(t, dv.Int64(3), dv.NullOf(dv.Int64Type), dv.Int64(1), dv.Int64(3))

	assert.Equal(t, dv.UInt64(3), accumulate(t, "count", col))
	assert.Equal(t, dv.Int64(7), accumulate(t, "sum", col))
	assert.Equal(t, dv.Int64(1), accumulate(t, "min", col))
	assert.Equal(t, dv.Int64(3), accumulate(t, "max", col))
	assert.Equal(t, dv.UInt64(2), accumulate(t, "countDistinct", col))
	assert.Equal(t, dv.Int64(4), accumulate(t, "sumDistinct", col))

	avg := accumulate(t, "avg", col)
	f, err := avg.AsFloat64()
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, f, 1e-9)
}

func TestDistinctFoldsSignedZero(t *testing.T) {
	col := dv.ArrayColumn(dv.NewFloat64Array(0.0, math.Copysign(0, -1), 2.5))
	assert.Equal(t, dv.UInt64(2), accumulate(t, "countDistinct", col))
}

func TestCountRows(t *testing.T) {
	fn, err := Default().Get("count", nil)
	require.NoError(t, err)
	require.NoError(t, fn.Accumulate(nil, 5))
	v, err := fn.Result()
	require.NoError(t, err)
	assert.Equal(t, dv.UInt64(5), v)
}

func TestEmptyInputIsNull(t *testing.T) {
	col := int64Column(t, dv.NullOf(dv.Int64Type))
	for _, name := range []string{"sum", "min", "avg", "sumDistinct"} {
		v := accumulate(t, name, col)
		assert.True(t, v.IsNull(), name)
	}
	assert.Equal(t, dv.UInt64(0), accumulate(t, "count", col))
}

func TestMergePartialStates(t *testing.T) {
	field := []dv.DataField{dv.NewDataField("a", dv.Int64Type, false)}
	for _, name := range []string{"sum", "max", "countDistinct"} {
		left, err := Default().Get(name, field)
		require.NoError(t, err)
		right := left.Clone()

		require.NoError(t, left.Accumulate([]dv.DataColumn{int64Column(t, dv.Int64(1), dv.Int64(5))}, 2))
		require.NoError(t, right.Accumulate([]dv.DataColumn{int64Column(t, dv.Int64(5), dv.Int64(9))}, 2))
		require.NoError(t, left.Merge(right))

		v, err := left.Result()
		require.NoError(t, err)
		switch name {
		case "sum":
			assert.Equal(t, dv.Int64(20), v)
		case "max":
			assert.Equal(t, dv.Int64(9), v)
		case "countDistinct":
			assert.Equal(t, dv.UInt64(3), v)
		}
	}

	sum, err := Default().Get("sum", field)
	require.NoError(t, err)
	count, err := Default().Get("count", field)
	require.NoError(t, err)
	assert.True(t, errors.Is(sum.Merge(count), errorcode.ErrLogicalError))
}

func TestReturnTypes(t *testing.T) {
	u8 := []dv.DataField{dv.NewDataField("a", dv.UInt8Type, false)}
	f32 := []dv.DataField{dv.NewDataField("a", dv.Float32Type, false)}
	utf8 := []dv.DataField{dv.NewDataField("a", dv.Utf8Type, false)}

	fn, err := Default().Get("sum", u8)
	require.NoError(t, err)
	assert.Equal(t, dv.UInt64Type, fn.ReturnType())

	fn, err = Default().Get("sum", f32)
	require.NoError(t, err)
	assert.Equal(t, dv.Float64Type, fn.ReturnType())

	fn, err = Default().Get("max", utf8)
	require.NoError(t, err)
	assert.Equal(t, dv.Utf8Type, fn.ReturnType())
	assert.True(t, fn.Nullable())

	fn, err = Default().Get("count", utf8)
	require.NoError(t, err)
	assert.False(t, fn.Nullable())
}
