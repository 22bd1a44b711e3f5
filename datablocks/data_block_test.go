package datablocks

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

func sampleBlock(t *testing.T) *DataBlock {
	t.Helper()
	schema := dv.NewDataSchema(
		dv.NewDataField("a", dv.Int64Type, false),
		dv.NewDataField("b", dv.Utf8Type, true),
	)
	b, err := dv.SeriesFromValues(dv.Utf8Type, []dv.DataValue{dv.Utf8("x"), dv.Null(), dv.Utf8("y"), dv.Utf8("x")})
	require.NoError(t, err)
	block, err := Create(schema, []dv.DataColumn{
		dv.ArrayColumn(dv.NewInt64Array(1, 2, 3, 4)),
		dv.ArrayColumn(b),
	})
	require.NoError(t, err)
	return block
}

func columnValues(t *testing.T, block *DataBlock, name string) []interface{} {
	t.Helper()
	col, err := block.TryColumnByName(name)
	require.NoError(t, err)
	out := make([]interface{}, col.Len())
	for i := range out {
		out[i] = col.Get(i).Raw()
	}
	return out
}

func TestCreate(t *testing.T) {
	schema := dv.NewDataSchema(dv.NewDataField("a", dv.Int64Type, false), dv.NewDataField("b", dv.Int64Type, false))

	_, err := Create(schema, []dv.DataColumn{dv.ArrayColumn(dv.NewInt64Array(1))})
	assert.True(t, errors.Is(err, errorcode.ErrLogicalError))

	_, err = Create(schema, []dv.DataColumn{
		dv.ArrayColumn(dv.NewInt64Array(1, 2)),
		dv.ArrayColumn(dv.NewInt64Array(1)),
	})
	assert.True(t, errors.Is(err, errorcode.ErrLogicalError))

	block, err := Create(schema, []dv.DataColumn{
		dv.ArrayColumn(dv.NewInt64Array(1, 2)),
		dv.ConstantColumn(dv.Int64(7), 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, block.NumRows())
	assert.Equal(t, []interface{}{int64(7), int64(7)}, columnValues(t, block, "b"))

	_, err = block.TryColumnByName("c")
	assert.True(t, errors.Is(err, errorcode.ErrUnknownColumn))
}

func TestBlockKernels(t *testing.T) {
	block := sampleBlock(t)

	t.Run("take", func(t *testing.T) {
		taken, err := BlockTakeByIndices(block, []uint32{2, 0})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(3), int64(1)}, columnValues(t, taken, "a"))
		assert.Equal(t, []interface{}{"y", "x"}, columnValues(t, taken, "b"))

		_, err = BlockTakeByIndices(block, []uint32{4})
		assert.Error(t, err)
	})

	t.Run("filter", func(t *testing.T) {
		pred, err := dv.SeriesFromValues(dv.BooleanType, []dv.DataValue{dv.Boolean(true), dv.Boolean(true), dv.Null(), dv.Boolean(false)})
		require.NoError(t, err)
		filtered, err := FilterBlock(block, dv.ArrayColumn(pred))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(1), int64(2)}, columnValues(t, filtered, "a"))
		assert.Equal(t, []interface{}{"x", nil}, columnValues(t, filtered, "b"))

		all, err := FilterBlock(block, dv.ConstantColumn(dv.Boolean(true), 4))
		require.NoError(t, err)
		assert.Same(t, block, all)

		none, err := FilterBlock(block, dv.ConstantColumn(dv.NullOf(dv.BooleanType), 4))
		require.NoError(t, err)
		assert.Equal(t, 0, none.NumRows())
	})

	t.Run("concat", func(t *testing.T) {
		both, err := ConcatBlocks([]*DataBlock{block, block.Slice(1, 2)})
		require.NoError(t, err)
		assert.Equal(t, 6, both.NumRows())
		assert.Equal(t, []interface{}{"x", nil, "y", "x", nil, "y"}, columnValues(t, both, "b"))
		b, err := both.TryColumnByName("b")
		require.NoError(t, err)
		assert.Equal(t, 2, b.NullCount())

		// valid rows first, nullable rows after
		tail := block.Slice(0, 1)
		mixed, err := ConcatBlocks([]*DataBlock{tail, block.Slice(1, 1), tail})
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"x", nil, "x"}, columnValues(t, mixed, "b"))
		assert.Equal(t, []interface{}{int64(1), int64(2), int64(1)}, columnValues(t, mixed, "a"))
	})

	t.Run("concat constants", func(t *testing.T) {
		schema := dv.NewDataSchema(dv.NewDataField("c", dv.Int64Type, true))
		seven, err := Create(schema, []dv.DataColumn{dv.ConstantColumn(dv.Int64(7), 2)})
		require.NoError(t, err)
		nulls, err := Create(schema, []dv.DataColumn{dv.ConstantColumn(dv.NullOf(dv.Int64Type), 1)})
		require.NoError(t, err)

		same, err := ConcatBlocks([]*DataBlock{seven, seven})
		require.NoError(t, err)
		assert.True(t, same.Column(0).IsConstant())
		assert.Equal(t, 4, same.NumRows())

		mixed, err := ConcatBlocks([]*DataBlock{seven, nulls})
		require.NoError(t, err)
		assert.False(t, mixed.Column(0).IsConstant())
		assert.Equal(t, []interface{}{int64(7), int64(7), nil}, columnValues(t, mixed, "c"))
		assert.Equal(t, 1, mixed.Column(0).NullCount())
	})

	t.Run("project and add", func(t *testing.T) {
		projected, err := block.Project("b")
		require.NoError(t, err)
		assert.Equal(t, 1, projected.NumColumns())

		added, err := projected.AddColumn(dv.NewDataField("c", dv.BooleanType, false), dv.ConstantColumn(dv.Boolean(true), 4))
		require.NoError(t, err)
		assert.Equal(t, 2, added.NumColumns())
		assert.Contains(t, added.String(), "| c    |")
	})
}
