package datablocks

import (
	"github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// BlockTakeByIndices gathers the given rows of every column.
func BlockTakeByIndices(block *DataBlock, indices []uint32) (*DataBlock, error) {
	for _, idx := range indices {
		if int(idx) >= block.numRows {
			return nil, errorcode.LogicalError("Row index %d out of range for block of %d rows", idx, block.numRows)
		}
	}
	columns := make([]datavalues.DataColumn, len(block.columns))
	for i, c := range block.columns {
		columns[i] = c.Take(indices)
	}
	return &DataBlock{schema: block.schema, columns: columns, numRows: len(indices)}, nil
}

// FilterBlock keeps rows where the predicate is true. Null predicate rows
// are dropped.
func FilterBlock(block *DataBlock, predicate datavalues.DataColumn) (*DataBlock, error) {
	pred, err := predicate.ToMinimalArray()
	if err != nil {
		return nil, err
	}
	selected, err := datavalues.FilterSelection(block.numRows, pred)
	if err != nil {
		return nil, err
	}
	switch len(selected) {
	case 0:
		return block.Slice(0, 0), nil
	case block.numRows:
		return block, nil
	}
	return BlockTakeByIndices(block, selected)
}

// sharedConstant reports whether column c is the same constant in every
// block.
func sharedConstant(blocks []*DataBlock, c int) (datavalues.DataValue, bool) {
	first := blocks[0].columns[c]
	if !first.IsConstant() {
		return datavalues.DataValue{}, false
	}
	v := first.ConstantValue()
	for _, b := range blocks[1:] {
		col := b.columns[c]
		if !col.IsConstant() || !col.ConstantValue().Equal(v) {
			return datavalues.DataValue{}, false
		}
	}
	return v, true
}

// ConcatBlocks appends blocks of identical schema into one block.
func ConcatBlocks(blocks []*DataBlock) (*DataBlock, error) {
	if len(blocks) == 0 {
		return nil, errorcode.LogicalError("Cannot concat empty block list")
	}
	if len(blocks) == 1 {
		return blocks[0], nil
	}
	schema := blocks[0].schema
	total := 0
	for _, b := range blocks {
		if !b.schema.Equal(schema) {
			return nil, errorcode.LogicalError("Cannot concat blocks with schema %s and %s", schema, b.schema)
		}
		total += b.numRows
	}
	columns := make([]datavalues.DataColumn, schema.NumFields())
	for c, f := range schema.Fields() {
		if v, ok := sharedConstant(blocks, c); ok {
			columns[c] = datavalues.ConstantColumn(v, total)
			continue
		}
		parts := make([]datavalues.Series, 0, len(blocks))
		for _, b := range blocks {
			arr, err := b.columns[c].ToArray()
			if err != nil {
				return nil, err
			}
			if !arr.DataType().Equal(f.DataType) {
				if arr, err = datavalues.Cast(arr, f.DataType); err != nil {
					return nil, err
				}
			}
			parts = append(parts, arr)
		}
		s, err := datavalues.Concat(parts)
		if err != nil {
			return nil, err
		}
		columns[c] = datavalues.ArrayColumn(s)
	}
	return Create(schema, columns)
}
