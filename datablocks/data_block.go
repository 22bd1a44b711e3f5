// Package datablocks holds row batches (DataBlock) and the block level
// kernels: take, filter, concat and hash grouping.
package datablocks

import (
	"fmt"
	"strings"

	"github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// DataBlock is an immutable batch of equally long named columns.
type DataBlock struct {
	schema  *datavalues.DataSchema
	columns []datavalues.DataColumn
	numRows int
}

// Create builds a block, checking that the columns line up with the schema
// and with each other.
func Create(schema *datavalues.DataSchema, columns []datavalues.DataColumn) (*DataBlock, error) {
	if schema.NumFields() != len(columns) {
		return nil, errorcode.LogicalError(
			"DataBlock schema has %d fields but %d columns were given", schema.NumFields(), len(columns))
	}
	numRows := 0
	for i, col := range columns {
		field := schema.Field(i)
		if i == 0 {
			numRows = col.Len()
		} else if col.Len() != numRows {
			return nil, errorcode.LogicalError(
				"DataBlock column %s has %d rows, expected %d", field.Name, col.Len(), numRows)
		}
		if dt := col.DataType(); !dt.IsNull() && !dt.Equal(field.DataType) {
			return nil, errorcode.LogicalError(
				"DataBlock column %s has type %s, schema says %s", field.Name, dt, field.DataType)
		}
	}
	return &DataBlock{schema: schema, columns: columns, numRows: numRows}, nil
}

// Empty returns a block with the schema and no rows.
func Empty(schema *datavalues.DataSchema) *DataBlock {
	columns := make([]datavalues.DataColumn, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = datavalues.ConstantColumn(datavalues.NullOf(f.DataType), 0)
	}
	return &DataBlock{schema: schema, columns: columns}
}

func (b *DataBlock) Schema() *datavalues.DataSchema { return b.schema }

func (b *DataBlock) NumRows() int { return b.numRows }

func (b *DataBlock) NumColumns() int { return len(b.columns) }

func (b *DataBlock) IsEmpty() bool { return b.numRows == 0 }

func (b *DataBlock) Column(i int) datavalues.DataColumn { return b.columns[i] }

func (b *DataBlock) Columns() []datavalues.DataColumn { return b.columns }

func (b *DataBlock) TryColumnByName(name string) (datavalues.DataColumn, error) {
	i, err := b.schema.IndexOf(name)
	if err != nil {
		return datavalues.DataColumn{}, err
	}
	return b.columns[i], nil
}

// AddColumn returns a new block with the column appended. A block with no
// columns takes its row count from the new column.
func (b *DataBlock) AddColumn(field datavalues.DataField, column datavalues.DataColumn) (*DataBlock, error) {
	fields := append(append([]datavalues.DataField(nil), b.schema.Fields()...), field)
	columns := append(append([]datavalues.DataColumn(nil), b.columns...), column)
	return Create(datavalues.NewDataSchema(fields...), columns)
}

// Project returns a block of the named columns in the given order.
func (b *DataBlock) Project(names ...string) (*DataBlock, error) {
	schema, err := b.schema.Project(names...)
	if err != nil {
		return nil, err
	}
	columns := make([]datavalues.DataColumn, len(names))
	for i, n := range names {
		if columns[i], err = b.TryColumnByName(n); err != nil {
			return nil, err
		}
	}
	return &DataBlock{schema: schema, columns: columns, numRows: b.numRows}, nil
}

// Slice returns rows [offset, offset+length).
func (b *DataBlock) Slice(offset, length int) *DataBlock {
	columns := make([]datavalues.DataColumn, len(b.columns))
	for i, c := range b.columns {
		columns[i] = c.Slice(offset, length)
	}
	return &DataBlock{schema: b.schema, columns: columns, numRows: length}
}

// Row returns the values of row i across all columns.
func (b *DataBlock) Row(i int) []datavalues.DataValue {
	row := make([]datavalues.DataValue, len(b.columns))
	for c, col := range b.columns {
		row[c] = col.Get(i)
	}
	return row
}

func (b *DataBlock) String() string {
	widths := make([]int, len(b.columns))
	header := make([]string, len(b.columns))
	cells := make([][]string, b.numRows)
	for c, f := range b.schema.Fields() {
		header[c] = f.Name
		widths[c] = len(f.Name)
	}
	for r := 0; r < b.numRows; r++ {
		cells[r] = make([]string, len(b.columns))
		for c, col := range b.columns {
			cells[r][c] = col.Get(r).String()
			widths[c] = max(widths[c], len(cells[r][c]))
		}
	}

	var sb strings.Builder
	sep := func() {
		for _, w := range widths {
			sb.WriteString("+" + strings.Repeat("-", w+2))
		}
		sb.WriteString("+\n")
	}
	line := func(values []string) {
		for c, v := range values {
			fmt.Fprintf(&sb, "| %-*s ", widths[c], v)
		}
		sb.WriteString("|\n")
	}
	sep()
	line(header)
	sep()
	for _, r := range cells {
		line(r)
	}
	sep()
	return sb.String()
}
