package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dv "github.com/zhaox1n/datafuse/datavalues"
)

// materialized turns a constant argument into an array of the same rows.
func materialized(t *testing.T, c ColumnWithField) ColumnWithField {
	t.Helper()
	arr, err := c.Column.ToArray()
	require.NoError(t, err)
	return NewColumnWithField(dv.ArrayColumn(arr), c.Field)
}

func TestAdapterConstantMatchesArrays(t *testing.T) {
	f := newTestFactory(t)
	const rows = 5

	tests := []struct {
		name string
		args []dv.DataValue
	}{
		{"+", []dv.DataValue{dv.Int64(6), dv.Int64(7)}},
		{"+", []dv.DataValue{dv.Int64(6), dv.NullOf(dv.Int64Type)}},
		{"-", []dv.DataValue{dv.Float64(1.5), dv.Int32(2)}},
		{"*", []dv.DataValue{dv.UInt8(3), dv.Int64(-4)}},
		{"/", []dv.DataValue{dv.Int64(7), dv.Int64(2)}},
		{"=", []dv.DataValue{dv.Utf8("a"), dv.Utf8("a")}},
		{"<", []dv.DataValue{dv.Int64(1), dv.Null()}},
		{"<=>", []dv.DataValue{dv.NullOf(dv.Int64Type), dv.NullOf(dv.Int64Type)}},
		{"like", []dv.DataValue{dv.Utf8("abc"), dv.Utf8("a%")}},
		{"and", []dv.DataValue{dv.Boolean(false), dv.NullOf(dv.BooleanType)}},
		{"or", []dv.DataValue{dv.NullOf(dv.BooleanType), dv.Boolean(true)}},
		{"not", []dv.DataValue{dv.Boolean(false)}},
		{"concat", []dv.DataValue{dv.Utf8("ab"), dv.Utf8("cd")}},
		{"upper", []dv.DataValue{dv.Utf8("abc")}},
		{"length", []dv.DataValue{dv.NullOf(dv.Utf8Type)}},
		{"substring", []dv.DataValue{dv.Utf8("hello"), dv.Int64(2), dv.Int64(3)}},
		{"siphash", []dv.DataValue{dv.Int64(42)}},
		{"try_to_int64", []dv.DataValue{dv.Utf8("x1")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			constants := make([]ColumnWithField, len(tt.args))
			arrays := make([]ColumnWithField, len(tt.args))
			for i, v := range tt.args {
				constants[i] = constArg("arg", v, rows)
				arrays[i] = materialized(t, constants[i])
			}

			fromConstants, err := eval(t, f, tt.name, rows, constants...)
			require.NoError(t, err)
			fromArrays, err := eval(t, f, tt.name, rows, arrays...)
			require.NoError(t, err)

			assert.Equal(t, rows, fromConstants.Len())
			assert.Equal(t, values(fromArrays), values(fromConstants))
			assert.Equal(t, fromArrays.NullCount(), fromConstants.NullCount())
		})
	}
}
