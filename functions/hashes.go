package functions

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

func registerHashes(f *Factory) {
	f.Register("siphash", func(displayName string, _ []dv.DataField) (Function, error) {
		return &SipHashFunction{base: fixed(displayName, 1)}, nil
	})
}

// SipHashFunction hashes each row with SipHash-2-4, the same hash used to
// key group tables.
type SipHashFunction struct {
	base
}

func (f *SipHashFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	t := args[0].DataType
	switch {
	case t.IsNumeric(), t.IsDate(), t.ID() == dv.TypeUtf8, t.ID() == dv.TypeBinary:
		return dv.UInt64Type, nil
	}
	return dv.NullType, errorcode.BadArguments(
		"Function Error: %s does not support %s type parameters", f.name, t)
}

func (f *SipHashFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	arr, err := columns[0].Column.ToArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	return dv.ArrayColumn(dv.VecHash(arr)), nil
}
