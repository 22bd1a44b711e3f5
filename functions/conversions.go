package functions

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
)

func registerConversions(f *Factory) {
	f.Register("try_to_int64", func(displayName string, _ []dv.DataField) (Function, error) {
		return &TryCastFunction{base: fixed(displayName, 1), target: dv.Int64Type}, nil
	})
	f.Register("try_to_float64", func(displayName string, _ []dv.DataField) (Function, error) {
		return &TryCastFunction{base: fixed(displayName, 1), target: dv.Float64Type}, nil
	})
}

// TryCastFunction converts its argument and yields null for rows that do
// not convert.
type TryCastFunction struct {
	base
	target dv.DataType
}

func (f *TryCastFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return f.target, nil
}

func (f *TryCastFunction) Nullable([]dv.DataField) bool { return true }

func (f *TryCastFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	arr, err := columns[0].Column.ToArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	out, err := dv.TryCast(arr, f.target)
	if err != nil {
		return dv.DataColumn{}, err
	}
	return dv.ArrayColumn(out), nil
}
