package functions

import (
	"fmt"

	dv "github.com/zhaox1n/datafuse/datavalues"
)

// CastFunction converts its argument to a fixed target type. Nulls of any
// type, including the Null type, become nulls of the target type.
type CastFunction struct {
	base
	target dv.DataType
}

// NewCastFunction returns a cast wrapped in the adapter.
func NewCastFunction(displayName string, target dv.DataType) Function {
	return NewAdapter(&CastFunction{base: fixed(displayName, 1), target: target})
}

func (f *CastFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return f.target, nil
}

func (f *CastFunction) Nullable(args []dv.DataField) bool { return anyNullable(args) }

func (f *CastFunction) PassthroughNull() bool { return false }

func (f *CastFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	arr, err := columns[0].Column.ToArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	out, err := dv.Cast(arr, f.target)
	if err != nil {
		return dv.DataColumn{}, err
	}
	return dv.ArrayColumn(out), nil
}

func (f *CastFunction) String() string { return "CAST" }

// AliasFunction renames its argument without touching the data.
type AliasFunction struct {
	base
	alias string
}

func NewAliasFunction(alias string) Function {
	return NewAdapter(&AliasFunction{base: fixed("alias", 1), alias: alias})
}

func (f *AliasFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	return args[0].DataType, nil
}

func (f *AliasFunction) Nullable(args []dv.DataField) bool { return args[0].Nullable }

func (f *AliasFunction) PassthroughNull() bool { return false }

func (f *AliasFunction) PassthroughConstant() bool { return false }

func (f *AliasFunction) Eval(columns []ColumnWithField, _ int) (dv.DataColumn, error) {
	return columns[0].Column, nil
}

func (f *AliasFunction) String() string { return fmt.Sprintf("%s as %s", f.name, f.alias) }

// ColumnFunction reads one input column by name. The caller passes the
// resolved column as the only argument.
type ColumnFunction struct {
	base
	column string
}

func NewColumnFunction(column string) Function {
	return NewAdapter(&ColumnFunction{base: fixed("column", 1), column: column})
}

func (f *ColumnFunction) ColumnName() string { return f.column }

func (f *ColumnFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	return args[0].DataType, nil
}

func (f *ColumnFunction) Nullable(args []dv.DataField) bool { return args[0].Nullable }

func (f *ColumnFunction) PassthroughNull() bool { return false }

func (f *ColumnFunction) PassthroughConstant() bool { return false }

func (f *ColumnFunction) Eval(columns []ColumnWithField, _ int) (dv.DataColumn, error) {
	return columns[0].Column, nil
}

func (f *ColumnFunction) String() string { return f.column }
