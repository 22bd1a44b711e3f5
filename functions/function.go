// Package functions defines the scalar function contract, the registry that
// resolves function names to instances, and the builtin function families.
package functions

import (
	"fmt"

	dv "github.com/zhaox1n/datafuse/datavalues"
)

// ColumnWithField is an evaluated argument together with its field.
type ColumnWithField struct {
	Column dv.DataColumn
	Field  dv.DataField
}

func NewColumnWithField(column dv.DataColumn, field dv.DataField) ColumnWithField {
	return ColumnWithField{Column: column, Field: field}
}

// Function is a scalar function instance. Instances are built once per
// expression node and reused for every block; Eval must not keep state
// between calls.
type Function interface {
	Name() string
	// NumArguments is the fixed arity, 0 for variadic functions.
	NumArguments() int
	// VariadicArguments returns the accepted arity range when ok is true.
	VariadicArguments() (min, max int, ok bool)
	ReturnType(args []dv.DataField) (dv.DataType, error)
	Nullable(args []dv.DataField) bool
	Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error)
	// PassthroughNull lets the adapter handle null arguments: a Null typed
	// argument yields an all-null result and argument validities are merged
	// into the result.
	PassthroughNull() bool
	// PassthroughConstant lets the adapter evaluate all-constant arguments
	// once and re-broadcast the result.
	PassthroughConstant() bool
	String() string
}

// base carries the defaults shared by the builtins: both passthroughs on,
// not nullable on its own. A base with variadic set accepts [min, max]
// arguments instead of arity.
type base struct {
	name     string
	arity    int
	variadic bool
	min, max int
}

func fixed(name string, arity int) base {
	return base{name: name, arity: arity}
}

func ranged(name string, min, max int) base {
	return base{name: name, variadic: true, min: min, max: max}
}

func (b base) Name() string { return b.name }

func (b base) NumArguments() int {
	if b.variadic {
		return 0
	}
	return b.arity
}

func (b base) VariadicArguments() (int, int, bool) { return b.min, b.max, b.variadic }

func (b base) Nullable([]dv.DataField) bool { return false }

func (b base) PassthroughNull() bool { return true }

func (b base) PassthroughConstant() bool { return true }

func (b base) String() string { return b.name }

func argTypes(args []dv.DataField) string {
	return fmt.Sprint(fieldTypes(args))
}

func fieldTypes(args []dv.DataField) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.DataType.String()
	}
	return out
}

func fields(columns []ColumnWithField) []dv.DataField {
	out := make([]dv.DataField, len(columns))
	for i, c := range columns {
		out[i] = c.Field
	}
	return out
}

func anyNullable(args []dv.DataField) bool {
	for _, a := range args {
		if a.Nullable || a.DataType.IsNull() {
			return true
		}
	}
	return false
}
