package functions

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
)

// ComparisonFunction implements the comparison operators and LIKE.
type ComparisonFunction struct {
	base
	op dv.CompareOp
}

func registerComparison(f *Factory) {
	for alias, op := range map[string]dv.CompareOp{
		"=":        dv.OpEq,
		"!=":       dv.OpNotEq,
		"<>":       dv.OpNotEq,
		">":        dv.OpGt,
		">=":       dv.OpGtEq,
		"<":        dv.OpLt,
		"<=":       dv.OpLtEq,
		"<=>":      dv.OpEqMissing,
		"like":     dv.OpLike,
		"not like": dv.OpNotLike,
	} {
		op := op
		f.Register(alias, func(displayName string, _ []dv.DataField) (Function, error) {
			return NewComparisonFunction(displayName, op), nil
		})
	}
}

func NewComparisonFunction(displayName string, op dv.CompareOp) *ComparisonFunction {
	return &ComparisonFunction{base: fixed(displayName, 2), op: op}
}

func (f *ComparisonFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return dv.BooleanType, nil
}

// PassthroughNull is off for null-safe equality, which must see the nulls.
func (f *ComparisonFunction) PassthroughNull() bool {
	return f.op != dv.OpEqMissing
}

func (f *ComparisonFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	return columns[0].Column.Compare(f.op, columns[1].Column)
}
