package functions

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// LogicFunction implements and, or, xor and not with three-valued logic. It
// handles nulls itself: false AND NULL is false, true OR NULL is true.
type LogicFunction struct {
	base
	op     dv.LogicOp
	negate bool
}

func registerLogic(f *Factory) {
	for alias, op := range map[string]dv.LogicOp{"and": dv.OpAnd, "or": dv.OpOr, "xor": dv.OpXor} {
		op := op
		f.Register(alias, func(displayName string, _ []dv.DataField) (Function, error) {
			return &LogicFunction{base: fixed(displayName, 2), op: op}, nil
		})
	}
	f.Register("not", func(displayName string, _ []dv.DataField) (Function, error) {
		return &LogicFunction{base: fixed(displayName, 1), negate: true}, nil
	})
}

func (f *LogicFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	for _, a := range args {
		if a.DataType.ID() != dv.TypeBoolean && !a.DataType.IsNull() {
			return dv.NullType, errorcode.IllegalDataType(
				"Illegal type %s of argument of function %s, expected Boolean", a.DataType, f.name)
		}
	}
	return dv.BooleanType, nil
}

func (f *LogicFunction) Nullable(args []dv.DataField) bool { return anyNullable(args) }

func (f *LogicFunction) PassthroughNull() bool { return false }

func (f *LogicFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	lhs, err := columns[0].Column.ToMinimalArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	if f.negate {
		out, err := dv.Not(lhs)
		if err != nil {
			return dv.DataColumn{}, err
		}
		return dv.ArrayColumn(out).ResizeConstant(rows), nil
	}
	rhs, err := columns[1].Column.ToMinimalArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	out, err := dv.Logic(f.op, lhs, rhs)
	if err != nil {
		return dv.DataColumn{}, err
	}
	if out.Len() != rows {
		return dv.ArrayColumn(out).ResizeConstant(rows), nil
	}
	return dv.ArrayColumn(out), nil
}
