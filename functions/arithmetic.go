package functions

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// ArithmeticFunction implements + - * / %. Plus and minus also accept a
// single argument: identity and negation.
type ArithmeticFunction struct {
	base
	op dv.ArithmeticOp
}

func registerArithmetic(f *Factory) {
	for _, names := range []struct {
		aliases []string
		op      dv.ArithmeticOp
	}{
		{[]string{"+", "plus"}, dv.OpPlus},
		{[]string{"-", "minus"}, dv.OpMinus},
		{[]string{"*", "multiply"}, dv.OpMul},
		{[]string{"/", "divide"}, dv.OpDiv},
		{[]string{"%", "modulo"}, dv.OpModulo},
	} {
		op := names.op
		for _, alias := range names.aliases {
			f.Register(alias, func(displayName string, _ []dv.DataField) (Function, error) {
				return NewArithmeticFunction(displayName, op), nil
			})
		}
	}
}

func NewArithmeticFunction(displayName string, op dv.ArithmeticOp) *ArithmeticFunction {
	b := fixed(displayName, 2)
	if op == dv.OpPlus || op == dv.OpMinus {
		b = ranged(displayName, 1, 2)
	}
	return &ArithmeticFunction{base: b, op: op}
}

func (f *ArithmeticFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if len(args) == 1 {
		if f.op == dv.OpPlus {
			if !args[0].DataType.IsNumeric() {
				return dv.NullType, errorcode.BadDataValueType(
					"DataValue Error: Unsupported unary %s (%s)", f.op, args[0].DataType)
			}
			return args[0].DataType, nil
		}
		return dv.NumericalUnaryArithmeticCoercion(f.op.String(), args[0].DataType)
	}
	return dv.NumericalArithmeticCoercion(f.op.String(), args[0].DataType, args[1].DataType)
}

func (f *ArithmeticFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if len(columns) == 1 {
		if f.op == dv.OpPlus {
			return columns[0].Column, nil
		}
		arr, err := columns[0].Column.ToArray()
		if err != nil {
			return dv.DataColumn{}, err
		}
		neg, err := dv.Negate(arr)
		if err != nil {
			return dv.DataColumn{}, err
		}
		return dv.ArrayColumn(neg), nil
	}
	return columns[0].Column.Arithmetic(f.op, columns[1].Column)
}
