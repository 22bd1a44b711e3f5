package planners

import (
	"github.com/zhaox1n/datafuse/aggregates"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/functions"
)

// Resolver types expressions against an input schema using the scalar and
// aggregate registries. It never touches data.
type Resolver struct {
	functions  *functions.Factory
	aggregates *aggregates.Factory
}

func NewResolver(fns *functions.Factory, aggs *aggregates.Factory) *Resolver {
	return &Resolver{functions: fns, aggregates: aggs}
}

// DefaultResolver resolves against the process-wide registries.
func DefaultResolver() *Resolver {
	return NewResolver(functions.Default(), aggregates.Default())
}

func (r *Resolver) Functions() *functions.Factory { return r.functions }

func (r *Resolver) Aggregates() *aggregates.Factory { return r.aggregates }

// ToDataField names, types and checks the nullability of e.
func (r *Resolver) ToDataField(e Expression, schema *dv.DataSchema) (dv.DataField, error) {
	t, err := r.ToDataType(e, schema)
	if err != nil {
		return dv.DataField{}, err
	}
	nullable, err := r.Nullable(e, schema)
	if err != nil {
		return dv.DataField{}, err
	}
	return dv.NewDataField(ColumnName(e), t, nullable), nil
}

func (r *Resolver) argFields(args []Expression, schema *dv.DataSchema) ([]dv.DataField, error) {
	fields := make([]dv.DataField, len(args))
	for i, a := range args {
		f, err := r.ToDataField(a, schema)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return fields, nil
}

// ScalarFunction returns the function instance behind a unary, binary or
// scalar function node together with its argument fields.
func (r *Resolver) ScalarFunction(e Expression, schema *dv.DataSchema) (functions.Function, []dv.DataField, error) {
	var (
		op   string
		args []Expression
	)
	switch x := e.(type) {
	case UnaryExpr:
		op, args = x.Op, []Expression{x.Expr}
	case BinaryExpr:
		op, args = x.Op, []Expression{x.Left, x.Right}
	case ScalarFunctionExpr:
		op, args = x.Op, x.Args
	default:
		return nil, nil, errorcode.LogicalError("Expression must be a function: %s", e)
	}
	fields, err := r.argFields(args, schema)
	if err != nil {
		return nil, nil, err
	}
	fn, err := r.functions.Get(op, fields)
	if err != nil {
		return nil, nil, err
	}
	return fn, fields, nil
}

func (r *Resolver) ToDataType(e Expression, schema *dv.DataSchema) (dv.DataType, error) {
	switch x := e.(type) {
	case AliasExpr:
		return r.ToDataType(x.Expr, schema)
	case ColumnExpr:
		f, err := schema.FieldWithName(x.Name)
		if err != nil {
			return dv.NullType, err
		}
		return f.DataType, nil
	case LiteralExpr:
		return x.Value.DataType(), nil
	case ExistsExpr:
		return dv.BooleanType, nil
	case UnaryExpr, BinaryExpr, ScalarFunctionExpr:
		fn, fields, err := r.ScalarFunction(e, schema)
		if err != nil {
			return dv.NullType, err
		}
		return fn.ReturnType(fields)
	case AggregateFunctionExpr:
		fn, err := r.ToAggregateFunction(e, schema)
		if err != nil {
			return dv.NullType, err
		}
		return fn.ReturnType(), nil
	case WildcardExpr:
		return dv.NullType, errorcode.IllegalDataType("Wildcard expressions are not valid to get return type")
	case CastExpr:
		return x.DataType, nil
	case SortExpr:
		return r.ToDataType(x.Expr, schema)
	}
	return dv.NullType, errorcode.LogicalError("Unknown expression: %s", e)
}

func (r *Resolver) Nullable(e Expression, schema *dv.DataSchema) (bool, error) {
	switch x := e.(type) {
	case AliasExpr:
		return r.Nullable(x.Expr, schema)
	case ColumnExpr:
		f, err := schema.FieldWithName(x.Name)
		if err != nil {
			return false, err
		}
		return f.Nullable, nil
	case LiteralExpr:
		return x.Value.IsNull(), nil
	case ExistsExpr:
		return false, nil
	case UnaryExpr, BinaryExpr, ScalarFunctionExpr:
		fn, fields, err := r.ScalarFunction(e, schema)
		if err != nil {
			return false, err
		}
		return fn.Nullable(fields), nil
	case AggregateFunctionExpr:
		fn, err := r.ToAggregateFunction(e, schema)
		if err != nil {
			return false, err
		}
		return fn.Nullable(), nil
	case WildcardExpr:
		return false, errorcode.IllegalDataType("Wildcard expressions are not valid to get nullable")
	case CastExpr:
		return r.Nullable(x.Expr, schema)
	case SortExpr:
		return r.Nullable(x.Expr, schema)
	}
	return false, errorcode.LogicalError("Unknown expression: %s", e)
}

// ToAggregateFunction builds the aggregate behind e. Distinct aggregates
// resolve to the "Distinct" suffixed registry entry.
func (r *Resolver) ToAggregateFunction(e Expression, schema *dv.DataSchema) (aggregates.AggregateFunction, error) {
	x, ok := e.(AggregateFunctionExpr)
	if !ok {
		return nil, errorcode.LogicalError("Expression must be aggregated function")
	}
	fields, err := r.argFields(x.Args, schema)
	if err != nil {
		return nil, err
	}
	return r.aggregates.Get(aggregates.DistinctName(x.Op, x.Distinct), fields)
}

// ToAggregateFunctionNames returns the column names of the arguments of an
// aggregate expression.
func ToAggregateFunctionNames(e Expression) ([]string, error) {
	x, ok := e.(AggregateFunctionExpr)
	if !ok {
		return nil, errorcode.LogicalError("Expression must be aggregated function")
	}
	names := make([]string, len(x.Args))
	for i, a := range x.Args {
		names[i] = ColumnName(a)
	}
	return names, nil
}
