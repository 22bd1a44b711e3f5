package vectorized

import (
	"fmt"

	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/functions"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/trace"
)

type actionKind int

const (
	actionInput actionKind = iota
	actionConstant
	actionAlias
	actionFunction
)

// action computes one node of the expression chain into the column keyed
// by key.
type action struct {
	kind  actionKind
	key   string
	field dv.DataField
	value dv.DataValue
	fn    functions.Function
	args  []string
}

// ExpressionExecutor evaluates a list of expressions over blocks of a fixed
// input schema. Expressions are compiled once into a chain of actions, one
// function instance per distinct node, and reused for every block.
type ExpressionExecutor struct {
	qctx    *QueryContext
	desc    string
	input   *dv.DataSchema
	exprs   []planners.Expression
	output  *dv.DataSchema
	actions []action
	outputs []string
}

func NewExpressionExecutor(qctx *QueryContext, input *dv.DataSchema, exprs []planners.Expression, desc string) (*ExpressionExecutor, error) {
	e := &ExpressionExecutor{qctx: qctx, desc: desc, input: input}
	resolver := qctx.Resolver()

	var fields []dv.DataField
	for _, expr := range exprs {
		for _, x := range planners.ExpandWildcard(expr, input) {
			bound, err := bindContextArgs(x, qctx)
			if err != nil {
				return nil, err
			}
			rebased, err := planners.RebaseExprFromInput(bound, input)
			if err != nil {
				return nil, err
			}
			field, err := resolver.ToDataField(rebased, input)
			if err != nil {
				return nil, err
			}
			e.exprs = append(e.exprs, rebased)
			fields = append(fields, field)
		}
	}
	e.output = dv.NewDataSchema(fields...)

	seen := make(map[string]bool)
	for _, x := range e.exprs {
		key, err := e.compile(x, seen)
		if err != nil {
			return nil, err
		}
		e.outputs = append(e.outputs, key)
	}

	trace.GetTracer().Debug(trace.ComponentExpression, "Compiled expression chain",
		trace.Context("desc", desc, "exprs", len(e.exprs), "actions", len(e.actions)))
	return e, nil
}

// bindContextArgs supplies the session argument of database() and
// version() when the planner left it unbound.
func bindContextArgs(e planners.Expression, qctx *QueryContext) (planners.Expression, error) {
	return planners.CloneWithReplacement(e, func(n planners.Expression) (planners.Expression, error) {
		f, ok := n.(planners.ScalarFunctionExpr)
		if !ok || len(f.Args) > 0 {
			return nil, nil
		}
		values, ok := functions.BuildArgsFromContext(f.Op, qctx)
		if !ok {
			return nil, nil
		}
		args := make([]planners.Expression, len(values))
		for i, v := range values {
			args[i] = planners.Lit(v)
		}
		return planners.Func(f.Op, args...), nil
	})
}

// chainKey identifies a node inside the chain. Literals are keyed by type
// and value so they never alias an input column of the same name.
func chainKey(e planners.Expression) string {
	switch x := e.(type) {
	case planners.ColumnExpr:
		return x.Name
	case planners.LiteralExpr:
		return fmt.Sprintf("literal(%s:%s)", x.Value.DataType(), x.Value)
	case planners.SortExpr:
		return chainKey(x.Expr)
	}
	return e.String()
}

func (e *ExpressionExecutor) compile(x planners.Expression, seen map[string]bool) (string, error) {
	key := chainKey(x)
	if seen[key] {
		return key, nil
	}
	resolver := e.qctx.Resolver()

	switch n := x.(type) {
	case planners.ColumnExpr:
		field, err := e.input.FieldWithName(n.Name)
		if err != nil {
			return "", err
		}
		e.push(action{kind: actionInput, key: key, field: field})
	case planners.LiteralExpr:
		field := dv.NewDataField(planners.ColumnName(n), n.Value.DataType(), n.Value.IsNull())
		e.push(action{kind: actionConstant, key: key, field: field, value: n.Value})
	case planners.SortExpr:
		return e.compile(n.Expr, seen)
	case planners.AliasExpr:
		inner, err := e.compile(n.Expr, seen)
		if err != nil {
			return "", err
		}
		field, err := resolver.ToDataField(n, e.input)
		if err != nil {
			return "", err
		}
		e.push(action{kind: actionAlias, key: key, field: field, args: []string{inner}})
	case planners.CastExpr:
		inner, err := e.compile(n.Expr, seen)
		if err != nil {
			return "", err
		}
		field, err := resolver.ToDataField(n, e.input)
		if err != nil {
			return "", err
		}
		fn := functions.NewCastFunction("cast", n.DataType)
		e.push(action{kind: actionFunction, key: key, field: field, fn: fn, args: []string{inner}})
	case planners.UnaryExpr, planners.BinaryExpr, planners.ScalarFunctionExpr:
		fn, argFields, err := resolver.ScalarFunction(n, e.input)
		if err != nil {
			return "", err
		}
		args := make([]string, 0, len(argFields))
		for _, child := range functionArgs(n) {
			k, err := e.compile(child, seen)
			if err != nil {
				return "", err
			}
			args = append(args, k)
		}
		rt, err := fn.ReturnType(argFields)
		if err != nil {
			return "", err
		}
		field := dv.NewDataField(planners.ColumnName(n), rt, fn.Nullable(argFields))
		e.push(action{kind: actionFunction, key: key, field: field, fn: fn, args: args})
	case planners.AggregateFunctionExpr:
		return "", errorcode.LogicalError("Aggregate expression %s must be computed by an aggregator", n)
	case planners.ExistsExpr:
		return "", errorcode.LogicalError("Exists subqueries cannot be evaluated by the expression executor: %s", n)
	case planners.WildcardExpr:
		return "", errorcode.IllegalDataType("Wildcard expressions must be expanded before execution")
	default:
		return "", errorcode.LogicalError("Unknown expression: %s", x)
	}
	seen[key] = true
	return key, nil
}

func (e *ExpressionExecutor) push(a action) { e.actions = append(e.actions, a) }

func functionArgs(x planners.Expression) []planners.Expression {
	switch n := x.(type) {
	case planners.UnaryExpr:
		return []planners.Expression{n.Expr}
	case planners.BinaryExpr:
		return []planners.Expression{n.Left, n.Right}
	case planners.ScalarFunctionExpr:
		return n.Args
	}
	return nil
}

func (e *ExpressionExecutor) InputSchema() *dv.DataSchema { return e.input }

func (e *ExpressionExecutor) OutputSchema() *dv.DataSchema { return e.output }

// Expressions returns the compiled expressions after wildcard expansion,
// context binding and rebasing.
func (e *ExpressionExecutor) Expressions() []planners.Expression { return e.exprs }

// Execute evaluates the expressions over block and returns a block with
// one column per expression.
func (e *ExpressionExecutor) Execute(block *datablocks.DataBlock) (*datablocks.DataBlock, error) {
	rows := block.NumRows()
	columns := make(map[string]functions.ColumnWithField, len(e.actions))

	for _, a := range e.actions {
		switch a.kind {
		case actionInput:
			col, err := block.TryColumnByName(a.key)
			if err != nil {
				return nil, err
			}
			columns[a.key] = functions.NewColumnWithField(col, a.field)
		case actionConstant:
			columns[a.key] = functions.NewColumnWithField(dv.ConstantColumn(a.value, rows), a.field)
		case actionAlias:
			columns[a.key] = functions.NewColumnWithField(columns[a.args[0]].Column, a.field)
		case actionFunction:
			args := make([]functions.ColumnWithField, len(a.args))
			for i, k := range a.args {
				args[i] = columns[k]
			}
			out, err := a.fn.Eval(args, rows)
			if err != nil {
				return nil, err
			}
			columns[a.key] = functions.NewColumnWithField(out, a.field)
		}
	}

	out := make([]dv.DataColumn, len(e.outputs))
	for i, k := range e.outputs {
		out[i] = columns[k].Column
	}
	result, err := datablocks.Create(e.output, out)
	if err != nil {
		return nil, err
	}
	trace.GetTracer().Verbose(trace.ComponentExecution, "Executed expression chain",
		trace.Context("desc", e.desc, "rows", rows))
	return result, nil
}

// FilterExecutor keeps the rows of a block for which a predicate holds.
type FilterExecutor struct {
	predicate *ExpressionExecutor
}

func NewFilterExecutor(qctx *QueryContext, input *dv.DataSchema, predicate planners.Expression) (*FilterExecutor, error) {
	ex, err := NewExpressionExecutor(qctx, input, []planners.Expression{predicate}, "Filter")
	if err != nil {
		return nil, err
	}
	if t := ex.output.Field(0).DataType; !t.IsNull() && !t.Equal(dv.BooleanType) {
		return nil, errorcode.IllegalDataType("Filter predicate must be Boolean, got %s for %s", t, predicate)
	}
	return &FilterExecutor{predicate: ex}, nil
}

func (f *FilterExecutor) Filter(block *datablocks.DataBlock) (*datablocks.DataBlock, error) {
	result, err := f.predicate.Execute(block)
	if err != nil {
		return nil, err
	}
	filtered, err := datablocks.FilterBlock(block, result.Column(0))
	if err != nil {
		return nil, err
	}
	trace.GetTracer().Debug(trace.ComponentFilter, "Filtered block",
		trace.Context("rows", block.NumRows(), "kept", filtered.NumRows()))
	return filtered, nil
}
