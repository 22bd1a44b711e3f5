// Package planners holds the expression trees handed to the execution core
// and the type resolution and rewriting helpers built on them.
package planners

import (
	"fmt"
	"strings"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/functions"
)

// Expression is an immutable expression tree node. String returns the
// debug form, which also serves as the column name of computed columns.
type Expression interface {
	String() string
	isExpression()
}

// PlanNode is the part of a plan an Exists expression needs.
type PlanNode interface {
	Schema() *dv.DataSchema
	String() string
}

type ColumnExpr struct {
	Name string
}

type LiteralExpr struct {
	Value dv.DataValue
}

type AliasExpr struct {
	Alias string
	Expr  Expression
}

// UnaryExpr is a prefix operator such as "NOT a" or "-a".
type UnaryExpr struct {
	Op   string
	Expr Expression
}

// BinaryExpr is an infix operator such as "age > 40".
type BinaryExpr struct {
	Left  Expression
	Op    string
	Right Expression
}

type ScalarFunctionExpr struct {
	Op   string
	Args []Expression
}

type AggregateFunctionExpr struct {
	Op       string
	Distinct bool
	Args     []Expression
}

type SortExpr struct {
	Expr       Expression
	Asc        bool
	NullsFirst bool
}

// CastExpr converts Expr to DataType; its type is fixed by the target.
type CastExpr struct {
	Expr     Expression
	DataType dv.DataType
}

// WildcardExpr is "*". It must be expanded against a schema before it can
// be typed.
type WildcardExpr struct{}

type ExistsExpr struct {
	Plan PlanNode
}

func Col(name string) Expression { return ColumnExpr{Name: name} }

func Lit(v dv.DataValue) Expression { return LiteralExpr{Value: v} }

func Alias(alias string, e Expression) Expression { return AliasExpr{Alias: alias, Expr: e} }

func Unary(op string, e Expression) Expression { return UnaryExpr{Op: op, Expr: e} }

func Binary(left Expression, op string, right Expression) Expression {
	return BinaryExpr{Left: left, Op: op, Right: right}
}

func Func(op string, args ...Expression) Expression { return ScalarFunctionExpr{Op: op, Args: args} }

func Aggregate(op string, distinct bool, args ...Expression) Expression {
	return AggregateFunctionExpr{Op: op, Distinct: distinct, Args: args}
}

func Sort(e Expression, asc, nullsFirst bool) Expression {
	return SortExpr{Expr: e, Asc: asc, NullsFirst: nullsFirst}
}

func Cast(e Expression, t dv.DataType) Expression { return CastExpr{Expr: e, DataType: t} }

func Wildcard() Expression { return WildcardExpr{} }

func Exists(plan PlanNode) Expression { return ExistsExpr{Plan: plan} }

func (ColumnExpr) isExpression()            {}
func (LiteralExpr) isExpression()           {}
func (AliasExpr) isExpression()             {}
func (UnaryExpr) isExpression()             {}
func (BinaryExpr) isExpression()            {}
func (ScalarFunctionExpr) isExpression()    {}
func (AggregateFunctionExpr) isExpression() {}
func (SortExpr) isExpression()              {}
func (CastExpr) isExpression()              {}
func (WildcardExpr) isExpression()          {}
func (ExistsExpr) isExpression()            {}

func (e ColumnExpr) String() string { return e.Name }

func (e LiteralExpr) String() string { return e.Value.String() }

func (e AliasExpr) String() string { return fmt.Sprintf("%s as %s", e.Expr, e.Alias) }

func (e UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", e.Op, e.Expr) }

func (e BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right) }

func (e ScalarFunctionExpr) String() string {
	return e.Op + "(" + joinExprs(e.Args) + ")"
}

func (e AggregateFunctionExpr) String() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteByte('(')
	if e.Distinct {
		sb.WriteString("distinct ")
	}
	sb.WriteString(joinExprs(e.Args))
	sb.WriteByte(')')
	return sb.String()
}

func (e SortExpr) String() string { return e.Expr.String() }

func (e CastExpr) String() string { return fmt.Sprintf("cast(%s as %s)", e.Expr, e.DataType) }

func (WildcardExpr) String() string { return "*" }

func (e ExistsExpr) String() string {
	if e.Plan == nil {
		return "Exists(<nil>)"
	}
	return fmt.Sprintf("Exists(%s)", e.Plan)
}

func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// FormatExprs renders a list of expressions as "[a, b]".
func FormatExprs(exprs []Expression) string {
	return "[" + joinExprs(exprs) + "]"
}

// ColumnName is the name a computed expression gets in its output block.
// Context functions render without their bound argument.
func ColumnName(e Expression) string {
	switch x := e.(type) {
	case AliasExpr:
		return x.Alias
	case ScalarFunctionExpr:
		if functions.IsContextFunction(x.Op) {
			return x.Op + "()"
		}
	}
	return e.String()
}

// Equal reports whether two trees are structurally equal.
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case ColumnExpr:
		y, ok := b.(ColumnExpr)
		return ok && x.Name == y.Name
	case LiteralExpr:
		y, ok := b.(LiteralExpr)
		return ok && x.Value.DataType().Equal(y.Value.DataType()) && x.Value.Equal(y.Value)
	case AliasExpr:
		y, ok := b.(AliasExpr)
		return ok && x.Alias == y.Alias && Equal(x.Expr, y.Expr)
	case UnaryExpr:
		y, ok := b.(UnaryExpr)
		return ok && x.Op == y.Op && Equal(x.Expr, y.Expr)
	case BinaryExpr:
		y, ok := b.(BinaryExpr)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case ScalarFunctionExpr:
		y, ok := b.(ScalarFunctionExpr)
		return ok && x.Op == y.Op && equalAll(x.Args, y.Args)
	case AggregateFunctionExpr:
		y, ok := b.(AggregateFunctionExpr)
		return ok && x.Op == y.Op && x.Distinct == y.Distinct && equalAll(x.Args, y.Args)
	case SortExpr:
		y, ok := b.(SortExpr)
		return ok && x.Asc == y.Asc && x.NullsFirst == y.NullsFirst && Equal(x.Expr, y.Expr)
	case CastExpr:
		y, ok := b.(CastExpr)
		return ok && x.DataType.Equal(y.DataType) && Equal(x.Expr, y.Expr)
	case WildcardExpr:
		_, ok := b.(WildcardExpr)
		return ok
	case ExistsExpr:
		y, ok := b.(ExistsExpr)
		if !ok {
			return false
		}
		if x.Plan == nil || y.Plan == nil {
			return x.Plan == nil && y.Plan == nil
		}
		return x.Plan.String() == y.Plan.String() && x.Plan.Schema().Equal(y.Plan.Schema())
	}
	return false
}

func equalAll(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// contains reports whether exprs holds an expression equal to e.
func contains(exprs []Expression, e Expression) bool {
	for _, x := range exprs {
		if Equal(x, e) {
			return true
		}
	}
	return false
}

// children returns the direct sub-expressions of e.
func children(e Expression) []Expression {
	switch x := e.(type) {
	case AliasExpr:
		return []Expression{x.Expr}
	case UnaryExpr:
		return []Expression{x.Expr}
	case BinaryExpr:
		return []Expression{x.Left, x.Right}
	case ScalarFunctionExpr:
		return x.Args
	case AggregateFunctionExpr:
		return x.Args
	case SortExpr:
		return []Expression{x.Expr}
	case CastExpr:
		return []Expression{x.Expr}
	}
	return nil
}
