package planners

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// ReplaceFunc returns a replacement for e, or nil to keep e and rewrite its
// children.
type ReplaceFunc func(e Expression) (Expression, error)

// CloneWithReplacement rebuilds e top-down. Each node is offered to fn
// before its children; a replaced node is not descended into.
func CloneWithReplacement(e Expression, fn ReplaceFunc) (Expression, error) {
	replaced, err := fn(e)
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		return replaced, nil
	}

	switch x := e.(type) {
	case AliasExpr:
		inner, err := CloneWithReplacement(x.Expr, fn)
		if err != nil {
			return nil, err
		}
		return AliasExpr{Alias: x.Alias, Expr: inner}, nil
	case UnaryExpr:
		inner, err := CloneWithReplacement(x.Expr, fn)
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: x.Op, Expr: inner}, nil
	case BinaryExpr:
		left, err := CloneWithReplacement(x.Left, fn)
		if err != nil {
			return nil, err
		}
		right, err := CloneWithReplacement(x.Right, fn)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Left: left, Op: x.Op, Right: right}, nil
	case ScalarFunctionExpr:
		args, err := cloneAll(x.Args, fn)
		if err != nil {
			return nil, err
		}
		return ScalarFunctionExpr{Op: x.Op, Args: args}, nil
	case AggregateFunctionExpr:
		args, err := cloneAll(x.Args, fn)
		if err != nil {
			return nil, err
		}
		return AggregateFunctionExpr{Op: x.Op, Distinct: x.Distinct, Args: args}, nil
	case SortExpr:
		inner, err := CloneWithReplacement(x.Expr, fn)
		if err != nil {
			return nil, err
		}
		return SortExpr{Expr: inner, Asc: x.Asc, NullsFirst: x.NullsFirst}, nil
	case CastExpr:
		inner, err := CloneWithReplacement(x.Expr, fn)
		if err != nil {
			return nil, err
		}
		return CastExpr{Expr: inner, DataType: x.DataType}, nil
	}
	return e, nil
}

func cloneAll(exprs []Expression, fn ReplaceFunc) ([]Expression, error) {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		c, err := CloneWithReplacement(e, fn)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// ExpandWildcard turns "*" into one column expression per schema field.
// Other expressions are returned as the only element.
func ExpandWildcard(e Expression, schema *dv.DataSchema) []Expression {
	if _, ok := e.(WildcardExpr); !ok {
		return []Expression{e}
	}
	out := make([]Expression, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		out = append(out, Col(f.Name))
	}
	return out
}

// findExprs collects nodes passing test in depth-first order without
// duplicates. A matching node is not searched further.
func findExprs(exprs []Expression, test func(Expression) bool) []Expression {
	var found []Expression
	var visit func(e Expression)
	visit = func(e Expression) {
		if test(e) {
			if !contains(found, e) {
				found = append(found, e)
			}
			return
		}
		for _, c := range children(e) {
			visit(c)
		}
	}
	for _, e := range exprs {
		visit(e)
	}
	return found
}

func FindAggregateExprs(exprs []Expression) []Expression {
	return findExprs(exprs, func(e Expression) bool {
		_, ok := e.(AggregateFunctionExpr)
		return ok
	})
}

func FindColumnExprs(exprs []Expression) []Expression {
	return findExprs(exprs, func(e Expression) bool {
		_, ok := e.(ColumnExpr)
		return ok
	})
}

// ExpandAggregateArgExprs replaces every aggregate by its arguments:
// [b, sum(a, b)] becomes [b, a].
func ExpandAggregateArgExprs(exprs []Expression) []Expression {
	var out []Expression
	add := func(e Expression) {
		if !contains(out, e) {
			out = append(out, e)
		}
	}
	for _, e := range exprs {
		if agg, ok := e.(AggregateFunctionExpr); ok {
			for _, a := range agg.Args {
				add(a)
			}
			continue
		}
		add(e)
	}
	return out
}

// ExprAsColumnExpr references the column that e computes.
func ExprAsColumnExpr(e Expression) Expression {
	if c, ok := e.(ColumnExpr); ok {
		return c
	}
	return Col(ColumnName(e))
}

// RebaseExpr rewrites e so that sub-expressions already present in base
// become column references, e.g. "(a + b) < 1" over base [(a + b)]
// reads column "(a + b)".
func RebaseExpr(e Expression, base []Expression) (Expression, error) {
	return CloneWithReplacement(e, func(n Expression) (Expression, error) {
		if contains(base, n) {
			return ExprAsColumnExpr(n), nil
		}
		return nil, nil
	})
}

// RebaseExprFromInput rewrites sub-expressions already computed by an
// upstream stage into column references. Sort and alias nodes are looked
// through. Literals are never rebased: their text may collide with a
// column name.
func RebaseExprFromInput(e Expression, schema *dv.DataSchema) (Expression, error) {
	return CloneWithReplacement(e, func(n Expression) (Expression, error) {
		switch n.(type) {
		case SortExpr, ColumnExpr, AliasExpr, LiteralExpr:
			return nil, nil
		}
		if schema.HasField(ColumnName(n)) {
			return ExprAsColumnExpr(n), nil
		}
		return nil, nil
	})
}

func SortToInnerExpr(e Expression) Expression {
	if s, ok := e.(SortExpr); ok {
		return s.Expr
	}
	return e
}

// FindColumnsNotSatisfyExprs returns the first column referenced by exprs
// that is not in columns. columns must hold column expressions only.
func FindColumnsNotSatisfyExprs(columns, exprs []Expression) (Expression, bool, error) {
	for _, c := range columns {
		if _, ok := c.(ColumnExpr); !ok {
			return nil, false, errorcode.LogicalError("Column expressions are required, got %s", c)
		}
	}
	for _, e := range FindColumnExprs(exprs) {
		if !contains(columns, e) {
			return e, true, nil
		}
	}
	return nil, false, nil
}

// ExtractAliases maps each alias name to the expression it names.
func ExtractAliases(exprs []Expression) map[string]Expression {
	aliases := make(map[string]Expression)
	for _, e := range exprs {
		if a, ok := e.(AliasExpr); ok {
			aliases[a.Alias] = a.Expr
		}
	}
	return aliases
}

// ResolveAliasesToExprs replaces columns that name an alias by the aliased
// expression.
func ResolveAliasesToExprs(e Expression, aliases map[string]Expression) (Expression, error) {
	return CloneWithReplacement(e, func(n Expression) (Expression, error) {
		if c, ok := n.(ColumnExpr); ok {
			if aliased, ok := aliases[c.Name]; ok {
				return aliased, nil
			}
		}
		return nil, nil
	})
}

// UnwrapAliasExprs strips aliases: "(a + b) as c" becomes "(a + b)".
func UnwrapAliasExprs(e Expression) (Expression, error) {
	return CloneWithReplacement(e, func(n Expression) (Expression, error) {
		if a, ok := n.(AliasExpr); ok {
			return a.Expr, nil
		}
		return nil, nil
	})
}

// CheckAggregateProjection rebases the projection of an aggregating query
// onto the group by and aggregate outputs and rejects columns that are
// neither grouped nor aggregated.
func CheckAggregateProjection(groupBy, aggrs, projection []Expression) ([]Expression, error) {
	base := make([]Expression, 0, len(groupBy)+len(aggrs))
	base = append(base, groupBy...)
	base = append(base, aggrs...)

	columns := make([]Expression, len(base))
	for i, e := range base {
		columns[i] = ExprAsColumnExpr(e)
	}

	rebased := make([]Expression, len(projection))
	for i, e := range projection {
		r, err := RebaseExpr(e, base)
		if err != nil {
			return nil, err
		}
		rebased[i] = r
	}

	missing, found, err := FindColumnsNotSatisfyExprs(columns, rebased)
	if err != nil {
		return nil, err
	}
	if found {
		return nil, errorcode.IllegalAggregateExp(
			"Column `%s` is not under aggregate function and not in GROUP BY: While processing %s",
			missing, FormatExprs(rebased))
	}
	return rebased, nil
}
