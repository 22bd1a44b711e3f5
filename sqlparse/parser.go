// Package sqlparse turns single-table SELECT statements into planner
// expressions.
package sqlparse

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/zhaox1n/datafuse/aggregates"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/trace"
)

// Query is a parsed SELECT. Limit is -1 when absent.
type Query struct {
	SQL        string
	Database   string
	Table      string
	Projection []planners.Expression
	Where      planners.Expression
	GroupBy    []planners.Expression
	Having     planners.Expression
	OrderBy    []planners.Expression
	Limit      int
}

// HasAggregation reports whether the query groups or aggregates.
func (q *Query) HasAggregation() bool {
	if len(q.GroupBy) > 0 {
		return true
	}
	exprs := append([]planners.Expression{}, q.Projection...)
	if q.Having != nil {
		exprs = append(exprs, q.Having)
	}
	return len(planners.FindAggregateExprs(exprs)) > 0
}

type Parser struct {
	aggregates *aggregates.Factory
}

func NewParser(aggs *aggregates.Factory) *Parser {
	if aggs == nil {
		aggs = aggregates.Default()
	}
	return &Parser{aggregates: aggs}
}

// Parse accepts exactly one SELECT statement over at most one table.
func (p *Parser) Parse(sql string) (*Query, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse SQL"), errorcode.ErrSyntaxException)
	}
	if len(result.Stmts) != 1 {
		return nil, errorcode.SyntaxException("Expected one statement, found %d", len(result.Stmts))
	}
	stmt := result.Stmts[0].Stmt.GetSelectStmt()
	if stmt == nil {
		return nil, errorcode.SyntaxException("Only SELECT statements are supported")
	}
	q, err := p.parseSelect(stmt)
	if err != nil {
		return nil, err
	}
	q.SQL = sql
	trace.GetTracer().Debug(trace.ComponentParser, "Parsed query", trace.Context(
		"table", q.Table,
		"projection", planners.FormatExprs(q.Projection),
		"group_by", planners.FormatExprs(q.GroupBy),
	))
	return q, nil
}

// ParseExpr parses a single scalar or aggregate expression.
func (p *Parser) ParseExpr(text string) (planners.Expression, error) {
	q, err := p.Parse("SELECT " + text)
	if err != nil {
		return nil, err
	}
	if len(q.Projection) != 1 {
		return nil, errorcode.SyntaxException("Expected one expression in %q", text)
	}
	return q.Projection[0], nil
}

func (p *Parser) parseSelect(stmt *pg_query.SelectStmt) (*Query, error) {
	if stmt.Op != pg_query.SetOperation_SETOP_NONE {
		return nil, errorcode.SyntaxException("Set operations are not supported")
	}
	if stmt.WithClause != nil {
		return nil, errorcode.SyntaxException("WITH is not supported")
	}
	if len(stmt.DistinctClause) > 0 {
		return nil, errorcode.SyntaxException("SELECT DISTINCT is not supported")
	}
	if stmt.LimitOffset != nil {
		return nil, errorcode.SyntaxException("OFFSET is not supported")
	}

	q := &Query{Limit: -1}
	if err := p.parseFrom(stmt.FromClause, q); err != nil {
		return nil, err
	}

	for _, target := range stmt.TargetList {
		res := target.GetResTarget()
		if res == nil {
			return nil, errorcode.SyntaxException("Unexpected select target")
		}
		e, err := p.expr(res.Val)
		if err != nil {
			return nil, err
		}
		if res.Name != "" {
			e = planners.Alias(res.Name, e)
		}
		q.Projection = append(q.Projection, e)
	}

	var err error
	if stmt.WhereClause != nil {
		if q.Where, err = p.expr(stmt.WhereClause); err != nil {
			return nil, err
		}
	}
	for _, node := range stmt.GroupClause {
		e, err := p.groupExpr(node, q.Projection)
		if err != nil {
			return nil, err
		}
		q.GroupBy = append(q.GroupBy, e)
	}
	if stmt.HavingClause != nil {
		if q.Having, err = p.expr(stmt.HavingClause); err != nil {
			return nil, err
		}
	}
	for _, node := range stmt.SortClause {
		e, err := p.sortExpr(node)
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, e)
	}
	if stmt.LimitCount != nil {
		c := stmt.LimitCount.GetAConst()
		if c == nil || c.GetIval() == nil || c.GetIval().Ival < 0 {
			return nil, errorcode.SyntaxException("LIMIT must be a non-negative integer")
		}
		q.Limit = int(c.GetIval().Ival)
	}
	return q, nil
}

func (p *Parser) parseFrom(from []*pg_query.Node, q *Query) error {
	switch len(from) {
	case 0:
		return nil
	case 1:
	default:
		return errorcode.SyntaxException("Only one table is supported in FROM")
	}
	rv := from[0].GetRangeVar()
	if rv == nil {
		return errorcode.SyntaxException("FROM must name a table")
	}
	q.Database = rv.Schemaname
	q.Table = rv.Relname
	return nil
}

// groupExpr accepts expressions and 1-based projection ordinals.
func (p *Parser) groupExpr(node *pg_query.Node, projection []planners.Expression) (planners.Expression, error) {
	if c := node.GetAConst(); c != nil && c.GetIval() != nil {
		pos := int(c.GetIval().Ival)
		if pos < 1 || pos > len(projection) {
			return nil, errorcode.SyntaxException("GROUP BY position %d is not in select list", pos)
		}
		return planners.UnwrapAliasExprs(projection[pos-1])
	}
	return p.expr(node)
}

func (p *Parser) sortExpr(node *pg_query.Node) (planners.Expression, error) {
	sb := node.GetSortBy()
	if sb == nil {
		return nil, errorcode.SyntaxException("Unexpected ORDER BY item")
	}
	e, err := p.expr(sb.Node)
	if err != nil {
		return nil, err
	}
	asc := sb.SortbyDir != pg_query.SortByDir_SORTBY_DESC
	nullsFirst := !asc
	switch sb.SortbyNulls {
	case pg_query.SortByNulls_SORTBY_NULLS_FIRST:
		nullsFirst = true
	case pg_query.SortByNulls_SORTBY_NULLS_LAST:
		nullsFirst = false
	}
	return planners.Sort(e, asc, nullsFirst), nil
}

func (p *Parser) expr(node *pg_query.Node) (planners.Expression, error) {
	if node == nil {
		return nil, errorcode.SyntaxException("Missing expression")
	}
	switch {
	case node.GetColumnRef() != nil:
		return columnRef(node.GetColumnRef())
	case node.GetAConst() != nil:
		v, err := constant(node.GetAConst())
		if err != nil {
			return nil, err
		}
		return planners.Lit(v), nil
	case node.GetAExpr() != nil:
		return p.aExpr(node.GetAExpr())
	case node.GetBoolExpr() != nil:
		return p.boolExpr(node.GetBoolExpr())
	case node.GetFuncCall() != nil:
		return p.funcCall(node.GetFuncCall())
	case node.GetTypeCast() != nil:
		tc := node.GetTypeCast()
		inner, err := p.expr(tc.Arg)
		if err != nil {
			return nil, err
		}
		t, err := castType(tc.TypeName)
		if err != nil {
			return nil, err
		}
		return planners.Cast(inner, t), nil
	case node.GetAStar() != nil:
		return planners.Wildcard(), nil
	case node.GetSubLink() != nil:
		return nil, errorcode.SyntaxException("Subqueries are not supported")
	case node.GetNullTest() != nil:
		return nil, errorcode.SyntaxException("IS [NOT] NULL is not supported")
	}
	return nil, errorcode.SyntaxException("Unsupported expression: %T", node.GetNode())
}

func columnRef(ref *pg_query.ColumnRef) (planners.Expression, error) {
	if len(ref.Fields) == 0 {
		return nil, errorcode.SyntaxException("Empty column reference")
	}
	last := ref.Fields[len(ref.Fields)-1]
	if last.GetAStar() != nil {
		return planners.Wildcard(), nil
	}
	if s := last.GetString_(); s != nil {
		return planners.Col(s.Sval), nil
	}
	return nil, errorcode.SyntaxException("Unsupported column reference")
}

// constant maps literals to Int64, Float64, Utf8, Boolean or NULL. Integers
// too large for the parser's 32-bit form arrive as float text.
func constant(c *pg_query.A_Const) (dv.DataValue, error) {
	if c.Isnull {
		return dv.Null(), nil
	}
	switch {
	case c.GetIval() != nil:
		return dv.Int64(int64(c.GetIval().Ival)), nil
	case c.GetFval() != nil:
		text := c.GetFval().Fval
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return dv.Int64(i), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return dv.Null(), errorcode.SyntaxException("Bad numeric literal %s", text)
		}
		return dv.Float64(f), nil
	case c.GetSval() != nil:
		return dv.Utf8(c.GetSval().Sval), nil
	case c.GetBoolval() != nil:
		return dv.Boolean(c.GetBoolval().Boolval), nil
	}
	return dv.Null(), errorcode.SyntaxException("Unsupported literal")
}

func operatorName(names []*pg_query.Node) string {
	if len(names) == 0 {
		return ""
	}
	if s := names[len(names)-1].GetString_(); s != nil {
		return s.Sval
	}
	return ""
}

var binaryOperators = map[string]string{
	"~~":  "like",
	"!~~": "not like",
	"||":  "concat",
}

func (p *Parser) aExpr(a *pg_query.A_Expr) (planners.Expression, error) {
	op := operatorName(a.Name)
	switch a.Kind {
	case pg_query.A_Expr_Kind_AEXPR_IN:
		return p.inList(a, op)
	case pg_query.A_Expr_Kind_AEXPR_BETWEEN, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		return p.between(a)
	case pg_query.A_Expr_Kind_AEXPR_NOT_DISTINCT:
		op = "<=>"
	case pg_query.A_Expr_Kind_AEXPR_DISTINCT:
		l, r, err := p.operands(a)
		if err != nil {
			return nil, err
		}
		return planners.Unary("not", planners.Binary(l, "<=>", r)), nil
	case pg_query.A_Expr_Kind_AEXPR_OP, pg_query.A_Expr_Kind_AEXPR_LIKE:
	default:
		return nil, errorcode.SyntaxException("Unsupported operator kind %s", a.Kind)
	}
	if mapped, ok := binaryOperators[op]; ok {
		op = mapped
	}

	if a.Lexpr == nil {
		operand, err := p.expr(a.Rexpr)
		if err != nil {
			return nil, err
		}
		return planners.Unary(op, operand), nil
	}
	l, r, err := p.operands(a)
	if err != nil {
		return nil, err
	}
	if op == "concat" {
		return planners.Func(op, l, r), nil
	}
	return planners.Binary(l, op, r), nil
}

func (p *Parser) operands(a *pg_query.A_Expr) (planners.Expression, planners.Expression, error) {
	l, err := p.expr(a.Lexpr)
	if err != nil {
		return nil, nil, err
	}
	r, err := p.expr(a.Rexpr)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// inList expands "x IN (a, b)" to "(x = a) or (x = b)" and
// "x NOT IN (a, b)" to "(x <> a) and (x <> b)".
func (p *Parser) inList(a *pg_query.A_Expr, op string) (planners.Expression, error) {
	list := a.Rexpr.GetList()
	if list == nil || len(list.Items) == 0 {
		return nil, errorcode.SyntaxException("IN requires a value list")
	}
	l, err := p.expr(a.Lexpr)
	if err != nil {
		return nil, err
	}
	join := "or"
	if op == "<>" {
		join = "and"
	}
	var out planners.Expression
	for _, item := range list.Items {
		r, err := p.expr(item)
		if err != nil {
			return nil, err
		}
		cmp := planners.Binary(l, op, r)
		if out == nil {
			out = cmp
		} else {
			out = planners.Binary(out, join, cmp)
		}
	}
	return out, nil
}

func (p *Parser) between(a *pg_query.A_Expr) (planners.Expression, error) {
	list := a.Rexpr.GetList()
	if list == nil || len(list.Items) != 2 {
		return nil, errorcode.SyntaxException("BETWEEN requires two bounds")
	}
	x, err := p.expr(a.Lexpr)
	if err != nil {
		return nil, err
	}
	lo, err := p.expr(list.Items[0])
	if err != nil {
		return nil, err
	}
	hi, err := p.expr(list.Items[1])
	if err != nil {
		return nil, err
	}
	if a.Kind == pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN {
		return planners.Binary(planners.Binary(x, "<", lo), "or", planners.Binary(x, ">", hi)), nil
	}
	return planners.Binary(planners.Binary(x, ">=", lo), "and", planners.Binary(x, "<=", hi)), nil
}

func (p *Parser) boolExpr(b *pg_query.BoolExpr) (planners.Expression, error) {
	args := make([]planners.Expression, len(b.Args))
	for i, node := range b.Args {
		e, err := p.expr(node)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	switch b.Boolop {
	case pg_query.BoolExprType_NOT_EXPR:
		if len(args) != 1 {
			return nil, errorcode.SyntaxException("NOT takes one operand")
		}
		return planners.Unary("not", args[0]), nil
	case pg_query.BoolExprType_AND_EXPR, pg_query.BoolExprType_OR_EXPR:
		op := "and"
		if b.Boolop == pg_query.BoolExprType_OR_EXPR {
			op = "or"
		}
		out := args[0]
		for _, arg := range args[1:] {
			out = planners.Binary(out, op, arg)
		}
		return out, nil
	}
	return nil, errorcode.SyntaxException("Unsupported boolean operator %s", b.Boolop)
}

func (p *Parser) funcCall(fc *pg_query.FuncCall) (planners.Expression, error) {
	name := strings.ToLower(operatorName(fc.Funcname))
	if name == "" {
		return nil, errorcode.SyntaxException("Unnamed function call")
	}
	if fc.Over != nil {
		return nil, errorcode.SyntaxException("Window functions are not supported")
	}
	args := make([]planners.Expression, 0, len(fc.Args))
	for _, node := range fc.Args {
		e, err := p.expr(node)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if p.aggregates.Check(name) {
		// count(*) carries no argument.
		if fc.AggStar {
			args = nil
		}
		return planners.Aggregate(name, fc.AggDistinct, args...), nil
	}
	if fc.AggStar || fc.AggDistinct {
		return nil, errorcode.UnknownAggregateFunction("Unsupported AggregateFunction: %s", name)
	}
	return planners.Func(name, args...), nil
}

var castTypes = map[string]dv.DataType{
	"bool":      dv.BooleanType,
	"boolean":   dv.BooleanType,
	"tinyint":   dv.Int8Type,
	"int2":      dv.Int16Type,
	"smallint":  dv.Int16Type,
	"int16":     dv.Int16Type,
	"int4":      dv.Int32Type,
	"int":       dv.Int32Type,
	"integer":   dv.Int32Type,
	"int32":     dv.Int32Type,
	"int8":      dv.Int64Type,
	"bigint":    dv.Int64Type,
	"int64":     dv.Int64Type,
	"uint8":     dv.UInt8Type,
	"uint16":    dv.UInt16Type,
	"uint32":    dv.UInt32Type,
	"uint64":    dv.UInt64Type,
	"float4":    dv.Float32Type,
	"real":      dv.Float32Type,
	"float32":   dv.Float32Type,
	"float8":    dv.Float64Type,
	"float64":   dv.Float64Type,
	"text":      dv.Utf8Type,
	"varchar":   dv.Utf8Type,
	"bpchar":    dv.Utf8Type,
	"string":    dv.Utf8Type,
	"utf8":      dv.Utf8Type,
	"bytea":     dv.BinaryType,
	"binary":    dv.BinaryType,
	"date":      dv.Date32Type,
	"date32":    dv.Date32Type,
	"timestamp": dv.Date64Type,
	"date64":    dv.Date64Type,
}

func castType(tn *pg_query.TypeName) (dv.DataType, error) {
	if tn == nil {
		return dv.NullType, errorcode.SyntaxException("Missing cast type")
	}
	name := strings.ToLower(operatorName(tn.Names))
	t, ok := castTypes[name]
	if !ok {
		return dv.NullType, errorcode.IllegalDataType("Unsupported cast type %s", name)
	}
	if len(tn.ArrayBounds) > 0 {
		return dv.NullType, errorcode.IllegalDataType("Unsupported cast to array of %s", name)
	}
	return t, nil
}
