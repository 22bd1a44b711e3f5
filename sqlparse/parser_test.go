package sqlparse

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/vectorized"
)

func TestParseSelect(t *testing.T) {
	q, err := NewParser(nil).Parse(
		"SELECT a + 1 AS x, count(*), sum(DISTINCT b) FROM db1.t WHERE a > 2 AND NOT b < 0 GROUP BY 1 ORDER BY x DESC LIMIT 10")
	require.NoError(t, err)

	assert.Equal(t, "db1", q.Database)
	assert.Equal(t, "t", q.Table)
	assert.Equal(t, "[(a + 1) as x, count(), sum(distinct b)]", planners.FormatExprs(q.Projection))
	assert.Equal(t, "((a > 2) and (not (b < 0)))", q.Where.String())
	assert.Equal(t, "[(a + 1)]", planners.FormatExprs(q.GroupBy))
	require.Len(t, q.OrderBy, 1)
	assert.True(t, planners.Equal(planners.Sort(planners.Col("x"), false, true), q.OrderBy[0]))
	assert.Equal(t, 10, q.Limit)
	assert.True(t, q.HasAggregation())
}

func TestParseExpr(t *testing.T) {
	p := NewParser(nil)
	for _, tc := range []struct {
		sql  string
		want string
	}{
		{"a IN (1, 2)", "((a = 1) or (a = 2))"},
		{"a NOT IN (1, 2)", "((a <> 1) and (a <> 2))"},
		{"a BETWEEN 1 AND 3", "((a >= 1) and (a <= 3))"},
		{"a NOT BETWEEN 1 AND 3", "((a < 1) or (a > 3))"},
		{"name LIKE 'x%'", "(name like x%)"},
		{"name NOT LIKE 'x%'", "(name not like x%)"},
		{"-a", "(- a)"},
		{"a IS NOT DISTINCT FROM b", "(a <=> b)"},
		{"CAST(a AS BIGINT)", "cast(a as Int64)"},
		{"a::text", "cast(a as Utf8)"},
		{"'x' || name", "concat(x, name)"},
		{"UPPER(name)", "upper(name)"},
		{"database()", "database()"},
		{"10000000000", "10000000000"},
		{"1.5", "1.5"},
		{"true", "true"},
		{"NULL", "NULL"},
		{"count(DISTINCT a)", "count(distinct a)"},
		{"a % 3 = 0 OR b = 1", "(((a % 3) = 0) or (b = 1))"},
		{"t.a", "a"},
	} {
		t.Run(tc.sql, func(t *testing.T) {
			e, err := p.ParseExpr(tc.sql)
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.String())
		})
	}
}

func TestParseLiteralTypes(t *testing.T) {
	p := NewParser(nil)
	e, err := p.ParseExpr("7")
	require.NoError(t, err)
	assert.Equal(t, dv.Int64Type, e.(planners.LiteralExpr).Value.DataType())

	e, err = p.ParseExpr("'s'")
	require.NoError(t, err)
	assert.Equal(t, dv.Utf8Type, e.(planners.LiteralExpr).Value.DataType())
}

func TestParseErrors(t *testing.T) {
	p := NewParser(nil)
	for _, sql := range []string{
		"SELEC 1",
		"INSERT INTO t VALUES (1)",
		"SELECT a FROM t1, t2",
		"SELECT DISTINCT a FROM t",
		"SELECT a FROM t OFFSET 2",
		"SELECT a FROM t WHERE a IS NULL",
		"SELECT a FROM t GROUP BY 2",
		"SELECT 1; SELECT 2",
	} {
		_, err := p.Parse(sql)
		assert.True(t, errors.Is(err, errorcode.ErrSyntaxException), "%s: %v", sql, err)
	}

	_, err := p.ParseExpr("CAST(a AS interval)")
	assert.True(t, errors.Is(err, errorcode.ErrIllegalDataType))
}

func testQueryContext() *vectorized.QueryContext {
	s := config.DefaultSettings()
	s.Database = "db1"
	s.GroupParallelism = 2
	return vectorized.NewQueryContext(s, planners.DefaultResolver())
}

func salesInput(t *testing.T) vectorized.Operator {
	t.Helper()
	schema := dv.NewDataSchema(
		dv.NewDataField("k", dv.Utf8Type, false),
		dv.NewDataField("v", dv.Int64Type, false),
	)
	first, err := datablocks.Create(schema, []dv.DataColumn{
		dv.ArrayColumn(dv.NewUtf8Array("x", "y", "x")),
		dv.ArrayColumn(dv.NewInt64Array(1, 2, 3)),
	})
	require.NoError(t, err)
	second, err := datablocks.Create(schema, []dv.DataColumn{
		dv.ArrayColumn(dv.NewUtf8Array("z", "y", "x")),
		dv.ArrayColumn(dv.NewInt64Array(4, 5, 6)),
	})
	require.NoError(t, err)
	return vectorized.NewBlocksOperator(schema, first, second)
}

func run(t *testing.T, sql string, input vectorized.Operator) *datablocks.DataBlock {
	t.Helper()
	q, err := NewParser(nil).Parse(sql)
	require.NoError(t, err)
	op, err := BuildPipeline(testQueryContext(), q, input)
	require.NoError(t, err)
	blocks, err := vectorized.Collect(context.Background(), op)
	require.NoError(t, err)
	block, err := datablocks.ConcatBlocks(blocks)
	require.NoError(t, err)
	return block
}

func values(t *testing.T, block *datablocks.DataBlock, name string) []interface{} {
	t.Helper()
	col, err := block.TryColumnByName(name)
	require.NoError(t, err)
	out := make([]interface{}, col.Len())
	for i := range out {
		out[i] = col.Get(i).Raw()
	}
	return out
}

func TestPipelineGroupOrderLimit(t *testing.T) {
	block := run(t, "SELECT k, count(*) AS c, sum(v) FROM t WHERE v > 1 GROUP BY k ORDER BY c DESC, k LIMIT 2", salesInput(t))

	assert.Equal(t, "[k:Utf8, c:UInt64, sum(v):Int64 (nullable)]", block.Schema().String())
	assert.Equal(t, []interface{}{"x", "y"}, values(t, block, "k"))
	assert.Equal(t, []interface{}{uint64(2), uint64(2)}, values(t, block, "c"))
	assert.Equal(t, []interface{}{int64(9), int64(7)}, values(t, block, "sum(v)"))
}

func TestPipelineHaving(t *testing.T) {
	block := run(t, "SELECT k FROM t GROUP BY k HAVING sum(v) > 8", salesInput(t))
	assert.Equal(t, []interface{}{"x"}, values(t, block, "k"))
}

func TestPipelineOrderByUnselectedColumn(t *testing.T) {
	block := run(t, "SELECT v * 2 AS d FROM t WHERE k = 'x' ORDER BY v DESC", salesInput(t))
	assert.Equal(t, []interface{}{int64(12), int64(6), int64(2)}, values(t, block, "d"))
}

func TestPipelineWithoutFrom(t *testing.T) {
	block := run(t, "SELECT 1 + 2 AS three, database()", OneRowInput())
	assert.Equal(t, []interface{}{int64(3)}, values(t, block, "three"))
	assert.Equal(t, []interface{}{"db1"}, values(t, block, "database()"))
}

func TestPipelineEmptyGlobalAggregate(t *testing.T) {
	block := run(t, "SELECT count(*) FROM t WHERE v > 100", salesInput(t))
	assert.Equal(t, []interface{}{uint64(0)}, values(t, block, "count()"))
}

func TestPipelineErrors(t *testing.T) {
	p := NewParser(nil)
	for sql, kind := range map[string]error{
		"SELECT v FROM t GROUP BY k":         errorcode.ErrIllegalAggregateExp,
		"SELECT k FROM t WHERE count(*) > 1": errorcode.ErrIllegalAggregateExp,
		"SELECT k FROM t HAVING k = 'x'":     errorcode.ErrIllegalAggregateExp,
		"SELECT nope FROM t":                 errorcode.ErrUnknownColumn,
		"SELECT median(v) FROM t":            errorcode.ErrUnknownFunction,
	} {
		q, err := p.Parse(sql)
		require.NoError(t, err, sql)
		_, err = BuildPipeline(testQueryContext(), q, salesInput(t))
		assert.True(t, errors.Is(err, kind), "%s: %v", sql, err)
	}
}
