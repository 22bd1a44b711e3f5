package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/catalog"
	"github.com/zhaox1n/datafuse/codec"
	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/errorcode"
)

type employee struct {
	Name   string   `parquet:"name"`
	Dept   string   `parquet:"dept"`
	Salary int64    `parquet:"salary"`
	Bonus  *float64 `parquet:"bonus,optional"`
}

func newTestEngine(t *testing.T) *QueryEngine {
	t.Helper()
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "employees.parquet"))
	require.NoError(t, err)
	bonus := 100.0
	w := parquet.NewGenericWriter[employee](f)
	_, err = w.Write([]employee{
		{Name: "ann", Dept: "eng", Salary: 120, Bonus: &bonus},
		{Name: "bob", Dept: "ops", Salary: 80},
		{Name: "cid", Dept: "eng", Salary: 100},
		{Name: "dee", Dept: "sales", Salary: 90, Bonus: &bonus},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	settings := config.DefaultSettings()
	settings.BatchSize = 2
	e, err := NewQueryEngine(dir, settings)
	require.NoError(t, err)
	return e
}

func TestExecuteGroupBy(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, []string{"employees"}, e.ListTables())

	result, err := e.Execute(context.Background(),
		"SELECT dept, count(*) AS n, max(salary) AS top FROM employees GROUP BY dept ORDER BY dept")
	require.NoError(t, err)
	require.Equal(t, 3, result.NumRows())

	rows := result.Rows()
	assert.Equal(t, map[string]interface{}{"dept": "eng", "n": uint64(2), "top": int64(120)}, rows[0])
	assert.Equal(t, "ops", rows[1]["dept"])
	assert.Equal(t, "sales", rows[2]["dept"])
	assert.Contains(t, result.String(), "eng")
}

func TestExecuteFilterNullable(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Execute(context.Background(), "SELECT name FROM employees WHERE bonus > 0")
	require.NoError(t, err)
	names := make([]interface{}, 0)
	for _, row := range result.Rows() {
		names = append(names, row["name"])
	}
	assert.Equal(t, []interface{}{"ann", "dee"}, names)
}

func TestExecuteErrors(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Execute(context.Background(), "SELECT * FROM nowhere")
	assert.True(t, errors.Is(err, catalog.ErrUnknownTable))

	_, err = e.Execute(context.Background(), "SELECT FROM WHERE")
	assert.True(t, errors.Is(err, errorcode.ErrSyntaxException))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Execute(ctx, "SELECT name FROM employees")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecuteToJSON(t *testing.T) {
	e := newTestEngine(t)
	out, err := e.ExecuteToJSON(context.Background(), "SELECT upper(name) AS n FROM employees LIMIT 1")
	require.NoError(t, err)

	var decoded struct {
		Count int                      `json:"count"`
		Rows  []map[string]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Count)
	assert.Equal(t, "ANN", decoded.Rows[0]["n"])
}

func TestGetTableInfo(t *testing.T) {
	e := newTestEngine(t)
	info, err := e.GetTableInfo("employees")
	require.NoError(t, err)
	assert.Contains(t, info, "Table: employees (4 rows)")
	assert.Contains(t, info, "  - salary (Int64)")
	assert.Contains(t, info, "  - bonus (Float64, nullable)")
}

func TestExportRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "out.dfb")

	n, err := e.Export(context.Background(), "SELECT name, salary * 2 AS double FROM employees", path, codec.CompressionZstd)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, err := e.ReadExport(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "[name:Utf8, double:Int64]", result.Schema.String())
	assert.Equal(t, 4, result.NumRows())
	assert.Equal(t, int64(240), result.Rows()[0]["double"])

	n, err = e.Export(context.Background(), "SELECT name FROM employees WHERE salary > 1000", path, codec.CompressionSnappy)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	result, err = e.ReadExport(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumRows())
}
