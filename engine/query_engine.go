// Package engine runs SQL over registered parquet tables.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/zhaox1n/datafuse/catalog"
	"github.com/zhaox1n/datafuse/codec"
	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/sqlparse"
	"github.com/zhaox1n/datafuse/trace"
	"github.com/zhaox1n/datafuse/vectorized"
)

// QueryResult holds the materialized output of one query.
type QueryResult struct {
	Query    string
	Schema   *dv.DataSchema
	Blocks   []*datablocks.DataBlock
	Duration time.Duration
}

func (r *QueryResult) NumRows() int {
	n := 0
	for _, b := range r.Blocks {
		n += b.NumRows()
	}
	return n
}

// Rows returns every row as a column name to value map.
func (r *QueryResult) Rows() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, r.NumRows())
	for _, b := range r.Blocks {
		for i := 0; i < b.NumRows(); i++ {
			row := make(map[string]interface{}, r.Schema.NumFields())
			for c, v := range b.Row(i) {
				row[r.Schema.Field(c).Name] = v.Raw()
			}
			out = append(out, row)
		}
	}
	return out
}

// String renders the result as a table.
func (r *QueryResult) String() string {
	if r.NumRows() == 0 {
		return "No results found"
	}
	block, err := datablocks.ConcatBlocks(r.Blocks)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return block.String()
}

type QueryEngine struct {
	settings *config.Settings
	registry *catalog.Registry
	parser   *sqlparse.Parser
	qctx     *vectorized.QueryContext
}

// NewQueryEngine registers every parquet file under dataPath as a table.
func NewQueryEngine(dataPath string, settings *config.Settings) (*QueryEngine, error) {
	if settings == nil {
		settings = config.Global()
	}
	resolver := planners.DefaultResolver()
	e := &QueryEngine{
		settings: settings,
		registry: catalog.NewRegistry(dataPath),
		parser:   sqlparse.NewParser(resolver.Aggregates()),
		qctx:     vectorized.NewQueryContext(settings, resolver),
	}
	if dataPath != "" {
		n, err := e.registry.Discover()
		if err != nil {
			return nil, err
		}
		trace.GetTracer().Info(trace.ComponentExecution, "Query engine started",
			trace.Context("data_path", dataPath, "tables", n))
	}
	return e, nil
}

func (e *QueryEngine) Registry() *catalog.Registry { return e.registry }

func (e *QueryEngine) ListTables() []string { return e.registry.ListTables() }

// Execute parses, plans and runs sql to completion.
func (e *QueryEngine) Execute(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()
	q, err := e.parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	input := sqlparse.OneRowInput()
	if q.Table != "" {
		src, err := e.registry.Open(q.Table, e.settings.BatchSize)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		input = vectorized.NewSourceOperator(src)
	}

	op, err := sqlparse.BuildPipeline(e.qctx, q, input)
	if err != nil {
		return nil, err
	}
	blocks, err := vectorized.Collect(ctx, op)
	if err != nil {
		return nil, err
	}
	result := &QueryResult{
		Query:    sql,
		Schema:   op.GetOutputSchema(),
		Blocks:   blocks,
		Duration: time.Since(start),
	}
	trace.GetTracer().Info(trace.ComponentExecution, "Query finished", trace.Context(
		"table", q.Table,
		"rows", result.NumRows(),
		"duration_ms", result.Duration.Milliseconds(),
	))
	return result, nil
}

// ExecuteToJSON runs sql and marshals its rows.
func (e *QueryEngine) ExecuteToJSON(ctx context.Context, sql string) (string, error) {
	result, err := e.Execute(ctx, sql)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(map[string]interface{}{
		"query": sql,
		"count": result.NumRows(),
		"rows":  result.Rows(),
	}, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal result to JSON")
	}
	return string(data), nil
}

// GetTableInfo describes the columns of tableName.
func (e *QueryEngine) GetTableInfo(tableName string) (string, error) {
	src, err := e.registry.Open(tableName, e.settings.BatchSize)
	if err != nil {
		return "", err
	}
	defer src.Close()

	var info strings.Builder
	fmt.Fprintf(&info, "Table: %s (%d rows)\n", tableName, src.NumRows())
	info.WriteString("Columns:\n")
	for _, f := range src.Schema().Fields() {
		nullable := ""
		if f.Nullable {
			nullable = ", nullable"
		}
		fmt.Fprintf(&info, "  - %s (%s%s)\n", f.Name, f.DataType, nullable)
	}
	return info.String(), nil
}

// Export runs sql and writes its blocks to path as a block stream. It
// returns the number of blocks written.
func (e *QueryEngine) Export(ctx context.Context, sql, path string, compression codec.CompressionType) (int, error) {
	result, err := e.Execute(ctx, sql)
	if err != nil {
		return 0, err
	}
	c, err := codec.NewCodec(compression)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := codec.NewWriter(f, c)
	blocks := result.Blocks
	if len(blocks) == 0 {
		blocks = []*datablocks.DataBlock{datablocks.Empty(result.Schema)}
	}
	for _, b := range blocks {
		if err := w.Write(b); err != nil {
			return 0, err
		}
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrapf(err, "close %s", path)
	}
	return w.Blocks(), nil
}

// ReadExport loads a block stream written by Export.
func (e *QueryEngine) ReadExport(ctx context.Context, path string) (*QueryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	c, err := codec.NewCodec(codec.CompressionNone)
	if err != nil {
		return nil, err
	}
	r, err := codec.NewReader(f, c)
	if err != nil {
		return nil, err
	}
	op := vectorized.NewSourceOperator(r)
	blocks, err := vectorized.Collect(ctx, op)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Query: path, Schema: r.Schema(), Blocks: blocks}, nil
}
