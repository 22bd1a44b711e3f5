package vectorized

import (
	"context"
	"io"
	"sort"

	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/planners"
)

// Operator is a pull based pipeline stage. Next returns io.EOF once the
// stage is exhausted.
type Operator interface {
	Next(ctx context.Context) (*datablocks.DataBlock, error)
	GetOutputSchema() *dv.DataSchema
}

// BlockReader is a source of blocks such as a parquet file.
type BlockReader interface {
	Schema() *dv.DataSchema
	Next() (*datablocks.DataBlock, error)
}

// Collect drains op.
func Collect(ctx context.Context, op Operator) ([]*datablocks.DataBlock, error) {
	var blocks []*datablocks.DataBlock
	for {
		block, err := op.Next(ctx)
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
}

type SourceOperator struct {
	reader BlockReader
}

func NewSourceOperator(reader BlockReader) *SourceOperator {
	return &SourceOperator{reader: reader}
}

func (op *SourceOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return op.reader.Next()
}

func (op *SourceOperator) GetOutputSchema() *dv.DataSchema { return op.reader.Schema() }

// BlocksOperator replays in-memory blocks.
type BlocksOperator struct {
	schema *dv.DataSchema
	blocks []*datablocks.DataBlock
	pos    int
}

func NewBlocksOperator(schema *dv.DataSchema, blocks ...*datablocks.DataBlock) *BlocksOperator {
	return &BlocksOperator{schema: schema, blocks: blocks}
}

func (op *BlocksOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if op.pos >= len(op.blocks) {
		return nil, io.EOF
	}
	op.pos++
	return op.blocks[op.pos-1], nil
}

func (op *BlocksOperator) GetOutputSchema() *dv.DataSchema { return op.schema }

// ProjectionOperator evaluates expressions over every input block.
type ProjectionOperator struct {
	input    Operator
	executor *ExpressionExecutor
}

func NewProjectionOperator(qctx *QueryContext, input Operator, exprs []planners.Expression, desc string) (*ProjectionOperator, error) {
	ex, err := NewExpressionExecutor(qctx, input.GetOutputSchema(), exprs, desc)
	if err != nil {
		return nil, err
	}
	return &ProjectionOperator{input: input, executor: ex}, nil
}

func (op *ProjectionOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	block, err := op.input.Next(ctx)
	if err != nil {
		return nil, err
	}
	return op.executor.Execute(block)
}

func (op *ProjectionOperator) GetOutputSchema() *dv.DataSchema { return op.executor.OutputSchema() }

// FilterOperator drops rows failing a predicate. Blocks left empty are
// skipped.
type FilterOperator struct {
	input  Operator
	filter *FilterExecutor
}

func NewFilterOperator(qctx *QueryContext, input Operator, predicate planners.Expression) (*FilterOperator, error) {
	f, err := NewFilterExecutor(qctx, input.GetOutputSchema(), predicate)
	if err != nil {
		return nil, err
	}
	return &FilterOperator{input: input, filter: f}, nil
}

func (op *FilterOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	for {
		block, err := op.input.Next(ctx)
		if err != nil {
			return nil, err
		}
		filtered, err := op.filter.Filter(block)
		if err != nil {
			return nil, err
		}
		if filtered.NumRows() > 0 {
			return filtered, nil
		}
	}
}

func (op *FilterOperator) GetOutputSchema() *dv.DataSchema { return op.input.GetOutputSchema() }

// AggregateOperator drains its input, aggregates it and emits a single
// block.
type AggregateOperator struct {
	input    Operator
	executor *AggregateExecutor
	done     bool
}

func NewAggregateOperator(qctx *QueryContext, input Operator, groupBy, aggrs []planners.Expression) (*AggregateOperator, error) {
	ex, err := NewAggregateExecutor(qctx, input.GetOutputSchema(), groupBy, aggrs)
	if err != nil {
		return nil, err
	}
	return &AggregateOperator{input: input, executor: ex}, nil
}

func (op *AggregateOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if op.done {
		return nil, io.EOF
	}
	op.done = true
	blocks, err := Collect(ctx, op.input)
	if err != nil {
		return nil, err
	}
	if err := op.executor.AccumulateBlocks(ctx, blocks); err != nil {
		return nil, err
	}
	return op.executor.Finish()
}

func (op *AggregateOperator) GetOutputSchema() *dv.DataSchema { return op.executor.OutputSchema() }

type sortKey struct {
	asc        bool
	nullsFirst bool
}

// SortOperator drains its input and emits it as one block ordered by the
// sort expressions. Plain expressions sort ascending with nulls last.
type SortOperator struct {
	input    Operator
	keys     []sortKey
	executor *ExpressionExecutor
	done     bool
}

func NewSortOperator(qctx *QueryContext, input Operator, exprs []planners.Expression) (*SortOperator, error) {
	keys := make([]sortKey, len(exprs))
	inner := make([]planners.Expression, len(exprs))
	for i, e := range exprs {
		keys[i] = sortKey{asc: true}
		if s, ok := e.(planners.SortExpr); ok {
			keys[i] = sortKey{asc: s.Asc, nullsFirst: s.NullsFirst}
		}
		inner[i] = planners.SortToInnerExpr(e)
	}
	ex, err := NewExpressionExecutor(qctx, input.GetOutputSchema(), inner, "Sort")
	if err != nil {
		return nil, err
	}
	return &SortOperator{input: input, keys: keys, executor: ex}, nil
}

func (op *SortOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if op.done {
		return nil, io.EOF
	}
	op.done = true
	blocks, err := Collect(ctx, op.input)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, io.EOF
	}
	block, err := datablocks.ConcatBlocks(blocks)
	if err != nil {
		return nil, err
	}
	keyBlock, err := op.executor.Execute(block)
	if err != nil {
		return nil, err
	}

	indices := make([]uint32, block.NumRows())
	for i := range indices {
		indices[i] = uint32(i)
	}
	var sortErr error
	sort.SliceStable(indices, func(a, b int) bool {
		c, err := op.compareRows(keyBlock, int(indices[a]), int(indices[b]))
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return datablocks.BlockTakeByIndices(block, indices)
}

func (op *SortOperator) compareRows(keys *datablocks.DataBlock, a, b int) (int, error) {
	for i, k := range op.keys {
		col := keys.Column(i)
		va, vb := col.Get(a), col.Get(b)
		switch {
		case va.IsNull() && vb.IsNull():
			continue
		case va.IsNull() || vb.IsNull():
			if va.IsNull() == k.nullsFirst {
				return -1, nil
			}
			return 1, nil
		}
		c, err := va.Compare(vb)
		if err != nil {
			return 0, err
		}
		if !k.asc {
			c = -c
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

func (op *SortOperator) GetOutputSchema() *dv.DataSchema { return op.input.GetOutputSchema() }

// LimitOperator passes through at most limit rows.
type LimitOperator struct {
	input   Operator
	limit   int
	emitted int
}

func NewLimitOperator(input Operator, limit int) *LimitOperator {
	return &LimitOperator{input: input, limit: limit}
}

func (op *LimitOperator) Next(ctx context.Context) (*datablocks.DataBlock, error) {
	if op.emitted >= op.limit {
		return nil, io.EOF
	}
	block, err := op.input.Next(ctx)
	if err != nil {
		return nil, err
	}
	remaining := op.limit - op.emitted
	if block.NumRows() > remaining {
		block = block.Slice(0, remaining)
	}
	op.emitted += block.NumRows()
	return block, nil
}

func (op *LimitOperator) GetOutputSchema() *dv.DataSchema { return op.input.GetOutputSchema() }
