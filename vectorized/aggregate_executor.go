package vectorized

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zhaox1n/datafuse/aggregates"
	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/trace"
)

// aggregateGroup is the running state of one group.
type aggregateGroup struct {
	values []dv.DataValue
	states []aggregates.AggregateFunction
}

// partialAggregate holds the groups built from a subset of the input, in
// order of first appearance.
type partialAggregate struct {
	groups map[string]*aggregateGroup
	order  []string
}

func newPartialAggregate() *partialAggregate {
	return &partialAggregate{groups: make(map[string]*aggregateGroup)}
}

// AggregateExecutor computes GROUP BY aggregations. Group keys and
// aggregate arguments are evaluated by a "Before GroupBy" expression chain,
// rows are grouped with datablocks.GroupBy and every group folds its rows
// into per-group aggregate states. The output has the group by columns
// first and the aggregates after, one row per group.
type AggregateExecutor struct {
	qctx       *QueryContext
	groupBy    []planners.Expression
	aggrs      []planners.Expression
	before     *ExpressionExecutor
	groupNames []string
	argNames   [][]string
	templates  []aggregates.AggregateFunction
	output     *dv.DataSchema
	state      *partialAggregate
}

func NewAggregateExecutor(qctx *QueryContext, input *dv.DataSchema, groupBy, aggrs []planners.Expression) (*AggregateExecutor, error) {
	resolver := qctx.Resolver()
	for _, a := range aggrs {
		if _, ok := a.(planners.AggregateFunctionExpr); !ok {
			return nil, errorcode.IllegalAggregateExp("Expression %s is not an aggregate function", a)
		}
	}

	all := make([]planners.Expression, 0, len(groupBy)+len(aggrs))
	all = append(all, groupBy...)
	all = append(all, aggrs...)
	before, err := NewExpressionExecutor(qctx, input, planners.ExpandAggregateArgExprs(all), "Before GroupBy")
	if err != nil {
		return nil, err
	}

	e := &AggregateExecutor{
		qctx:    qctx,
		groupBy: groupBy,
		aggrs:   aggrs,
		before:  before,
		state:   newPartialAggregate(),
	}

	var fields []dv.DataField
	for _, g := range groupBy {
		f, err := resolver.ToDataField(g, input)
		if err != nil {
			return nil, err
		}
		e.groupNames = append(e.groupNames, planners.ColumnName(g))
		fields = append(fields, f)
	}
	for _, a := range aggrs {
		fn, err := resolver.ToAggregateFunction(a, input)
		if err != nil {
			return nil, err
		}
		names, err := planners.ToAggregateFunctionNames(a)
		if err != nil {
			return nil, err
		}
		e.templates = append(e.templates, fn)
		e.argNames = append(e.argNames, names)
		fields = append(fields, dv.NewDataField(planners.ColumnName(a), fn.ReturnType(), fn.Nullable()))
	}
	e.output = dv.NewDataSchema(fields...)
	return e, nil
}

func (e *AggregateExecutor) OutputSchema() *dv.DataSchema { return e.output }

// partial aggregates one block into a fresh partial state.
func (e *AggregateExecutor) partial(block *datablocks.DataBlock) (*partialAggregate, error) {
	computed, err := e.before.Execute(block)
	if err != nil {
		return nil, err
	}
	p := newPartialAggregate()
	if computed.NumRows() == 0 {
		return p, nil
	}

	var groups []datablocks.GroupBlock
	if len(e.groupNames) == 0 {
		groups = []datablocks.GroupBlock{{Block: computed}}
	} else {
		groups, err = datablocks.GroupBy(computed, e.groupNames)
		if err != nil {
			return nil, err
		}
	}

	for _, g := range groups {
		group := p.group(string(g.Key), g.Values, e.templates)
		for i, state := range group.states {
			args := make([]dv.DataColumn, len(e.argNames[i]))
			for j, name := range e.argNames[i] {
				col, err := g.Block.TryColumnByName(name)
				if err != nil {
					return nil, err
				}
				args[j] = col
			}
			if err := state.Accumulate(args, g.Block.NumRows()); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func (p *partialAggregate) group(key string, values []dv.DataValue, templates []aggregates.AggregateFunction) *aggregateGroup {
	if g, ok := p.groups[key]; ok {
		return g
	}
	g := &aggregateGroup{values: values, states: make([]aggregates.AggregateFunction, len(templates))}
	for i, t := range templates {
		g.states[i] = t.Clone()
	}
	p.groups[key] = g
	p.order = append(p.order, key)
	return g
}

func (p *partialAggregate) merge(other *partialAggregate, templates []aggregates.AggregateFunction) error {
	for _, key := range other.order {
		src := other.groups[key]
		dst := p.group(key, src.values, templates)
		for i, s := range src.states {
			if err := dst.states[i].Merge(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Accumulate folds block into the executor state.
func (e *AggregateExecutor) Accumulate(block *datablocks.DataBlock) error {
	p, err := e.partial(block)
	if err != nil {
		return err
	}
	return e.state.merge(p, e.templates)
}

// AccumulateBlocks aggregates blocks in parallel, bounded by the group
// parallelism setting, and merges the partial states in block order so the
// group order does not depend on scheduling.
func (e *AggregateExecutor) AccumulateBlocks(ctx context.Context, blocks []*datablocks.DataBlock) error {
	partials := make([]*partialAggregate, len(blocks))
	g, ctx := errgroup.WithContext(ctx)
	if n := e.qctx.Settings().GroupParallelism; n > 0 {
		g.SetLimit(n)
	}
	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := e.partial(block)
			if err != nil {
				return err
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, p := range partials {
		if err := e.state.merge(p, e.templates); err != nil {
			return err
		}
	}
	trace.GetTracer().Debug(trace.ComponentAggregate, "Merged partial aggregates",
		trace.Context("blocks", len(blocks), "groups", len(e.state.order)))
	return nil
}

// Finish emits one row per group. Without GROUP BY a single row is emitted
// even for empty input.
func (e *AggregateExecutor) Finish() (*datablocks.DataBlock, error) {
	state := e.state
	if len(e.groupNames) == 0 && len(state.order) == 0 {
		state.group("", nil, e.templates)
	}

	builders := make([]*dv.SeriesBuilder, e.output.NumFields())
	for i, f := range e.output.Fields() {
		builders[i] = dv.NewSeriesBuilder(f.DataType, len(state.order))
	}
	for _, key := range state.order {
		g := state.groups[key]
		for i, v := range g.values {
			builders[i].Append(v)
		}
		for i, s := range g.states {
			v, err := s.Result()
			if err != nil {
				return nil, err
			}
			builders[len(e.groupNames)+i].Append(v)
		}
	}

	columns := make([]dv.DataColumn, len(builders))
	for i, b := range builders {
		s, err := b.Finish()
		if err != nil {
			return nil, err
		}
		columns[i] = dv.ArrayColumn(s)
	}
	trace.GetTracer().Info(trace.ComponentAggregate, "Finished aggregation",
		trace.Context("groups", len(state.order), "aggregates", len(e.templates)))
	return datablocks.Create(e.output, columns)
}
