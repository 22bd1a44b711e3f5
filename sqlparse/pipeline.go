package sqlparse

import (
	"github.com/zhaox1n/datafuse/datablocks"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/planners"
	"github.com/zhaox1n/datafuse/trace"
	"github.com/zhaox1n/datafuse/vectorized"
)

// OneRowInput is the input of a query without FROM: one row, one column.
func OneRowInput() vectorized.Operator {
	schema := dv.NewDataSchema(dv.NewDataField("dummy", dv.UInt8Type, false))
	block, _ := datablocks.Create(schema, []dv.DataColumn{dv.ArrayColumn(dv.NewUInt8Array(0))})
	return vectorized.NewBlocksOperator(schema, block)
}

// BuildPipeline stacks the operators of q on top of input in the order
// filter, aggregate, having, sort, limit, projection. Sorting before the
// final projection lets ORDER BY use columns that are not selected.
func BuildPipeline(qctx *vectorized.QueryContext, q *Query, input vectorized.Operator) (vectorized.Operator, error) {
	op := input
	var err error

	if q.Where != nil {
		if len(planners.FindAggregateExprs([]planners.Expression{q.Where})) > 0 {
			return nil, errorcode.IllegalAggregateExp("Aggregate functions are not allowed in WHERE: %s", q.Where)
		}
		if op, err = vectorized.NewFilterOperator(qctx, op, q.Where); err != nil {
			return nil, err
		}
	}

	aliases := planners.ExtractAliases(q.Projection)
	orderBy := make([]planners.Expression, len(q.OrderBy))
	for i, e := range q.OrderBy {
		if orderBy[i], err = planners.ResolveAliasesToExprs(e, aliases); err != nil {
			return nil, err
		}
	}
	projection := q.Projection

	if q.HasAggregation() || len(planners.FindAggregateExprs(orderBy)) > 0 {
		groupBy := make([]planners.Expression, len(q.GroupBy))
		for i, e := range q.GroupBy {
			if groupBy[i], err = planners.ResolveAliasesToExprs(e, aliases); err != nil {
				return nil, err
			}
		}
		var having planners.Expression
		if q.Having != nil {
			if having, err = planners.ResolveAliasesToExprs(q.Having, aliases); err != nil {
				return nil, err
			}
		}

		all := append(append([]planners.Expression{}, projection...), orderBy...)
		if having != nil {
			all = append(all, having)
		}
		aggrs := planners.FindAggregateExprs(all)

		if op, err = vectorized.NewAggregateOperator(qctx, op, groupBy, aggrs); err != nil {
			return nil, err
		}
		if projection, err = planners.CheckAggregateProjection(groupBy, aggrs, projection); err != nil {
			return nil, err
		}
		if orderBy, err = planners.CheckAggregateProjection(groupBy, aggrs, orderBy); err != nil {
			return nil, err
		}
		if having != nil {
			rebased, err := planners.CheckAggregateProjection(groupBy, aggrs, []planners.Expression{having})
			if err != nil {
				return nil, err
			}
			if op, err = vectorized.NewFilterOperator(qctx, op, rebased[0]); err != nil {
				return nil, err
			}
		}
	} else if q.Having != nil {
		return nil, errorcode.IllegalAggregateExp("HAVING requires GROUP BY or aggregate functions")
	}

	if len(orderBy) > 0 {
		if op, err = vectorized.NewSortOperator(qctx, op, orderBy); err != nil {
			return nil, err
		}
	}
	if q.Limit >= 0 {
		op = vectorized.NewLimitOperator(op, q.Limit)
	}
	if op, err = vectorized.NewProjectionOperator(qctx, op, projection, "Projection"); err != nil {
		return nil, err
	}

	trace.GetTracer().Debug(trace.ComponentExecution, "Built query pipeline", trace.Context(
		"table", q.Table,
		"output", op.GetOutputSchema().String(),
	))
	return op, nil
}
