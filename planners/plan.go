package planners

import (
	"fmt"
	"strings"

	dv "github.com/zhaox1n/datafuse/datavalues"
)

// SourcePlan is a leaf producing blocks of a fixed schema.
type SourcePlan struct {
	Name   string
	schema *dv.DataSchema
}

func NewSourcePlan(name string, schema *dv.DataSchema) *SourcePlan {
	return &SourcePlan{Name: name, schema: schema}
}

func (p *SourcePlan) Schema() *dv.DataSchema { return p.schema }

func (p *SourcePlan) String() string { return fmt.Sprintf("Source: %s %s", p.Name, p.schema) }

// ExpressionPlan computes Exprs over the blocks of Input. Its schema is
// resolved once when the plan is built.
type ExpressionPlan struct {
	Exprs  []Expression
	Input  PlanNode
	Desc   string
	schema *dv.DataSchema
}

func NewExpressionPlan(r *Resolver, input PlanNode, exprs []Expression, desc string) (*ExpressionPlan, error) {
	fields := make([]dv.DataField, len(exprs))
	for i, e := range exprs {
		f, err := r.ToDataField(e, input.Schema())
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return &ExpressionPlan{
		Exprs:  exprs,
		Input:  input,
		Desc:   desc,
		schema: dv.NewDataSchema(fields...),
	}, nil
}

func (p *ExpressionPlan) Schema() *dv.DataSchema { return p.schema }

func (p *ExpressionPlan) String() string {
	names := make([]string, len(p.Exprs))
	for i, e := range p.Exprs {
		names[i] = e.String()
	}
	return fmt.Sprintf("Expression: %s (%s)", strings.Join(names, ", "), p.Desc)
}
