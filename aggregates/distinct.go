package aggregates

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
)

// distinctFunction feeds each distinct non-null argument row once into an
// inner function. Rows are deduplicated by their group key bytes.
type distinctFunction struct {
	name   string
	inner  AggregateFunction
	seen   map[string]dv.DataValue
	order  []string
	argTyp dv.DataType
}

func newDistinct(innerCreator Creator) Creator {
	return func(name string, args []dv.DataField) (AggregateFunction, error) {
		if err := expectArgs(name, args, 1, 1); err != nil {
			return nil, err
		}
		inner, err := innerCreator(name, args)
		if err != nil {
			return nil, err
		}
		return &distinctFunction{
			name:   name,
			inner:  inner,
			seen:   make(map[string]dv.DataValue),
			argTyp: args[0].DataType,
		}, nil
	}
}

func (f *distinctFunction) Name() string { return f.name }

func (f *distinctFunction) ReturnType() dv.DataType { return f.inner.ReturnType() }

func (f *distinctFunction) Nullable() bool { return f.inner.Nullable() }

func (f *distinctFunction) add(v dv.DataValue) {
	if v.IsNull() {
		return
	}
	key := string(dv.AppendValueKey(nil, v))
	if _, ok := f.seen[key]; ok {
		return
	}
	f.seen[key] = v
	f.order = append(f.order, key)
}

func (f *distinctFunction) Accumulate(columns []dv.DataColumn, rows int) error {
	for i := 0; i < rows; i++ {
		f.add(columns[0].Get(i))
	}
	return nil
}

func (f *distinctFunction) Merge(other AggregateFunction) error {
	o, ok := other.(*distinctFunction)
	if !ok {
		return mismatch(f.name, other)
	}
	for _, k := range o.order {
		f.add(o.seen[k])
	}
	return nil
}

func (f *distinctFunction) Result() (dv.DataValue, error) {
	if len(f.order) == 0 {
		return f.inner.Clone().Result()
	}
	values := make([]dv.DataValue, len(f.order))
	for i, k := range f.order {
		values[i] = f.seen[k]
	}
	s, err := dv.SeriesFromValues(f.argTyp, values)
	if err != nil {
		return dv.Null(), err
	}
	state := f.inner.Clone()
	if err := state.Accumulate([]dv.DataColumn{dv.ArrayColumn(s)}, len(values)); err != nil {
		return dv.Null(), err
	}
	return state.Result()
}

func (f *distinctFunction) Clone() AggregateFunction {
	return &distinctFunction{
		name:   f.name,
		inner:  f.inner.Clone(),
		seen:   make(map[string]dv.DataValue),
		argTyp: f.argTyp,
	}
}

func (f *distinctFunction) String() string { return f.name }
