package aggregates

import (
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

// countFunction counts rows, or non-null rows of its argument.
type countFunction struct {
	name  string
	count uint64
	args  []dv.DataField
}

func newCount(name string, args []dv.DataField) (AggregateFunction, error) {
	if err := expectArgs(name, args, 0, 1); err != nil {
		return nil, err
	}
	return &countFunction{name: name, args: args}, nil
}

func (f *countFunction) Name() string { return f.name }

func (f *countFunction) ReturnType() dv.DataType { return dv.UInt64Type }

func (f *countFunction) Nullable() bool { return false }

func (f *countFunction) Accumulate(columns []dv.DataColumn, rows int) error {
	if len(columns) == 0 {
		f.count += uint64(rows)
		return nil
	}
	f.count += uint64(rows - columns[0].NullCount())
	return nil
}

func (f *countFunction) Merge(other AggregateFunction) error {
	o, ok := other.(*countFunction)
	if !ok {
		return mismatch(f.name, other)
	}
	f.count += o.count
	return nil
}

func (f *countFunction) Result() (dv.DataValue, error) { return dv.UInt64(f.count), nil }

func (f *countFunction) Clone() AggregateFunction {
	return &countFunction{name: f.name, args: f.args}
}

func (f *countFunction) String() string { return f.name }

// sumFunction adds numeric values in Int64, UInt64 or Float64 depending on
// the argument. The sum of no rows is null.
type sumFunction struct {
	name string
	arg  dv.DataField
	rt   dv.DataType
	seen bool
	i    int64
	u    uint64
	f    float64
}

func sumType(name string, t dv.DataType) (dv.DataType, error) {
	switch {
	case t.IsSignedInteger():
		return dv.Int64Type, nil
	case t.IsUnsignedInteger():
		return dv.UInt64Type, nil
	case t.IsFloat():
		return dv.Float64Type, nil
	}
	return dv.NullType, errorcode.BadDataValueType(
		"AggregateFunction %s does not support type %s", name, t)
}

func newSum(name string, args []dv.DataField) (AggregateFunction, error) {
	if err := expectArgs(name, args, 1, 1); err != nil {
		return nil, err
	}
	rt, err := sumType(name, args[0].DataType)
	if err != nil {
		return nil, err
	}
	return &sumFunction{name: name, arg: args[0], rt: rt}, nil
}

func (f *sumFunction) Name() string { return f.name }

func (f *sumFunction) ReturnType() dv.DataType { return f.rt }

func (f *sumFunction) Nullable() bool { return true }

func (f *sumFunction) add(v dv.DataValue) error {
	if v.IsNull() {
		return nil
	}
	f.seen = true
	switch f.rt.ID() {
	case dv.TypeInt64:
		x, err := v.AsInt64()
		if err != nil {
			return err
		}
		f.i += x
	case dv.TypeUInt64:
		x, err := v.AsUint64()
		if err != nil {
			return err
		}
		f.u += x
	default:
		x, err := v.AsFloat64()
		if err != nil {
			return err
		}
		f.f += x
	}
	return nil
}

func (f *sumFunction) Accumulate(columns []dv.DataColumn, rows int) error {
	for i := 0; i < rows; i++ {
		if err := f.add(columns[0].Get(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *sumFunction) Merge(other AggregateFunction) error {
	o, ok := other.(*sumFunction)
	if !ok {
		return mismatch(f.name, other)
	}
	f.seen = f.seen || o.seen
	f.i += o.i
	f.u += o.u
	f.f += o.f
	return nil
}

func (f *sumFunction) Result() (dv.DataValue, error) {
	if !f.seen {
		return dv.NullOf(f.rt), nil
	}
	switch f.rt.ID() {
	case dv.TypeInt64:
		return dv.Int64(f.i), nil
	case dv.TypeUInt64:
		return dv.UInt64(f.u), nil
	}
	return dv.Float64(f.f), nil
}

func (f *sumFunction) Clone() AggregateFunction {
	return &sumFunction{name: f.name, arg: f.arg, rt: f.rt}
}

func (f *sumFunction) String() string { return f.name }

// avgFunction is the mean of numeric values as Float64.
type avgFunction struct {
	name  string
	arg   dv.DataField
	sum   float64
	count uint64
}

func newAvg(name string, args []dv.DataField) (AggregateFunction, error) {
	if err := expectArgs(name, args, 1, 1); err != nil {
		return nil, err
	}
	if !args[0].DataType.IsNumeric() {
		return nil, errorcode.BadDataValueType("AggregateFunction %s does not support type %s", name, args[0].DataType)
	}
	return &avgFunction{name: name, arg: args[0]}, nil
}

func (f *avgFunction) Name() string { return f.name }

func (f *avgFunction) ReturnType() dv.DataType { return dv.Float64Type }

func (f *avgFunction) Nullable() bool { return true }

func (f *avgFunction) add(v dv.DataValue) error {
	if v.IsNull() {
		return nil
	}
	x, err := v.AsFloat64()
	if err != nil {
		return err
	}
	f.sum += x
	f.count++
	return nil
}

func (f *avgFunction) Accumulate(columns []dv.DataColumn, rows int) error {
	for i := 0; i < rows; i++ {
		if err := f.add(columns[0].Get(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *avgFunction) Merge(other AggregateFunction) error {
	o, ok := other.(*avgFunction)
	if !ok {
		return mismatch(f.name, other)
	}
	f.sum += o.sum
	f.count += o.count
	return nil
}

func (f *avgFunction) Result() (dv.DataValue, error) {
	if f.count == 0 {
		return dv.NullOf(dv.Float64Type), nil
	}
	return dv.Float64(f.sum / float64(f.count)), nil
}

func (f *avgFunction) Clone() AggregateFunction { return &avgFunction{name: f.name, arg: f.arg} }

func (f *avgFunction) String() string { return f.name }

// minMaxFunction keeps the smallest or largest non-null value.
type minMaxFunction struct {
	name  string
	arg   dv.DataField
	max   bool
	value dv.DataValue
	seen  bool
}

func newMinMax(isMax bool) Creator {
	return func(name string, args []dv.DataField) (AggregateFunction, error) {
		if err := expectArgs(name, args, 1, 1); err != nil {
			return nil, err
		}
		if args[0].DataType.ID() == dv.TypeList {
			return nil, errorcode.BadDataValueType("AggregateFunction %s does not support type %s", name, args[0].DataType)
		}
		return &minMaxFunction{name: name, arg: args[0], max: isMax}, nil
	}
}

func (f *minMaxFunction) Name() string { return f.name }

func (f *minMaxFunction) ReturnType() dv.DataType { return f.arg.DataType }

func (f *minMaxFunction) Nullable() bool { return true }

func (f *minMaxFunction) add(v dv.DataValue) error {
	if v.IsNull() {
		return nil
	}
	if !f.seen {
		f.value, f.seen = v, true
		return nil
	}
	c, err := v.Compare(f.value)
	if err != nil {
		return err
	}
	if (f.max && c > 0) || (!f.max && c < 0) {
		f.value = v
	}
	return nil
}

func (f *minMaxFunction) Accumulate(columns []dv.DataColumn, rows int) error {
	for i := 0; i < rows; i++ {
		if err := f.add(columns[0].Get(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *minMaxFunction) Merge(other AggregateFunction) error {
	o, ok := other.(*minMaxFunction)
	if !ok || o.max != f.max {
		return mismatch(f.name, other)
	}
	if o.seen {
		return f.add(o.value)
	}
	return nil
}

func (f *minMaxFunction) Result() (dv.DataValue, error) {
	if !f.seen {
		return dv.NullOf(f.arg.DataType), nil
	}
	return f.value, nil
}

func (f *minMaxFunction) Clone() AggregateFunction {
	return &minMaxFunction{name: f.name, arg: f.arg, max: f.max}
}

func (f *minMaxFunction) String() string { return f.name }
