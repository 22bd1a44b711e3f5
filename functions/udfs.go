package functions

import (
	"fmt"
	"math"
	"time"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

func registerUdfs(f *Factory) {
	f.Register("example", func(displayName string, _ []dv.DataField) (Function, error) {
		return &ExampleFunction{base: fixed(displayName, 0)}, nil
	})
	f.Register("totypename", func(displayName string, _ []dv.DataField) (Function, error) {
		return &ToTypeNameFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("database", func(displayName string, _ []dv.DataField) (Function, error) {
		return &ContextValueFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("version", func(displayName string, _ []dv.DataField) (Function, error) {
		return &ContextValueFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("sleep", func(displayName string, _ []dv.DataField) (Function, error) {
		return &SleepFunction{base: fixed(displayName, 1), max: f.settings.MaxSleep}, nil
	})
	f.Register("crashme", func(displayName string, _ []dv.DataField) (Function, error) {
		return &CrashMeFunction{base: fixed(displayName, 0)}, nil
	})
	f.Register("if", func(displayName string, _ []dv.DataField) (Function, error) {
		return &IfFunction{base: fixed(displayName, 3)}, nil
	})
}

// ExampleFunction always returns true.
type ExampleFunction struct {
	base
}

func (f *ExampleFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return dv.BooleanType, nil
}

func (f *ExampleFunction) Eval(_ []ColumnWithField, rows int) (dv.DataColumn, error) {
	return dv.ConstantColumn(dv.Boolean(true), rows), nil
}

func (f *ExampleFunction) String() string { return f.name + "()" }

// ToTypeNameFunction returns the type name of its argument.
type ToTypeNameFunction struct {
	base
}

func (f *ToTypeNameFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return dv.Utf8Type, nil
}

func (f *ToTypeNameFunction) PassthroughNull() bool { return false }

func (f *ToTypeNameFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	return dv.ConstantColumn(dv.Utf8(columns[0].Field.DataType.String()), rows), nil
}

// ContextValueFunction backs database() and version(). The value comes
// from the query context as a bound literal argument (see
// BuildArgsFromContext) and is returned as is.
type ContextValueFunction struct {
	base
}

func (f *ContextValueFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return dv.Utf8Type, nil
}

func (f *ContextValueFunction) PassthroughNull() bool { return false }

func (f *ContextValueFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	return columns[0].Column, nil
}

func (f *ContextValueFunction) String() string { return f.name + "()" }

// SleepFunction blocks the calling goroutine for a constant number of
// seconds, bounded by the configured maximum, and returns 0.
type SleepFunction struct {
	base
	max time.Duration
}

func (f *SleepFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if !args[0].DataType.IsNumeric() {
		return dv.NullType, errorcode.BadArguments(
			"Illegal type %s of argument of function %s, expected numeric", args[0].DataType, f.name)
	}
	return dv.UInt8Type, nil
}

// PassthroughConstant is off: the argument must reach Eval as a constant.
func (f *SleepFunction) PassthroughConstant() bool { return false }

func (f *SleepFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	arg := columns[0].Column
	if !arg.IsConstant() {
		return dv.DataColumn{}, errorcode.BadArguments("The argument of function %s must be constant.", f.name)
	}
	secs, err := arg.ConstantValue().AsFloat64()
	if err != nil {
		return dv.DataColumn{}, err
	}
	if math.IsNaN(secs) || secs < 0 || secs > f.max.Seconds() {
		return dv.DataColumn{}, errorcode.BadArguments(
			"The maximum sleep time is %s. Requested: %gs", f.max, secs)
	}
	d := time.Duration(secs * float64(time.Second))
	trace.GetTracer().Debug(trace.ComponentFunction, "Sleeping", trace.Context("duration", d))
	time.Sleep(d)
	return dv.ConstantColumn(dv.UInt8(0), rows), nil
}

// CrashMeFunction panics on evaluation. It exists to exercise the panic
// boundary around function calls.
type CrashMeFunction struct {
	base
}

func (f *CrashMeFunction) ReturnType([]dv.DataField) (dv.DataType, error) {
	return dv.NullType, nil
}

func (f *CrashMeFunction) Eval([]ColumnWithField, int) (dv.DataColumn, error) {
	panic(fmt.Sprintf("%s: crash me", f.name))
}

// IfFunction picks, per row, the second argument when the condition is true
// and the third otherwise. A null condition counts as false.
type IfFunction struct {
	base
}

func (f *IfFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	cond, lhs, rhs := args[0].DataType, args[1].DataType, args[2].DataType
	if cond.ID() != dv.TypeBoolean && !cond.IsNull() {
		return dv.NullType, errorcode.BadArguments(
			"Illegal type %s of first argument of function %s, expected Boolean", cond, f.name)
	}
	switch {
	case lhs.IsNull():
		return rhs, nil
	case rhs.IsNull(), lhs.Equal(rhs):
		return lhs, nil
	}
	return dv.NullType, errorcode.BadArguments(
		"Function %s branches must have the same type, got %s and %s", f.name, lhs, rhs)
}

func (f *IfFunction) Nullable(args []dv.DataField) bool {
	return anyNullable(args[1:])
}

func (f *IfFunction) PassthroughNull() bool { return false }

func (f *IfFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	rt, err := f.ReturnType(fields(columns))
	if err != nil {
		return dv.DataColumn{}, err
	}
	cond, lhs, rhs := columns[0].Column, columns[1].Column, columns[2].Column
	pick := func(row int) bool {
		v := cond.Get(row)
		b, err := v.AsBool()
		return err == nil && b
	}
	if cond.IsConstant() {
		if rows > 0 && pick(0) {
			return castColumn(lhs, rt)
		}
		return castColumn(rhs, rt)
	}
	return mapRows(rows, rt, func(i int) (dv.DataValue, error) {
		if pick(i) {
			return lhs.Get(i), nil
		}
		return rhs.Get(i), nil
	})
}

// castColumn converts c to t, keeping constants constant.
func castColumn(c dv.DataColumn, t dv.DataType) (dv.DataColumn, error) {
	if c.DataType().Equal(t) {
		return c, nil
	}
	if c.IsConstant() {
		v, err := dv.CastValue(c.ConstantValue(), t)
		if err != nil {
			return dv.DataColumn{}, err
		}
		return dv.ConstantColumn(v, c.Len()), nil
	}
	arr, err := c.ToArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	out, err := dv.Cast(arr, t)
	if err != nil {
		return dv.DataColumn{}, err
	}
	return dv.ArrayColumn(out), nil
}
