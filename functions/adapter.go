package functions

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

// Adapter wraps a function with null and constant passthrough so function
// bodies only see valid, materialized data when they ask for it.
type Adapter struct {
	inner Function
}

// NewAdapter wraps fn. Wrapping an adapter returns it unchanged.
func NewAdapter(fn Function) Function {
	if a, ok := fn.(*Adapter); ok {
		return a
	}
	return &Adapter{inner: fn}
}

// Inner returns the wrapped function.
func (a *Adapter) Inner() Function { return a.inner }

func (a *Adapter) Name() string { return a.inner.Name() }

func (a *Adapter) NumArguments() int { return a.inner.NumArguments() }

func (a *Adapter) VariadicArguments() (int, int, bool) { return a.inner.VariadicArguments() }

func (a *Adapter) PassthroughNull() bool { return a.inner.PassthroughNull() }

func (a *Adapter) PassthroughConstant() bool { return a.inner.PassthroughConstant() }

func (a *Adapter) String() string { return a.inner.String() }

func hasNullType(args []dv.DataField) bool {
	for _, f := range args {
		if f.DataType.IsNull() {
			return true
		}
	}
	return false
}

func (a *Adapter) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if a.inner.PassthroughNull() && hasNullType(args) {
		return dv.NullType, nil
	}
	return a.inner.ReturnType(args)
}

func (a *Adapter) Nullable(args []dv.DataField) bool {
	if a.inner.PassthroughNull() && anyNullable(args) {
		return true
	}
	return a.inner.Nullable(args)
}

func (a *Adapter) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if !a.inner.PassthroughNull() {
		return a.evalConstant(columns, rows)
	}
	args := fields(columns)
	for _, c := range columns {
		if c.Field.DataType.IsNull() || c.Column.DataType().IsNull() {
			return dv.ConstantColumn(dv.Null(), rows), nil
		}
	}

	hasNulls := false
	for _, c := range columns {
		if allNull, _ := c.Column.Validity(); allNull {
			rt, err := a.inner.ReturnType(args)
			if err != nil {
				return dv.DataColumn{}, err
			}
			return dv.ConstantColumn(dv.NullOf(rt), rows), nil
		}
		if c.Column.NullCount() > 0 {
			hasNulls = true
		}
	}
	if !hasNulls {
		return a.evalConstant(columns, rows)
	}

	stripped := make([]ColumnWithField, len(columns))
	var validity *roaring.Bitmap
	for i, c := range columns {
		_, v := c.Column.Validity()
		validity = dv.CombineValidities(validity, v)
		stripped[i] = ColumnWithField{Column: c.Column.WithValidity(nil), Field: c.Field}
	}
	result, err := a.evalConstant(stripped, rows)
	if err != nil {
		return dv.DataColumn{}, err
	}
	arr, err := result.ToArray()
	if err != nil {
		return dv.DataColumn{}, err
	}
	// Try-style functions report their own nulls; keep both.
	validity = dv.CombineValidities(validity, arr.Validity())
	return dv.ArrayColumn(arr.WithValidity(validity)), nil
}

// evalConstant evaluates all-constant arguments once on single-row arrays
// and re-broadcasts the result.
func (a *Adapter) evalConstant(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if !a.inner.PassthroughConstant() || len(columns) == 0 || !allConstant(columns) {
		return a.evalChecked(columns, rows)
	}
	minimal := make([]ColumnWithField, len(columns))
	for i, c := range columns {
		arr, err := c.Column.ToMinimalArray()
		if err != nil {
			return dv.DataColumn{}, err
		}
		minimal[i] = ColumnWithField{Column: dv.ArrayColumn(arr), Field: c.Field}
	}
	result, err := a.evalChecked(minimal, 1)
	if err != nil {
		return dv.DataColumn{}, err
	}
	return result.ResizeConstant(rows), nil
}

func (a *Adapter) evalChecked(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	result, err := SafeEval(a.inner, columns, rows)
	if err != nil {
		return dv.DataColumn{}, err
	}
	if result.Len() != rows {
		return dv.DataColumn{}, errorcode.LogicalError(
			"Function %s returned %d rows, expected %d", a.inner.Name(), result.Len(), rows)
	}
	return result, nil
}

func allConstant(columns []ColumnWithField) bool {
	for _, c := range columns {
		if !c.Column.IsConstant() {
			return false
		}
	}
	return true
}

// SafeEval calls fn.Eval and turns a panic inside it into a FunctionPanic
// error. Nothing of the panicking call's result is returned.
func SafeEval(fn Function, columns []ColumnWithField, rows int) (result dv.DataColumn, err error) {
	defer func() {
		if r := recover(); r != nil {
			trace.GetTracer().Error(trace.ComponentFunction, "Function panicked",
				trace.Context("function", fn.Name(), "panic", fmt.Sprint(r)))
			result = dv.DataColumn{}
			err = errorcode.FunctionPanic("Function %s panicked: %v", fn.Name(), r)
		}
	}()
	return fn.Eval(columns, rows)
}
