package functions

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaox1n/datafuse/config"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()
	s := config.DefaultSettings()
	s.MaxSleep = 200 * time.Millisecond
	return NewFactory(s)
}

func arrayArg(t *testing.T, name string, dt dv.DataType, values ...dv.DataValue) ColumnWithField {
	t.Helper()
	s, err := dv.SeriesFromValues(dt, values)
	require.NoError(t, err)
	return NewColumnWithField(dv.ArrayColumn(s), dv.NewDataField(name, dt, s.NullCount() > 0))
}

func constArg(name string, v dv.DataValue, rows int) ColumnWithField {
	return NewColumnWithField(dv.ConstantColumn(v, rows), dv.NewDataField(name, v.DataType(), v.IsNull()))
}

func eval(t *testing.T, f *Factory, name string, rows int, args ...ColumnWithField) (dv.DataColumn, error) {
	t.Helper()
	fn, err := f.Get(name, fields(args))
	require.NoError(t, err)
	return fn.Eval(args, rows)
}

func values(c dv.DataColumn) []interface{} {
	out := make([]interface{}, c.Len())
	for i := range out {
		out[i] = c.Get(i).Raw()
	}
	return out
}

func TestFactoryLookup(t *testing.T) {
	f := newTestFactory(t)
	int64Field := dv.NewDataField("a", dv.Int64Type, false)

	for _, name := range []string{"plus", "PLUS", "+", "Not Like", "SipHash", "IF"} {
		assert.True(t, f.Check(name), name)
	}

	fn, err := f.Get("MULTIPLY", []dv.DataField{int64Field, int64Field})
	require.NoError(t, err)
	assert.Equal(t, "MULTIPLY", fn.Name())

	_, err = f.Get("nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorcode.ErrUnknownFunction))
	assert.Equal(t, "Unsupported Function: nope", err.Error())

	_, err = f.Get("=", []dv.DataField{int64Field})
	assert.True(t, errors.Is(err, errorcode.ErrNumberArgumentsNotMatch))

	_, err = f.Get("-", []dv.DataField{int64Field, int64Field, int64Field})
	assert.True(t, errors.Is(err, errorcode.ErrNumberArgumentsNotMatch))

	names := f.RegisteredNames()
	assert.Contains(t, names, "crashme")
	assert.Contains(t, names, "<=>")
}

type doubleFunction struct {
	base
}

func (d *doubleFunction) ReturnType([]dv.DataField) (dv.DataType, error) { return dv.Int64Type, nil }

func (d *doubleFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	return columns[0].Column.Arithmetic(dv.OpMul, dv.ConstantColumn(dv.Int64(2), rows))
}

func TestFactoryRegisterConcurrent(t *testing.T) {
	f := newTestFactory(t)
	f.Register("Double", func(name string, _ []dv.DataField) (Function, error) {
		return &doubleFunction{base: fixed(name, 1)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			arg := NewColumnWithField(dv.ArrayColumn(dv.NewInt64Array(1, 2)), dv.NewDataField("a", dv.Int64Type, false))
			fn, err := f.Get("double", []dv.DataField{arg.Field})
			if !assert.NoError(t, err) {
				return
			}
			out, err := fn.Eval([]ColumnWithField{arg}, 2)
			if assert.NoError(t, err) {
				assert.Equal(t, []interface{}{int64(2), int64(4)}, values(out))
			}
		}()
	}
	wg.Wait()
}

func TestAdapterNullPassthrough(t *testing.T) {
	f := newTestFactory(t)

	t.Run("validities are merged", func(t *testing.T) {
		a := arrayArg(t, "a", dv.Int64Type, dv.Int64(1), dv.Null(), dv.Int64(3))
		b := arrayArg(t, "b", dv.Int64Type, dv.Int64(1), dv.Int64(2), dv.Null())
		out, err := eval(t, f, "+", 3, a, b)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(2), nil, nil}, values(out))
	})

	t.Run("null type argument", func(t *testing.T) {
		a := arrayArg(t, "a", dv.Int64Type, dv.Int64(1), dv.Int64(2))
		fn, err := f.Get("+", []dv.DataField{a.Field, dv.NewDataField("n", dv.NullType, true)})
		require.NoError(t, err)
		rt, err := fn.ReturnType([]dv.DataField{a.Field, dv.NewDataField("n", dv.NullType, true)})
		require.NoError(t, err)
		assert.True(t, rt.IsNull())

		out, err := fn.Eval([]ColumnWithField{a, constArg("n", dv.Null(), 2)}, 2)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{nil, nil}, values(out))
	})

	t.Run("all null argument", func(t *testing.T) {
		a := arrayArg(t, "a", dv.Int64Type, dv.Null(), dv.Null())
		out, err := eval(t, f, "=", 2, a, constArg("b", dv.Int64(1), 2))
		require.NoError(t, err)
		assert.Equal(t, 2, out.NullCount())
		assert.Equal(t, dv.TypeBoolean, out.DataType().ID())
	})

	t.Run("try function keeps own nulls", func(t *testing.T) {
		a := arrayArg(t, "a", dv.Utf8Type, dv.Utf8("1"), dv.Utf8("x"), dv.Null())
		out, err := eval(t, f, "try_to_int64", 3, a)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{int64(1), nil, nil}, values(out))

		fn, err := f.Get("try_to_int64", []dv.DataField{dv.NewDataField("a", dv.Utf8Type, false)})
		require.NoError(t, err)
		assert.True(t, fn.Nullable([]dv.DataField{dv.NewDataField("a", dv.Utf8Type, false)}))
	})

	t.Run("null safe equality sees nulls", func(t *testing.T) {
		a := arrayArg(t, "a", dv.Int64Type, dv.Null(), dv.Int64(1))
		out, err := eval(t, f, "<=>", 2, a, constArg("b", dv.NullOf(dv.Int64Type), 2))
		require.NoError(t, err)
		assert.Equal(t, []interface{}{true, false}, values(out))
	})
}

func TestAdapterConstantPassthrough(t *testing.T) {
	f := newTestFactory(t)
	out, err := eval(t, f, "*", 1000, constArg("a", dv.Int64(6), 1000), constArg("b", dv.Int64(7), 1000))
	require.NoError(t, err)
	assert.True(t, out.IsConstant())
	assert.Equal(t, 1000, out.Len())
	assert.Equal(t, int64(42), out.Get(999).Raw())

	out, err = eval(t, f, "/", 4, constArg("a", dv.Int64(1), 4), constArg("b", dv.NullOf(dv.Int64Type), 4))
	require.NoError(t, err)
	assert.True(t, out.IsConstant())
	assert.Equal(t, 4, out.NullCount())
}

func TestCrashMeIsReported(t *testing.T) {
	f := newTestFactory(t)
	out, err := eval(t, f, "crashme", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorcode.ErrFunctionPanic))
	assert.Contains(t, err.Error(), "crashme")
	assert.Equal(t, 0, out.Len())

	// the factory keeps working afterwards
	out, err = eval(t, f, "example", 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, true}, values(out))
}

func TestSleep(t *testing.T) {
	f := newTestFactory(t)

	start := time.Now()
	out, err := eval(t, f, "sleep", 2, constArg("s", dv.Float64(0.05), 2))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, []interface{}{uint8(0), uint8(0)}, values(out))

	_, err = eval(t, f, "sleep", 1, constArg("s", dv.Int64(1), 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorcode.ErrBadArguments))
	assert.Contains(t, err.Error(), "The maximum sleep time is")

	_, err = eval(t, f, "sleep", 2, arrayArg(t, "s", dv.Int64Type, dv.Int64(0), dv.Int64(0)))
	assert.Contains(t, err.Error(), "must be constant")

	_, err = eval(t, f, "sleep", 1, constArg("s", dv.Utf8("1"), 1))
	assert.Contains(t, err.Error(), "expected numeric")

	for _, secs := range []float64{1e20, math.NaN(), math.Inf(1), -0.5} {
		start := time.Now()
		_, err = eval(t, f, "sleep", 1, constArg("s", dv.Float64(secs), 1))
		assert.True(t, errors.Is(err, errorcode.ErrBadArguments), "sleep(%v)", secs)
		assert.Less(t, time.Since(start), time.Second)
	}
}

func TestIf(t *testing.T) {
	f := newTestFactory(t)
	cond := arrayArg(t, "c", dv.BooleanType, dv.Boolean(true), dv.Null(), dv.Boolean(false))
	a := arrayArg(t, "a", dv.Int64Type, dv.Int64(1), dv.Int64(2), dv.Int64(3))
	b := constArg("b", dv.Int64(0), 3)

	out, err := eval(t, f, "if", 3, cond, a, b)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(0), int64(0)}, values(out))

	out, err = eval(t, f, "if", 3, constArg("c", dv.Boolean(true), 3), a, b)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3)}, values(out))

	_, err = eval(t, f, "if", 3, cond, a, constArg("b", dv.Utf8("x"), 3))
	assert.True(t, errors.Is(err, errorcode.ErrBadArguments))

	// a null-typed branch takes the type of the other one
	out, err = eval(t, f, "if", 3, constArg("c", dv.Boolean(true), 3), constArg("n", dv.Null(), 3), a)
	require.NoError(t, err)
	assert.True(t, out.DataType().Equal(dv.Int64Type))
	assert.Equal(t, 3, out.NullCount())
}

func TestStringFunctions(t *testing.T) {
	f := newTestFactory(t)
	s := constArg("s", dv.Utf8("abcde"), 1)

	tests := []struct {
		name string
		args []ColumnWithField
		want interface{}
	}{
		{"substring", []ColumnWithField{s, constArg("p", dv.Int64(2), 1), constArg("l", dv.Int64(3), 1)}, "bcd"},
		{"substring", []ColumnWithField{s, constArg("p", dv.Int64(1), 1), constArg("l", dv.Int64(3), 1)}, "abc"},
		{"substring", []ColumnWithField{s, constArg("p", dv.Int64(2), 1)}, "bcde"},
		{"substring", []ColumnWithField{s, constArg("p", dv.Int64(-2), 1)}, "de"},
		{"substring", []ColumnWithField{s, constArg("p", dv.Int64(0), 1)}, ""},
		{"upper", []ColumnWithField{constArg("s", dv.Utf8("straße"), 1)}, "STRASSE"},
		{"lower", []ColumnWithField{constArg("s", dv.Utf8("ÀB"), 1)}, "àb"},
		{"length", []ColumnWithField{s}, uint64(5)},
		{"concat", []ColumnWithField{s, constArg("t", dv.Utf8("!"), 1)}, "abcde!"},
		{"totypename", []ColumnWithField{constArg("x", dv.Float32(1), 1)}, "Float32"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := eval(t, f, tt.name, 1, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Get(0).Raw())
		})
	}

	_, err := eval(t, f, "upper", 1, constArg("s", dv.Int64(1), 1))
	assert.True(t, errors.Is(err, errorcode.ErrBadArguments))
}

func TestSipHash(t *testing.T) {
	f := newTestFactory(t)
	a := arrayArg(t, "a", dv.Utf8Type, dv.Utf8("x"), dv.Utf8("x"), dv.Utf8("y"))
	out, err := eval(t, f, "siphash", 3, a)
	require.NoError(t, err)
	assert.Equal(t, dv.TypeUInt64, out.DataType().ID())
	assert.Equal(t, out.Get(0), out.Get(1))
	assert.NotEqual(t, out.Get(0), out.Get(2))

	fn, err := f.Get("siphash", []dv.DataField{dv.NewDataField("b", dv.BooleanType, false)})
	require.NoError(t, err)
	_, err = fn.ReturnType([]dv.DataField{dv.NewDataField("b", dv.BooleanType, false)})
	assert.True(t, errors.Is(err, errorcode.ErrBadArguments))
}

type session struct{}

func (session) CurrentDatabase() string { return "analytics" }

func (session) Version() string { return "v1" }

func TestContextFunctions(t *testing.T) {
	f := newTestFactory(t)
	args, ok := BuildArgsFromContext("DATABASE", session{})
	require.True(t, ok)
	out, err := eval(t, f, "database", 2, constArg("db", args[0], 2))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"analytics", "analytics"}, values(out))

	_, ok = BuildArgsFromContext("plus", session{})
	assert.False(t, ok)
	assert.True(t, IsContextFunction("version"))
}

func TestCastFunction(t *testing.T) {
	fn := NewCastFunction("cast", dv.Int32Type)
	assert.Equal(t, "CAST", fn.String())

	out, err := fn.Eval([]ColumnWithField{constArg("a", dv.Utf8("12"), 3)}, 3)
	require.NoError(t, err)
	assert.True(t, out.IsConstant())
	assert.Equal(t, int32(12), out.Get(2).Raw())

	out, err = fn.Eval([]ColumnWithField{constArg("n", dv.Null(), 2)}, 2)
	require.NoError(t, err)
	assert.Equal(t, dv.TypeInt32, out.DataType().ID())
	assert.Equal(t, 2, out.NullCount())
}
