package functions

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
)

func registerStrings(f *Factory) {
	f.Register("substring", func(displayName string, _ []dv.DataField) (Function, error) {
		return &SubstringFunction{base: ranged(displayName, 2, 3)}, nil
	})
	f.Register("upper", func(displayName string, _ []dv.DataField) (Function, error) {
		return &CaseFunction{base: fixed(displayName, 1), upper: true}, nil
	})
	f.Register("ucase", func(displayName string, _ []dv.DataField) (Function, error) {
		return &CaseFunction{base: fixed(displayName, 1), upper: true}, nil
	})
	f.Register("lower", func(displayName string, _ []dv.DataField) (Function, error) {
		return &CaseFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("lcase", func(displayName string, _ []dv.DataField) (Function, error) {
		return &CaseFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("length", func(displayName string, _ []dv.DataField) (Function, error) {
		return &LengthFunction{base: fixed(displayName, 1)}, nil
	})
	f.Register("concat", func(displayName string, _ []dv.DataField) (Function, error) {
		return &ConcatFunction{base: ranged(displayName, 1, math.MaxInt32)}, nil
	})
}

func expectUtf8(fn string, f dv.DataField) error {
	if f.DataType.ID() != dv.TypeUtf8 {
		return errorcode.BadArguments("Illegal type %s of argument of function %s, expected String", f.DataType, fn)
	}
	return nil
}

func expectInteger(fn string, f dv.DataField) error {
	if !f.DataType.IsInteger() {
		return errorcode.BadArguments("Illegal type %s of argument of function %s, expected integer", f.DataType, fn)
	}
	return nil
}

// mapRows evaluates fn for every row and builds a column of type dt.
func mapRows(rows int, dt dv.DataType, fn func(row int) (dv.DataValue, error)) (dv.DataColumn, error) {
	builder := dv.NewSeriesBuilder(dt, rows)
	for i := 0; i < rows; i++ {
		v, err := fn(i)
		if err != nil {
			return dv.DataColumn{}, err
		}
		builder.Append(v)
	}
	s, err := builder.Finish()
	if err != nil {
		return dv.DataColumn{}, err
	}
	return dv.ArrayColumn(s), nil
}

// SubstringFunction returns the characters of a string starting at a
// 1-based position, optionally limited to a length. A negative position
// counts from the end; position 0 yields the empty string.
type SubstringFunction struct {
	base
}

func (f *SubstringFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if err := expectUtf8(f.name, args[0]); err != nil {
		return dv.NullType, err
	}
	for _, a := range args[1:] {
		if err := expectInteger(f.name, a); err != nil {
			return dv.NullType, err
		}
	}
	return dv.Utf8Type, nil
}

func (f *SubstringFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	return mapRows(rows, dv.Utf8Type, func(i int) (dv.DataValue, error) {
		s, err := columns[0].Column.Get(i).AsString()
		if err != nil {
			return dv.Null(), err
		}
		start, err := columns[1].Column.Get(i).AsInt64()
		if err != nil {
			return dv.Null(), err
		}
		length := int64(math.MaxInt64)
		if len(columns) == 3 {
			if length, err = columns[2].Column.Get(i).AsInt64(); err != nil {
				return dv.Null(), err
			}
		}
		return dv.Utf8(substring(s, start, length)), nil
	})
}

func substring(s string, start, length int64) string {
	runes := []rune(s)
	n := int64(len(runes))
	var from int64
	switch {
	case start > 0:
		from = start - 1
	case start < 0:
		from = n + start
	default:
		return ""
	}
	if from < 0 || from >= n || length <= 0 {
		return ""
	}
	to := n
	if length < n-from {
		to = from + length
	}
	return string(runes[from:to])
}

// CaseFunction implements upper and lower with Unicode case mapping.
type CaseFunction struct {
	base
	upper bool
}

func (f *CaseFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if err := expectUtf8(f.name, args[0]); err != nil {
		return dv.NullType, err
	}
	return dv.Utf8Type, nil
}

func (f *CaseFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	// A Caser is stateful; one per call.
	caser := cases.Lower(language.Und)
	if f.upper {
		caser = cases.Upper(language.Und)
	}
	return mapRows(rows, dv.Utf8Type, func(i int) (dv.DataValue, error) {
		s, err := columns[0].Column.Get(i).AsString()
		if err != nil {
			return dv.Null(), err
		}
		return dv.Utf8(caser.String(s)), nil
	})
}

// LengthFunction returns the byte length of a string or binary value.
type LengthFunction struct {
	base
}

func (f *LengthFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	if id := args[0].DataType.ID(); id != dv.TypeUtf8 && id != dv.TypeBinary {
		return dv.NullType, errorcode.BadArguments(
			"Illegal type %s of argument of function %s, expected String or Binary", args[0].DataType, f.name)
	}
	return dv.UInt64Type, nil
}

func (f *LengthFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	return mapRows(rows, dv.UInt64Type, func(i int) (dv.DataValue, error) {
		b, err := columns[0].Column.Get(i).AsBytes()
		if err != nil {
			return dv.Null(), err
		}
		return dv.UInt64(uint64(len(b))), nil
	})
}

// ConcatFunction joins its string arguments.
type ConcatFunction struct {
	base
}

func (f *ConcatFunction) ReturnType(args []dv.DataField) (dv.DataType, error) {
	for _, a := range args {
		if err := expectUtf8(f.name, a); err != nil {
			return dv.NullType, err
		}
	}
	return dv.Utf8Type, nil
}

func (f *ConcatFunction) Eval(columns []ColumnWithField, rows int) (dv.DataColumn, error) {
	if _, err := f.ReturnType(fields(columns)); err != nil {
		return dv.DataColumn{}, err
	}
	return mapRows(rows, dv.Utf8Type, func(i int) (dv.DataValue, error) {
		var sb strings.Builder
		for _, c := range columns {
			s, err := c.Column.Get(i).AsString()
			if err != nil {
				return dv.Null(), err
			}
			sb.WriteString(s)
		}
		return dv.Utf8(sb.String()), nil
	})
}
