// Package errorcode defines the error kinds reported by the execution core.
// Every constructor returns an error marked with its kind so callers can
// branch with errors.Is against the Err* sentinels.
package errorcode

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrBadDataValueType        = errors.New("BadDataValueType")
	ErrNumberArgumentsNotMatch = errors.New("NumberArgumentsNotMatch")
	ErrUnknownFunction         = errors.New("UnknownFunction")
	ErrUnknownAggregateFunc    = errors.New("UnknownAggregateFunction")
	ErrIllegalDataType         = errors.New("IllegalDataType")
	ErrIllegalAggregateExp     = errors.New("IllegalAggregateExp")
	ErrBadArguments            = errors.New("BadArguments")
	ErrUnknownColumn           = errors.New("UnknownColumn")
	ErrLogicalError            = errors.New("LogicalError")
	ErrFunctionPanic           = errors.New("FunctionPanic")
	ErrSyntaxException         = errors.New("SyntaxException")
)

var kinds = []error{
	ErrBadDataValueType,
	ErrNumberArgumentsNotMatch,
	ErrUnknownFunction,
	ErrUnknownAggregateFunc,
	ErrIllegalDataType,
	ErrIllegalAggregateExp,
	ErrBadArguments,
	ErrUnknownColumn,
	ErrLogicalError,
	ErrFunctionPanic,
	ErrSyntaxException,
}

func newf(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(2, format, args...), kind)
}

func BadDataValueType(format string, args ...interface{}) error {
	return newf(ErrBadDataValueType, format, args...)
}

func NumberArgumentsNotMatch(format string, args ...interface{}) error {
	return newf(ErrNumberArgumentsNotMatch, format, args...)
}

func UnknownFunction(format string, args ...interface{}) error {
	return newf(ErrUnknownFunction, format, args...)
}

func UnknownAggregateFunction(format string, args ...interface{}) error {
	return newf(ErrUnknownAggregateFunc, format, args...)
}

func IllegalDataType(format string, args ...interface{}) error {
	return newf(ErrIllegalDataType, format, args...)
}

func IllegalAggregateExp(format string, args ...interface{}) error {
	return newf(ErrIllegalAggregateExp, format, args...)
}

func BadArguments(format string, args ...interface{}) error {
	return newf(ErrBadArguments, format, args...)
}

func UnknownColumn(format string, args ...interface{}) error {
	return newf(ErrUnknownColumn, format, args...)
}

func LogicalError(format string, args ...interface{}) error {
	return newf(ErrLogicalError, format, args...)
}

func FunctionPanic(format string, args ...interface{}) error {
	return newf(ErrFunctionPanic, format, args...)
}

func SyntaxException(format string, args ...interface{}) error {
	return newf(ErrSyntaxException, format, args...)
}

// Code returns the kind name of err, or "Unknown" when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "Unknown"
}
