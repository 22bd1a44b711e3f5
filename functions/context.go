package functions

import (
	"strings"

	dv "github.com/zhaox1n/datafuse/datavalues"
)

// QueryContext supplies session values to context functions.
type QueryContext interface {
	CurrentDatabase() string
	Version() string
}

// BuildArgsFromContext returns the bound arguments of a context function:
// database() and version() take the session value as a literal argument.
// ok is false for every other function.
func BuildArgsFromContext(name string, ctx QueryContext) (args []dv.DataValue, ok bool) {
	switch strings.ToLower(name) {
	case "database":
		return []dv.DataValue{dv.Utf8(ctx.CurrentDatabase())}, true
	case "version":
		return []dv.DataValue{dv.Utf8(ctx.Version())}, true
	}
	return nil, false
}

// IsContextFunction reports whether name takes its arguments from the
// query context.
func IsContextFunction(name string) bool {
	switch strings.ToLower(name) {
	case "database", "version":
		return true
	}
	return false
}
