// Package aggregates provides aggregate functions with mergeable partial
// states and the registry that resolves them by name.
package aggregates

import (
	"sort"
	"strings"
	"sync"

	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

// AggregateFunction folds rows into a state. States of the same function
// built on different partitions can be merged.
type AggregateFunction interface {
	Name() string
	ReturnType() dv.DataType
	Nullable() bool
	// Accumulate folds every row of the argument columns into the state.
	Accumulate(columns []dv.DataColumn, rows int) error
	// Merge folds the state of other, which must come from the same
	// function, into this one.
	Merge(other AggregateFunction) error
	Result() (dv.DataValue, error)
	// Clone returns a function with the same binding and an empty state.
	Clone() AggregateFunction
	String() string
}

// Creator builds an aggregate function for the given argument fields.
type Creator func(displayName string, args []dv.DataField) (AggregateFunction, error)

// Factory resolves aggregate names case-insensitively. Distinct variants
// are registered under the base name with a "Distinct" suffix.
type Factory struct {
	mu       sync.RWMutex
	creators map[string]Creator
}

var (
	defaultFactory *Factory
	defaultOnce    sync.Once
)

func Default() *Factory {
	defaultOnce.Do(func() {
		defaultFactory = NewFactory()
	})
	return defaultFactory
}

func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]Creator)}
	f.Register("count", newCount)
	f.Register("sum", newSum)
	f.Register("avg", newAvg)
	f.Register("min", newMinMax(false))
	f.Register("max", newMinMax(true))
	f.Register("countDistinct", newDistinct(newCount))
	f.Register("sumDistinct", newDistinct(newSum))
	f.Register("avgDistinct", newDistinct(newAvg))
	trace.GetTracer().Info(trace.ComponentAggregate, "Registered aggregate functions",
		trace.Context("count", len(f.creators)))
	return f
}

func (f *Factory) Register(name string, creator Creator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[strings.ToLower(name)] = creator
}

func (f *Factory) Check(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[strings.ToLower(name)]
	return ok
}

func (f *Factory) RegisteredNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.creators))
	for n := range f.creators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get builds the aggregate function registered as name.
func (f *Factory) Get(name string, args []dv.DataField) (AggregateFunction, error) {
	f.mu.RLock()
	creator, ok := f.creators[strings.ToLower(name)]
	f.mu.RUnlock()
	if !ok {
		return nil, errorcode.UnknownAggregateFunction("Unsupported AggregateFunction: %s", name)
	}
	return creator(name, args)
}

// DistinctName returns the registry name of op, with the Distinct suffix
// when distinct is set.
func DistinctName(op string, distinct bool) string {
	if distinct {
		return op + "Distinct"
	}
	return op
}

func expectArgs(name string, args []dv.DataField, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return errorcode.NumberArgumentsNotMatch(
				"AggregateFunction %s expect to have %d arguments, but got %d", name, min, len(args))
		}
		return errorcode.NumberArgumentsNotMatch(
			"AggregateFunction %s expect to have [%d, %d] arguments, but got %d", name, min, max, len(args))
	}
	return nil
}

func mismatch(name string, other AggregateFunction) error {
	return errorcode.LogicalError("Cannot merge %s state into %s", other.Name(), name)
}
