package functions

import (
	"sort"
	"strings"
	"sync"

	"github.com/zhaox1n/datafuse/config"
	dv "github.com/zhaox1n/datafuse/datavalues"
	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/trace"
)

// FactoryFunc builds a function instance. displayName is the name the
// caller used, so aliases keep their spelling in plans and errors.
type FactoryFunc func(displayName string, args []dv.DataField) (Function, error)

// Factory resolves case-insensitive function names and operator symbols to
// function instances. Lookups take a read lock; Register takes the write
// lock, so function authors can add functions at any time.
type Factory struct {
	mu       sync.RWMutex
	creators map[string]FactoryFunc
	settings *config.Settings
}

var (
	defaultFactory *Factory
	defaultOnce    sync.Once
)

// Default returns the process-wide factory, created with the builtin
// families on first use.
func Default() *Factory {
	defaultOnce.Do(func() {
		defaultFactory = NewFactory(config.Global())
	})
	return defaultFactory
}

// NewFactory builds a factory with every builtin family registered.
func NewFactory(settings *config.Settings) *Factory {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	f := &Factory{creators: make(map[string]FactoryFunc), settings: settings}
	registerArithmetic(f)
	registerComparison(f)
	registerLogic(f)
	registerStrings(f)
	registerUdfs(f)
	registerHashes(f)
	registerConversions(f)
	trace.GetTracer().Info(trace.ComponentFunction, "Registered builtin functions",
		trace.Context("count", len(f.creators)))
	return f
}

func (f *Factory) Settings() *config.Settings { return f.settings }

// Register adds or replaces a function under a case-insensitive name.
func (f *Factory) Register(name string, creator FactoryFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[strings.ToLower(name)] = creator
}

// Check reports whether name resolves to a function.
func (f *Factory) Check(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.creators[strings.ToLower(name)]
	return ok
}

// RegisteredNames returns every registered name in sorted order.
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

// Get builds the function for name with the given argument fields, checks
// the arity and wraps it in the null/constant adapter.
func (f *Factory) Get(name string, args []dv.DataField) (Function, error) {
	f.mu.RLock()
	creator, ok := f.creators[strings.ToLower(name)]
	f.mu.RUnlock()
	if !ok {
		return nil, errorcode.UnknownFunction("Unsupported Function: %s", name)
	}
	fn, err := creator(name, args)
	if err != nil {
		return nil, err
	}
	if err := checkArity(fn, len(args)); err != nil {
		return nil, err
	}
	return NewAdapter(fn), nil
}

func checkArity(fn Function, n int) error {
	if min, max, ok := fn.VariadicArguments(); ok {
		if n < min || n > max {
			return errorcode.NumberArgumentsNotMatch(
				"Function %s expect to have [%d, %d] arguments, but got %d", fn.Name(), min, max, n)
		}
		return nil
	}
	if want := fn.NumArguments(); want != n {
		return errorcode.NumberArgumentsNotMatch(
			"Function %s expect to have %d arguments, but got %d", fn.Name(), want, n)
	}
	return nil
}
