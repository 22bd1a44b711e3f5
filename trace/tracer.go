package trace

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which entries are recorded
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelVerbose
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level. Unknown names report false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return LevelOff, true
	case "ERROR":
		return LevelError, true
	case "WARN":
		return LevelWarn, true
	case "INFO":
		return LevelInfo, true
	case "DEBUG":
		return LevelDebug, true
	case "VERBOSE":
		return LevelVerbose, true
	}
	return LevelOff, false
}

// Component names a subsystem of the execution core
type Component string

const (
	ComponentFunction   Component = "FUNCTION"
	ComponentAdapter    Component = "ADAPTER"
	ComponentExpression Component = "EXPRESSION"
	ComponentFilter     Component = "FILTER"
	ComponentGrouping   Component = "GROUPING"
	ComponentAggregate  Component = "AGGREGATE"
	ComponentExecution  Component = "EXECUTION"
	ComponentSource     Component = "SOURCE"
	ComponentParser     Component = "PARSER"
	ComponentCodec      Component = "CODEC"
)

// AllComponents lists every component known to the tracer.
var AllComponents = []Component{
	ComponentFunction, ComponentAdapter, ComponentExpression, ComponentFilter,
	ComponentGrouping, ComponentAggregate, ComponentExecution, ComponentSource,
	ComponentParser, ComponentCodec,
}

const (
	envLevel      = "DATAFUSE_TRACE_LEVEL"
	envComponents = "DATAFUSE_TRACE_COMPONENTS"

	defaultMaxEntries = 1000
)

// Entry is one recorded trace line
type Entry struct {
	Timestamp time.Time
	Level     Level
	Component Component
	Message   string
	Context   map[string]interface{}
}

// Tracer records component-scoped entries into a bounded buffer and echoes
// them to a writer.
type Tracer struct {
	level      Level
	components map[Component]bool
	mutex      sync.RWMutex
	entries    []Entry
	maxEntries int
	out        io.Writer
}

var (
	globalTracer *Tracer
	tracerOnce   sync.Once
)

// GetTracer returns the process-wide tracer, configured from the environment
// on first use.
func GetTracer() *Tracer {
	tracerOnce.Do(func() {
		globalTracer = NewTracer()
		globalTracer.configureFromEnv()
	})
	return globalTracer
}

// NewTracer creates a disabled tracer writing to stdout.
func NewTracer() *Tracer {
	return &Tracer{
		level:      LevelOff,
		components: make(map[Component]bool),
		maxEntries: defaultMaxEntries,
		out:        os.Stdout,
	}
}

func (t *Tracer) configureFromEnv() {
	if lvl, ok := ParseLevel(os.Getenv(envLevel)); ok {
		t.level = lvl
	}
	spec := os.Getenv(envComponents)
	if spec == "" {
		return
	}
	if strings.EqualFold(spec, "ALL") {
		for _, c := range AllComponents {
			t.components[c] = true
		}
		return
	}
	for _, c := range strings.Split(spec, ",") {
		if c = strings.TrimSpace(c); c != "" {
			t.components[Component(strings.ToUpper(c))] = true
		}
	}
}

func (t *Tracer) SetLevel(level Level) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.level = level
}

// SetOutput redirects printed entries. A nil writer silences printing but
// entries are still buffered.
func (t *Tracer) SetOutput(w io.Writer) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.out = w
}

func (t *Tracer) EnableComponent(c Component) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.components[c] = true
}

func (t *Tracer) DisableComponent(c Component) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.components, c)
}

// IsEnabled reports whether an entry at level for component would be kept.
func (t *Tracer) IsEnabled(level Level, c Component) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return level != LevelOff && t.level >= level && t.components[c]
}

func (t *Tracer) record(level Level, c Component, msg string, ctx []map[string]interface{}) {
	if !t.IsEnabled(level, c) {
		return
	}
	entry := Entry{Timestamp: time.Now(), Level: level, Component: c, Message: msg}
	if len(ctx) > 0 {
		entry.Context = ctx[0]
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
	if t.out != nil {
		fmt.Fprintln(t.out, formatEntry(entry))
	}
}

func formatEntry(e Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s/%s: %s", e.Timestamp.Format("15:04:05.000"), e.Level, e.Component, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, e.Context[k])
		}
	}
	return sb.String()
}

func (t *Tracer) Error(c Component, msg string, ctx ...map[string]interface{}) {
	t.record(LevelError, c, msg, ctx)
}

func (t *Tracer) Warn(c Component, msg string, ctx ...map[string]interface{}) {
	t.record(LevelWarn, c, msg, ctx)
}

func (t *Tracer) Info(c Component, msg string, ctx ...map[string]interface{}) {
	t.record(LevelInfo, c, msg, ctx)
}

func (t *Tracer) Debug(c Component, msg string, ctx ...map[string]interface{}) {
	t.record(LevelDebug, c, msg, ctx)
}

func (t *Tracer) Verbose(c Component, msg string, ctx ...map[string]interface{}) {
	t.record(LevelVerbose, c, msg, ctx)
}

// Entries returns a copy of the buffered entries, oldest first.
func (t *Tracer) Entries() []Entry {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tracer) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.entries = nil
}

// Status summarizes the tracer configuration.
func (t *Tracer) Status() map[string]interface{} {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	comps := make([]string, 0, len(t.components))
	for c, on := range t.components {
		if on {
			comps = append(comps, string(c))
		}
	}
	sort.Strings(comps)
	return map[string]interface{}{
		"level":      t.level.String(),
		"components": comps,
		"entries":    len(t.entries),
		"maxEntries": t.maxEntries,
	}
}

// Context builds an entry context from alternating keys and values.
// Non-string keys are skipped.
func Context(pairs ...interface{}) map[string]interface{} {
	ctx := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			ctx[key] = pairs[i+1]
		}
	}
	return ctx
}
