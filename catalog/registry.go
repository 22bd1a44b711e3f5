// Package catalog maps table names to parquet locations.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/zhaox1n/datafuse/errorcode"
	"github.com/zhaox1n/datafuse/source"
	"github.com/zhaox1n/datafuse/trace"
)

// ErrUnknownTable is returned for names that were never registered.
var ErrUnknownTable = errors.New("unknown table")

// TableMapping binds a logical table name to a parquet file path or an
// http(s) URL.
type TableMapping struct {
	TableName string `json:"table_name"`
	Location  string `json:"location"`
}

// Remote reports whether the table is read over HTTP.
func (m TableMapping) Remote() bool {
	return strings.HasPrefix(m.Location, "http://") || strings.HasPrefix(m.Location, "https://")
}

type Registry struct {
	mu       sync.RWMutex
	basePath string
	mappings map[string]TableMapping
}

func NewRegistry(basePath string) *Registry {
	return &Registry{basePath: basePath, mappings: make(map[string]TableMapping)}
}

// Register adds or replaces a table. Relative file paths are resolved
// against the base path and must exist.
func (r *Registry) Register(tableName, location string) error {
	if tableName == "" {
		return errorcode.BadArguments("Table name must not be empty")
	}
	m := TableMapping{TableName: tableName, Location: location}
	if !m.Remote() {
		if !filepath.IsAbs(location) {
			m.Location = filepath.Join(r.basePath, location)
		}
		if _, err := os.Stat(m.Location); err != nil {
			return errors.Wrapf(err, "file not found for table %s", tableName)
		}
	}

	r.mu.Lock()
	r.mappings[strings.ToLower(tableName)] = m
	r.mu.Unlock()
	trace.GetTracer().Debug(trace.ComponentSource, "Registered table",
		trace.Context("table", tableName, "location", m.Location))
	return nil
}

func (r *Registry) Unregister(tableName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, strings.ToLower(tableName))
}

// Discover registers every *.parquet file directly under the base path as
// a table named after the file. It returns the number of tables added.
func (r *Registry) Discover() (int, error) {
	matches, err := filepath.Glob(filepath.Join(r.basePath, "*.parquet"))
	if err != nil {
		return 0, errors.Wrap(err, "scan data directory")
	}
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".parquet")
		if err := r.Register(name, path); err != nil {
			return 0, err
		}
	}
	return len(matches), nil
}

// LoadFromFile reads mappings from a JSON file of the form
// {"tables": [{"table_name": "t", "location": "t.parquet"}]}.
func (r *Registry) LoadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	var config struct {
		Tables []TableMapping `json:"tables"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return errors.Wrap(err, "failed to parse config file")
	}
	for _, m := range config.Tables {
		if err := r.Register(m.TableName, m.Location); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the mapping of tableName. Names are case-insensitive.
func (r *Registry) Lookup(tableName string) (TableMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[strings.ToLower(tableName)]
	if !ok {
		return TableMapping{}, errors.Wrapf(ErrUnknownTable, "table %s", tableName)
	}
	return m, nil
}

// ListTables returns the registered names in sorted order.
func (r *Registry) ListTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mappings))
	for _, m := range r.mappings {
		names = append(names, m.TableName)
	}
	sort.Strings(names)
	return names
}

// Open starts reading tableName in blocks of batchSize rows.
func (r *Registry) Open(tableName string, batchSize int) (*source.ParquetSource, error) {
	m, err := r.Lookup(tableName)
	if err != nil {
		return nil, err
	}
	if m.Remote() {
		return source.OpenURL(m.Location, batchSize)
	}
	return source.OpenFile(m.Location, batchSize)
}
