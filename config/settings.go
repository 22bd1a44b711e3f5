// Package config holds the tunables of the execution core.
package config

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Environment variables read by LoadFromEnv.
const (
	EnvMaxSleepSeconds  = "DATAFUSE_MAX_SLEEP_SECONDS"
	EnvBatchSize        = "DATAFUSE_BATCH_SIZE"
	EnvGroupParallelism = "DATAFUSE_GROUP_PARALLELISM"
	EnvDatabase         = "DATAFUSE_DATABASE"
	EnvVersion          = "DATAFUSE_VERSION"
)

const (
	DefaultBatchSize = 4096
	DefaultMaxSleep  = 3 * time.Second
	DefaultDatabase  = "default"
	DefaultVersion   = "datafuse-go v0.1.0"
)

// Settings configures function evaluation and block processing.
type Settings struct {
	// MaxSleep is the ceiling enforced by the sleep function.
	MaxSleep time.Duration
	// BatchSize is the number of rows per block produced by sources.
	BatchSize int
	// GroupParallelism bounds concurrent per-partition grouping.
	GroupParallelism int
	// Database is returned by database() when no session overrides it.
	Database string
	Version  string
}

func DefaultSettings() *Settings {
	return &Settings{
		MaxSleep:         DefaultMaxSleep,
		BatchSize:        DefaultBatchSize,
		GroupParallelism: runtime.GOMAXPROCS(0),
		Database:         DefaultDatabase,
		Version:          DefaultVersion,
	}
}

// Clone returns an independent copy.
func (s *Settings) Clone() *Settings {
	c := *s
	return &c
}

// LoadFromEnv overrides fields from the DATAFUSE_* environment variables.
// Values that fail to parse are ignored.
func (s *Settings) LoadFromEnv() {
	if v := os.Getenv(EnvMaxSleepSeconds); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			s.MaxSleep = time.Duration(secs * float64(time.Second))
		}
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.BatchSize = n
		}
	}
	if v := os.Getenv(EnvGroupParallelism); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.GroupParallelism = n
		}
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		s.Database = v
	}
	if v := os.Getenv(EnvVersion); v != "" {
		s.Version = v
	}
}

func (s *Settings) Validate() error {
	if s.MaxSleep < 0 {
		return errors.Newf("invalid max sleep %s: must not be negative", s.MaxSleep)
	}
	if s.BatchSize <= 0 {
		return errors.Newf("invalid batch size %d: must be positive", s.BatchSize)
	}
	if s.GroupParallelism <= 0 {
		return errors.Newf("invalid group parallelism %d: must be positive", s.GroupParallelism)
	}
	return nil
}

var (
	global     *Settings
	globalOnce sync.Once
)

// Global returns the process settings: defaults overridden by the
// environment. Invalid overrides fall back to defaults.
func Global() *Settings {
	globalOnce.Do(func() {
		s := DefaultSettings()
		s.LoadFromEnv()
		if err := s.Validate(); err != nil {
			s = DefaultSettings()
		}
		global = s
	})
	return global
}
