// Package vectorized evaluates planned expressions and aggregations over
// streams of data blocks.
package vectorized

import (
	"github.com/zhaox1n/datafuse/config"
	"github.com/zhaox1n/datafuse/planners"
)

// QueryContext carries the per-query session: settings and the registries
// used to resolve expressions. It implements functions.QueryContext.
type QueryContext struct {
	settings *config.Settings
	resolver *planners.Resolver
}

func NewQueryContext(settings *config.Settings, resolver *planners.Resolver) *QueryContext {
	if settings == nil {
		settings = config.Global()
	}
	if resolver == nil {
		resolver = planners.DefaultResolver()
	}
	return &QueryContext{settings: settings, resolver: resolver}
}

// DefaultQueryContext uses the global settings and registries.
func DefaultQueryContext() *QueryContext {
	return NewQueryContext(nil, nil)
}

func (c *QueryContext) Settings() *config.Settings { return c.settings }

func (c *QueryContext) Resolver() *planners.Resolver { return c.resolver }

func (c *QueryContext) CurrentDatabase() string { return c.settings.Database }

func (c *QueryContext) Version() string { return c.settings.Version }
