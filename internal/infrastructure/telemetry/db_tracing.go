package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin
type DBTracingConfig struct {
	Enabled bool
	// DBName labels spans, usually the database name
	DBName string
	// IncludeQueryVariables keeps bound values in db.statement; off by
	// default because statements carry tenant and payment data
	IncludeQueryVariables bool
}

// DBTracingPlugins returns the gorm plugins to pass to persistence.NewDatabase.
// It is empty when database tracing is disabled.
func DBTracingPlugins(cfg DBTracingConfig) []gorm.Plugin {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	return []gorm.Plugin{otelgorm.NewPlugin(opts...)}
}
