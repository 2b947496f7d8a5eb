package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration
type DBTracingConfig struct {
	Enabled            bool
	DBName             string
	SlowQueryThreshold time.Duration
	IncludeVariables   bool
}

func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		DBName:             "postgresql",
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

const queryStartKey = "telemetry:query_start"

// RegisterDBTracing installs the otelgorm plugin on db and tags spans of
// queries slower than the configured threshold.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.SlowQueryThreshold
	if threshold <= 0 {
		threshold = DefaultDBTracingConfig().SlowQueryThreshold
	}
	before := func(tx *gorm.DB) { tx.InstanceSet(queryStartKey, time.Now()) }
	after := func(tx *gorm.DB) { markSlowQuery(tx, threshold, logger) }

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", after),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", after),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", after),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after),
	)
}

func markSlowQuery(tx *gorm.DB, threshold time.Duration, logger *zap.Logger) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < threshold {
		return
	}

	span := trace.SpanFromContext(tx.Statement.Context)
	span.SetAttributes(
		attribute.Bool("db.slow_query", true),
		attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
	)
	logger.Warn("slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows_affected", tx.Statement.RowsAffected),
	)
}
