package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database holds the GORM connection pool
type Database struct {
	DB *gorm.DB
}

// Options tune how the connection reports itself
type Options struct {
	Logger   *zap.Logger
	LogLevel string
	Tracing  telemetry.DBTracingConfig
}

// NewDatabase connects to Postgres, sizes the pool and, when enabled,
// instruments every statement with spans.
func NewDatabase(cfg *config.DatabaseConfig, opts Options) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 logger.NewGormLogger(opts.Logger, logger.MapGormLogLevel(opts.LogLevel), opts.Tracing.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := telemetry.RegisterDBTracing(db, opts.Tracing, opts.Logger); err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
