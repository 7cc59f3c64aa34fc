// Package database handles database connections and schema management.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"folio/internal/config"
	"folio/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var readReplica atomic.Pointer[gorm.DB]

// CustomGormLogger routes GORM output through slog.
type CustomGormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

// NewGormLogger returns a slog-backed GORM logger at warn level.
func NewGormLogger(l *slog.Logger) *CustomGormLogger {
	return &CustomGormLogger{
		logger: l,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	}
}

// LogMode returns a copy of the logger at level.
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.Config.LogLevel = level
	return &clone
}

func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed and slow statements. Missing rows and unique violations
// are expected outcomes and are not logged as errors.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error &&
		!errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey):
		l.logger.ErrorContext(ctx, "GORM query error", append(attrs, slog.String("error", err.Error()))...)
	case l.Config.SlowThreshold != 0 && elapsed > l.Config.SlowThreshold && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query", attrs...)
	case l.Config.LogLevel >= logger.Info:
		l.logger.InfoContext(ctx, "GORM query", attrs...)
	}
}

func dsn(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

// GormConfig is the configuration shared by every connection the
// application opens. Driver errors are translated so unique violations
// surface as gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(middleware.Logger),
		TranslateError: true,
	}
}

// Open connects to the primary PostgreSQL database without touching the
// schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn(
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)), GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// Connect opens the primary PostgreSQL connection. Outside production the
// schema is auto-migrated.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("Database connected successfully")

	if !cfg.IsProduction() {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// ConnectReadReplica opens the read replica when DB_READ_HOST is set.
// Repositories fall back to the primary while no replica is registered.
func ConnectReadReplica(cfg *config.Config) error {
	if cfg.DBReadHost == "" {
		return nil
	}

	db, err := gorm.Open(postgres.Open(dsn(
		cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode,
	)), GormConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to read replica: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return err
	}

	SetReadDB(db)
	middleware.Logger.Info("Read replica connected", slog.String("host", cfg.DBReadHost))
	return nil
}

// GetReadDB returns the registered read replica, or nil.
func GetReadDB() *gorm.DB {
	return readReplica.Load()
}

// SetReadDB registers db as the read replica. Passing nil clears it.
func SetReadDB(db *gorm.DB) {
	readReplica.Store(db)
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}
