package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/logging"
)

// Connection pool settings for PostgreSQL
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

// New opens the database configured in cfg and verifies the connection
func New(cfg *config.Config, logger logrus.FieldLogger) (*gorm.DB, error) {
	log := logging.Component(logger, "database")

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		log.WithFields(logrus.Fields{
			"host": cfg.DBHost,
			"port": cfg.DBPort,
			"user": cfg.DBUser,
			"name": cfg.DBName,
		}).Info("connecting to postgres")
		dialector = postgres.Open(cfg.PostgresDSN())
	case config.DriverSQLite:
		log.WithField("path", cfg.SQLitePath).Info("opening sqlite database")
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	return open(dialector, cfg.DBDriver == config.DriverPostgres, log)
}

// OpenDSN connects to the postgres database at dsn. It is used by tooling
// that is handed a DATABASE_URL instead of the application config.
func OpenDSN(dsn string, logger logrus.FieldLogger) (*gorm.DB, error) {
	log := logging.Component(logger, "database")
	log.Info("connecting to postgres")
	return open(postgres.Open(dsn), true, log)
}

func open(dialector gorm.Dialector, pooled bool, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database handle: %w", err)
	}
	if pooled {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	} else {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	log.Info("successfully connected to database")
	return db, nil
}

// HealthCheck checks if the database is accessible
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newGormLogger routes gorm's slow-query and error output through logrus
func newGormLogger(log logrus.FieldLogger) gormlogger.Interface {
	return gormlogger.New(log, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
