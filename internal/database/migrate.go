package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/migrations"
)

// ErrNoMigrations is returned by RollbackLast when nothing has been applied
var ErrNoMigrations = errors.New("no migrations to rollback")

// ErrRollbackUnsupported is returned by RollbackLast on databases migrated with AutoMigrate
var ErrRollbackUnsupported = errors.New("rollback is only supported on postgres")

// SchemaMigration records an applied migration file
type SchemaMigration struct {
	Version   string    `gorm:"primaryKey;size:32"`
	Name      string    `gorm:"size:255;not null;uniqueIndex"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Models lists every table the service owns
func Models() []interface{} {
	return []interface{}{
		&models.UserProfile{},
		&models.APIClient{},
	}
}

// RunMigrations brings the schema up to date.
// PostgreSQL runs the embedded SQL files; SQLite (tests, local dev) uses AutoMigrate.
func RunMigrations(db *gorm.DB, logger logrus.FieldLogger) error {
	log := logging.Component(logger, "migrate")

	if db.Dialector.Name() == "sqlite" {
		log.Info("using GORM auto-migration for SQLite")
		return db.AutoMigrate(Models()...)
	}

	pending, err := Pending(db)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Info("schema is up to date")
		return nil
	}

	for _, name := range pending {
		content, err := migrations.Read(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(content).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
			record := SchemaMigration{
				Version:   migrations.Version(name),
				Name:      name,
				AppliedAt: time.Now().UTC(),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.WithField("migration", name).Info("applied migration")
	}

	return nil
}

// Pending returns the forward migrations that have not been applied yet,
// creating the bookkeeping table on first use
func Pending(db *gorm.DB) ([]string, error) {
	if err := ensureSchemaMigrations(db); err != nil {
		return nil, err
	}

	all, err := migrations.Forward()
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.Name] = true
	}

	var pending []string
	for _, name := range all {
		if !done[name] {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// RollbackLast undoes the most recently applied migration and returns its name
func RollbackLast(db *gorm.DB, logger logrus.FieldLogger) (string, error) {
	if db.Dialector.Name() == "sqlite" {
		return "", ErrRollbackUnsupported
	}

	if err := ensureSchemaMigrations(db); err != nil {
		return "", err
	}

	var last SchemaMigration
	err := db.Order("version DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoMigrations
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	content, err := migrations.Read(migrations.RollbackName(last.Name))
	if err != nil {
		return "", fmt.Errorf("rollback file not found for %s: %w", last.Name, err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(content).Error; err != nil {
			return fmt.Errorf("failed to execute rollback: %w", err)
		}
		return tx.Delete(&SchemaMigration{}, "version = ?", last.Version).Error
	})
	if err != nil {
		return "", err
	}

	logging.Component(logger, "migrate").WithField("migration", last.Name).Info("rolled back migration")
	return last.Name, nil
}

func ensureSchemaMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}
