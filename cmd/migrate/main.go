package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/pageza/fitcheck/backend/internal/database"
	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/migrations"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List applied and pending migrations")
	flag.Parse()

	if err := run(*rollback, *status); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(rollback, status bool) error {
	log, err := logging.New(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"))
	if err != nil {
		return err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}

	db, err := database.OpenDSN(dsn, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	switch {
	case status:
		return printStatus(db)
	case rollback:
		name, err := database.RollbackLast(db, log)
		if err != nil {
			return err
		}
		log.WithField("migration", name).Info("rollback complete")
		return nil
	default:
		return database.RunMigrations(db, log)
	}
}

func printStatus(db *gorm.DB) error {
	all, err := migrations.Forward()
	if err != nil {
		return err
	}
	pending, err := database.Pending(db)
	if err != nil {
		return err
	}

	waiting := make(map[string]bool, len(pending))
	for _, name := range pending {
		waiting[name] = true
	}
	for _, name := range all {
		state := "applied"
		if waiting[name] {
			state = "pending"
		}
		fmt.Printf("%-8s %s\n", state, name)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
