// Command create_client registers an API client and prints its credentials once.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/database"
	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/service"
)

func main() {
	name := flag.String("name", "", "Name of the API client")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: create_client -name <client-name>")
		os.Exit(2)
	}

	if err := run(*name); err != nil {
		fmt.Fprintf(os.Stderr, "create_client: %v\n", err)
		os.Exit(1)
	}
}

func run(name string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, secret, err := auth.CreateClient(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	fmt.Printf("client_id:     %s\n", client.ID)
	fmt.Printf("client_secret: %s\n", secret)
	fmt.Println("Store the secret now; it cannot be shown again.")
	return nil
}
