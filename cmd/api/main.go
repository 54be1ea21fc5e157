package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/database"
	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/server"
	"github.com/pageza/fitcheck/backend/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fitcheck: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	log.WithField("environment", cfg.Environment.String()).Info("starting fitcheck profile service")

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	deps := server.Dependencies{DB: db, Logger: log}

	if cfg.RedisEnabled() {
		var client *redis.Client
		client, err = database.NewRedisClient(cfg, log)
		if err != nil {
			// Continue without cache and rate limiting if Redis is not available
			log.WithError(err).Warn("failed to connect to Redis")
		} else {
			defer client.Close()
			deps.Redis = client
		}
	}

	if cfg.PhotosEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3cfg, err := config.NewS3Config(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to configure S3: %w", err)
		}
		deps.Photos = storage.NewS3PhotoStore(s3cfg, log)
	}

	srv := server.New(cfg, deps)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("received signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
