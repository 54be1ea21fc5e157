package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/logging"
)

// NewRedisClient creates a Redis client from the configured URL and checks the connection
func NewRedisClient(cfg *config.Config, logger logrus.FieldLogger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Component(logger, "redis").WithField("addr", opts.Addr).Info("successfully connected to Redis")
	return client, nil
}
