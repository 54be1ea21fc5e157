// Package cache keeps recently read profiles in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/fitcheck/backend/internal/models"
)

const keyPrefix = "profile"

// ProfileCache is a JSON read-through cache for profiles keyed by id
type ProfileCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewProfileCache creates a cache storing entries for ttl
func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{redis: client, ttl: ttl}
}

func key(id uint) string {
	return fmt.Sprintf("%s:%d", keyPrefix, id)
}

// Get returns the cached profile, or nil without error on a miss
func (c *ProfileCache) Get(ctx context.Context, id uint) (*models.UserProfile, error) {
	data, err := c.redis.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %d from cache: %w", id, err)
	}

	var profile models.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile %d: %w", id, err)
	}
	return &profile, nil
}

// Set stores a profile
func (c *ProfileCache) Set(ctx context.Context, profile *models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile %d: %w", profile.ID, err)
	}
	if err := c.redis.Set(ctx, key(profile.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache profile %d: %w", profile.ID, err)
	}
	return nil
}

// Invalidate drops a cached profile
func (c *ProfileCache) Invalidate(ctx context.Context, id uint) error {
	if err := c.redis.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate profile %d: %w", id, err)
	}
	return nil
}
