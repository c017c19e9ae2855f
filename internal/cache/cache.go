// Package cache mirrors the latest prediction per employee into Redis and fans out
// newly saved predictions on a pub/sub channel.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulseai/backend/internal/models"
)

const (
	latestKeyPrefix    = "pulse:prediction:latest:"
	PredictionsChannel = "pulse:predictions"
)

// PredictionCache is safe to use with a nil client: every call becomes a no-op and
// lookups report a miss.
type PredictionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *PredictionCache {
	return &PredictionCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server. An empty URL yields a disabled cache.
func Connect(ctx context.Context, url string, ttl time.Duration) (*PredictionCache, error) {
	if url == "" {
		return New(nil, ttl), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return New(nil, ttl), fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return New(nil, ttl), fmt.Errorf("redis ping: %w", err)
	}
	return New(client, ttl), nil
}

func (c *PredictionCache) Available() bool {
	return c != nil && c.client != nil
}

func LatestKey(employeeID int64) string {
	return fmt.Sprintf("%s%d", latestKeyPrefix, employeeID)
}

// Latest returns the mirrored prediction for an employee. ok is false on a miss.
func (c *PredictionCache) Latest(ctx context.Context, employeeID int64) (models.MlPrediction, bool, error) {
	if !c.Available() {
		return models.MlPrediction{}, false, nil
	}
	val, err := c.client.Get(ctx, LatestKey(employeeID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.MlPrediction{}, false, nil
	}
	if err != nil {
		return models.MlPrediction{}, false, err
	}
	var p models.MlPrediction
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return models.MlPrediction{}, false, err
	}
	return p, true, nil
}

// Store writes the pointer with the cache TTL so it expires when the prediction goes stale.
func (c *PredictionCache) Store(ctx context.Context, p models.MlPrediction) error {
	if !c.Available() {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, LatestKey(p.EmployeeID), data, c.ttl).Err()
}

func (c *PredictionCache) Publish(ctx context.Context, p models.MlPrediction) error {
	if !c.Available() {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, PredictionsChannel, data).Err()
}

func (c *PredictionCache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.client.Close()
}
