package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/models"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Helper methods for common operations
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// RedisCache keeps the record list as one JSON string value
type RedisCache struct {
	store *RedisStore
	key   string
}

// NewRedisCache creates a Redis-backed local cache under key
func NewRedisCache(store *RedisStore, key string) *RedisCache {
	return &RedisCache{store: store, key: key}
}

// Load returns the cached records. Unreachable Redis reads as a miss;
// corrupted values are deleted.
func (c *RedisCache) Load(ctx context.Context) []models.Record {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).Warnf("failed to read cache key %s", c.key)
		}
		return nil
	}

	var records []models.Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		log.WithError(err).Warnf("discarding corrupted cache key %s", c.key)
		if err := c.store.Del(ctx, c.key); err != nil {
			log.WithError(err).Warnf("failed to delete cache key %s", c.key)
		}
		return nil
	}
	return records
}

// Save replaces the cached records without expiry
func (c *RedisCache) Save(ctx context.Context, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := c.store.Set(ctx, c.key, data, 0); err != nil {
		return fmt.Errorf("failed to store cache key %s: %w", c.key, err)
	}
	return nil
}
