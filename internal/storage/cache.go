package storage

import (
	"fmt"
	"strings"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/interfaces"
)

// CacheKey scopes the configured cache key to an owner. An empty owner
// keeps the single global key.
func CacheKey(key, owner string) string {
	if owner == "" {
		return key
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, owner)
	return key + "_" + safe
}

// NewLocalCache builds the configured cache backend for owner. redis may be
// nil unless the backend is "redis".
func NewLocalCache(cfg config.CacheConfig, redis *RedisStore, owner string) (interfaces.LocalCache, error) {
	key := CacheKey(cfg.Key, owner)
	switch cfg.Backend {
	case "file":
		return NewFileCache(cfg.Path, key), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis connection")
		}
		return NewRedisCache(redis, key), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}
