package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-collection/server/internal/config"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "ai_image_collection", CacheKey("ai_image_collection", ""))
	assert.Equal(t, "ai_image_collection_u-1", CacheKey("ai_image_collection", "u-1"))
	assert.Equal(t, "k_.._etc_passwd", CacheKey("k", "../etc/passwd"))
}

func TestNewLocalCache(t *testing.T) {
	cache, err := NewLocalCache(config.CacheConfig{Backend: "file", Path: t.TempDir(), Key: "k"}, nil, "owner")
	require.NoError(t, err)
	fc, ok := cache.(*FileCache)
	require.True(t, ok)
	assert.Equal(t, "k_owner", fc.key)

	_, err = NewLocalCache(config.CacheConfig{Backend: "redis", Key: "k"}, nil, "")
	assert.Error(t, err)

	_, err = NewLocalCache(config.CacheConfig{Backend: "memcached"}, nil, "")
	assert.Error(t, err)
}
