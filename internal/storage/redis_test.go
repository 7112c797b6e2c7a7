package storage

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/models"
)

func testRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	store, err := NewRedisStore(config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	store, _ := testRedisStore(t)
	cache := NewRedisCache(store, "ai_image_collection")
	ctx := context.Background()

	assert.Nil(t, cache.Load(ctx))

	require.NoError(t, cache.Save(ctx, []models.Record{{ID: "1", Prompt: "a dog", Platform: models.PlatformGemini}}))
	got := cache.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "a dog", got[0].Prompt)
}

func TestRedisCache_CorruptedValueIsDeleted(t *testing.T) {
	store, mr := testRedisStore(t)
	cache := NewRedisCache(store, "key")
	require.NoError(t, mr.Set("key", "[{broken"))

	assert.Nil(t, cache.Load(context.Background()))
	assert.False(t, mr.Exists("key"))
}

func TestRedisCache_UnreachableReadsAsMiss(t *testing.T) {
	store, mr := testRedisStore(t)
	cache := NewRedisCache(store, "key")
	mr.Close()

	assert.Nil(t, cache.Load(context.Background()))
	assert.Error(t, cache.Save(context.Background(), nil))
}
