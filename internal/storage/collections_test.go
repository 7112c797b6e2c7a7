package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ai-collection/server/internal/config"
	"ai-collection/server/internal/models"
)

func testCollectionStore(t *testing.T) *CollectionStore {
	t.Helper()
	sqlStore, err := OpenSQLStore(config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { sqlStore.Close() })

	store := NewCollectionStore(sqlStore)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return store
}

func TestOpenSQLStoreRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQLStore(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestCollectionStore_InsertAndList(t *testing.T) {
	store := testCollectionStore(t)
	ctx := context.Background()

	first, err := store.Insert(ctx, models.Record{OwnerID: "owner-1", MediaURL: "https://img/1", Platform: models.PlatformGemini, Prompt: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := store.Insert(ctx, models.Record{
		OwnerID:  "owner-1",
		MediaURL: "https://img/2",
		Platform: models.PlatformTensor,
		Prompt:   "second",
		Tensor:   &models.TensorParameters{Steps: 30, Seed: "random", Loras: []models.Lora{{Name: "x", Strength: 0.8}}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = store.Insert(ctx, models.Record{OwnerID: "owner-2", MediaURL: "https://img/3", Platform: models.PlatformLeonardo})
	require.NoError(t, err)

	records, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "newest first")
	assert.Equal(t, first.ID, records[1].ID)
	require.NotNil(t, records[0].Tensor)
	assert.Equal(t, 30, records[0].Tensor.Steps)
	assert.Equal(t, "x", records[0].Tensor.Loras[0].Name)
	assert.Nil(t, records[1].Tensor)
}

func TestCollectionStore_BatchInsertAssignsOwnerAndIDs(t *testing.T) {
	store := testCollectionStore(t)
	ctx := context.Background()

	err := store.BatchInsert(ctx, "owner-1", []models.Record{
		{ID: "forged", OwnerID: "someone-else", MediaURL: "https://img/a", Platform: models.PlatformGemini},
		{MediaURL: "https://img/b", Platform: models.PlatformMidjourney},
	})
	require.NoError(t, err)

	records, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "owner-1", r.OwnerID)
		assert.NotEqual(t, "forged", r.ID)
		assert.NotEmpty(t, r.ID)
	}

	others, err := store.List(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)

	assert.NoError(t, store.BatchInsert(ctx, "owner-1", nil))
}

func TestCollectionStore_Delete(t *testing.T) {
	store := testCollectionStore(t)
	ctx := context.Background()

	a, err := store.Insert(ctx, models.Record{OwnerID: "owner-1", MediaURL: "https://img/a", Platform: models.PlatformGemini})
	require.NoError(t, err)
	_, err = store.Insert(ctx, models.Record{OwnerID: "owner-1", MediaURL: "https://img/b", Platform: models.PlatformGemini})
	require.NoError(t, err)
	_, err = store.Insert(ctx, models.Record{OwnerID: "owner-2", MediaURL: "https://img/c", Platform: models.PlatformGemini})
	require.NoError(t, err)

	require.NoError(t, store.DeleteOne(ctx, a.ID))
	require.NoError(t, store.DeleteOne(ctx, "does-not-exist"))

	records, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "https://img/b", records[0].MediaURL)

	require.NoError(t, store.DeleteAllByOwner(ctx, "owner-1"))
	records, err = store.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = store.List(ctx, "owner-2")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLStore_WithTxRollsBack(t *testing.T) {
	store := testCollectionStore(t)
	ctx := context.Background()

	err := store.sql.WithTx(ctx, func(tx *gorm.DB) error {
		row := &models.CollectionRow{ID: "tx-1", OwnerID: "owner-1", MediaURL: "https://img/tx", Platform: "gemini", CreatedAt: time.Now()}
		require.NoError(t, tx.Create(row).Error)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	records, err := store.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}
