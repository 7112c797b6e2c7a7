package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/collection"
	"ai-collection/server/internal/config"
	"ai-collection/server/internal/interfaces"
	"ai-collection/server/internal/storage"
)

// backends are the storage connections shared by every command
type backends struct {
	sql     *storage.SQLStore
	redis   *storage.RedisStore
	gateway *storage.CollectionStore
}

func openBackends(cfg *config.Config) (*backends, error) {
	sqlStore, err := storage.OpenSQLStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}
	log.WithField("driver", cfg.Database.Driver).Info("Database connected")

	b := &backends{sql: sqlStore, gateway: storage.NewCollectionStore(sqlStore)}

	if cfg.Cache.Backend == "redis" {
		redisStore, err := storage.NewRedisStore(cfg.Database.Redis)
		if err != nil {
			sqlStore.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Redis connected")
		b.redis = redisStore
	}
	return b, nil
}

func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.WithError(err).Warn("Failed to close redis")
		}
	}
	if err := b.sql.Close(); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}
}

func (b *backends) cache(cfg config.CacheConfig, owner string) (interfaces.LocalCache, error) {
	return storage.NewLocalCache(cfg, b.redis, owner)
}

// adminSyncer builds a syncer for the admin commands. It shares the owner's
// cache key with the server and has no uploader or assistant.
func (b *backends) adminSyncer(cfg *config.Config, owner string) (*collection.Syncer, error) {
	cache, err := b.cache(cfg.Cache, owner)
	if err != nil {
		return nil, err
	}
	return collection.NewSyncer(collection.Deps{Gateway: b.gateway, Cache: cache}, nil), nil
}
