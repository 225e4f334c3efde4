package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yourorg/handoff/internal/config"
	"github.com/yourorg/handoff/pkg/types"
)

// Cache maps content to a previously stored response body.
type Cache interface {
	// Locate returns the storage address for content, preparing its
	// containing scope if needed.
	Locate(content string) (string, error)
	// Load reports ok == false when nothing was stored for content.
	Load(ctx context.Context, content string) (body string, ok bool, err error)
	Store(ctx context.Context, content, body string) error
	Close() error
}

// Lister is implemented by backends that can enumerate their entries.
type Lister interface {
	List(ctx context.Context) ([]types.CacheEntry, error)
}

// Open builds the backend selected by cfg.Backend.
func Open(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		return NewFileCache(cfg.Dir), nil
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisCache(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
