package store

import (
	"context"
	"fmt"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/constants"
	"aimdot-bot/internal/database"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Open builds the backend selected by STORE_DRIVER wrapped in the read cache.
func Open(cfg *config.Config, logger zerolog.Logger) (*Cache, error) {
	logger = logger.With().Str("component", "store").Logger()

	var backend Store
	switch cfg.StoreDriver {
	case "file":
		fs, err := NewFileStore(cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		backend = fs
	case "sqlite":
		db, err := database.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		backend = NewSQLiteStore(db, logger)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), constants.StoreTimeout)
		defer cancel()
		rs, err := NewRedisStore(ctx, cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		backend = rs
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	return NewCache(backend, cfg.StoreDriver, logger), nil
}

func provide(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*Cache, error) {
	c, err := Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing store")
			}
			return nil
		},
	})
	return c, nil
}

func asStore(c *Cache) Store {
	return c
}

var Module = fx.Provide(provide, asStore)
