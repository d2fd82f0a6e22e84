/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/db"
	"github.com/friendsincode/muse/internal/history"
)

// Open builds the history store selected by cfg. The returned close function
// releases whatever connection the store holds.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (history.Store, func() error, error) {
	switch cfg.HistoryBackend {
	case config.HistoryMemory:
		return history.NewMemoryStore(), func() error { return nil }, nil
	case config.HistoryDatabase:
		database, err := db.Connect(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect history database: %w", err)
		}
		return NewGormStore(database, logger), func() error { return db.Close(database) }, nil
	case config.HistoryRedis:
		s := NewRedisStore(ctx, RedisConfig{
			Addr:           cfg.RedisAddr,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DisableOnError: true,
		}, logger)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend: %s", cfg.HistoryBackend)
	}
}
