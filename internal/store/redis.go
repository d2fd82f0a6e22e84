/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/telemetry"
)

// DefaultKeyPrefix namespaces every Redis key.
const DefaultKeyPrefix = "muse:history:"

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// DisableOnError falls back to memory after the first Redis failure.
	DisableOnError bool
}

// RedisStore keeps each history list as a Redis list. When Redis cannot be
// reached it keeps lists in memory for the rest of the process.
type RedisStore struct {
	client   *redis.Client
	logger   zerolog.Logger
	cfg      RedisConfig
	fallback *history.MemoryStore

	mu       sync.RWMutex
	disabled bool
}

// NewRedisStore connects to Redis. An unreachable server is not an error.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	s := &RedisStore{
		logger:   logger.With().Str("component", "redis_store").Logger(),
		cfg:      cfg,
		fallback: history.NewMemoryStore(),
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		s.logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, keeping history in memory")
		_ = client.Close()
		s.disabled = true
		return s
	}

	s.logger.Info().Str("addr", cfg.Addr).Msg("redis history store initialized")
	s.client = client
	return s
}

// IsAvailable reports whether Redis is in use.
func (s *RedisStore) IsAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled && s.client != nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Load returns the list stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) ([]string, error) {
	if !s.IsAvailable() {
		telemetry.StoreOperations.WithLabelValues("memory", "load", "ok").Inc()
		return s.fallback.Load(ctx, key)
	}
	values, err := s.client.LRange(ctx, s.cfg.KeyPrefix+key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		telemetry.StoreOperations.WithLabelValues("redis", "load", "error").Inc()
		s.handleError(err, "load")
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	telemetry.StoreOperations.WithLabelValues("redis", "load", "ok").Inc()
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// Save replaces the list stored under key in one transaction.
func (s *RedisStore) Save(ctx context.Context, key string, values []string) error {
	if !s.IsAvailable() {
		telemetry.StoreOperations.WithLabelValues("memory", "save", "ok").Inc()
		return s.fallback.Save(ctx, key, values)
	}

	redisKey := s.cfg.KeyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKey)
		if len(values) > 0 {
			args := make([]any, len(values))
			for i, v := range values {
				args[i] = v
			}
			pipe.RPush(ctx, redisKey, args...)
		}
		return nil
	})
	if err != nil {
		telemetry.StoreOperations.WithLabelValues("redis", "save", "error").Inc()
		s.handleError(err, "save")
		return fmt.Errorf("save %s: %w", key, err)
	}
	telemetry.StoreOperations.WithLabelValues("redis", "save", "ok").Inc()
	return nil
}

func (s *RedisStore) handleError(err error, operation string) {
	s.logger.Debug().Err(err).Str("operation", operation).Msg("redis operation failed")
	if !s.cfg.DisableOnError {
		return
	}
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
	s.logger.Warn().Msg("disabling redis history store after error")
}
