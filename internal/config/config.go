/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DatabaseBackend selects the SQL driver used by the database history store.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// HistoryBackend selects where recently played history is persisted.
type HistoryBackend string

const (
	HistoryMemory   HistoryBackend = "memory"
	HistoryDatabase HistoryBackend = "database"
	HistoryRedis    HistoryBackend = "redis"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment  string
	HTTPBind     string
	HTTPPort     int
	SourcesFile  string
	WatchLibrary bool

	// History persistence
	HistoryBackend  HistoryBackend
	HistoryCapacity int
	DBBackend       DatabaseBackend
	DBDSN           string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Event fan-out; empty disables NATS forwarding
	NATSURL string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
// A .env file in the working directory is honoured but never overrides the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:  getEnvAny([]string{"MUSE_ENV"}, "development"),
		HTTPBind:     getEnvAny([]string{"MUSE_HTTP_BIND"}, "127.0.0.1"),
		HTTPPort:     getEnvIntAny([]string{"MUSE_HTTP_PORT"}, 8090),
		SourcesFile:  getEnvAny([]string{"MUSE_SOURCES_FILE"}, "sources.yaml"),
		WatchLibrary: getEnvBoolAny([]string{"MUSE_WATCH_LIBRARY"}, false),

		HistoryBackend:  HistoryBackend(getEnvAny([]string{"MUSE_HISTORY_BACKEND"}, string(HistoryMemory))),
		HistoryCapacity: getEnvIntAny([]string{"MUSE_HISTORY_CAPACITY"}, 1000),
		DBBackend:       DatabaseBackend(getEnvAny([]string{"MUSE_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:           getEnvAny([]string{"MUSE_DB_DSN"}, ""),
		RedisAddr:       getEnvAny([]string{"MUSE_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:   getEnvAny([]string{"MUSE_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:         getEnvIntAny([]string{"MUSE_REDIS_DB", "REDIS_DB"}, 0),

		NATSURL: getEnvAny([]string{"MUSE_NATS_URL", "NATS_URL"}, ""),

		TracingEnabled:    getEnvBoolAny([]string{"MUSE_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"MUSE_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"MUSE_TRACING_SAMPLE_RATE"}, 1.0),
	}

	switch cfg.HistoryBackend {
	case HistoryMemory, HistoryRedis:
	case HistoryDatabase:
		if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
		}
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("MUSE_DB_DSN must be provided for the database history backend")
		}
	default:
		return nil, fmt.Errorf("unsupported history backend %q", cfg.HistoryBackend)
	}

	if cfg.HistoryCapacity < 1 {
		return nil, fmt.Errorf("MUSE_HISTORY_CAPACITY must be positive, got %d", cfg.HistoryCapacity)
	}

	return cfg, nil
}

// HTTPAddr returns the listen address of the control API.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
