/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists history lists in SQL databases or Redis.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/muse/internal/models"
	"github.com/friendsincode/muse/internal/telemetry"
)

// GormStore keeps each history list as one row.
type GormStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewGormStore wraps an open, migrated database.
func NewGormStore(db *gorm.DB, logger zerolog.Logger) *GormStore {
	return &GormStore{db: db, logger: logger.With().Str("component", "gorm_store").Logger()}
}

// Load returns the list stored under key, or nil when nothing was saved yet.
func (s *GormStore) Load(ctx context.Context, key string) ([]string, error) {
	var row models.HistoryList
	err := s.db.WithContext(ctx).Where(&models.HistoryList{Key: key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		telemetry.StoreOperations.WithLabelValues("database", "load", "miss").Inc()
		return nil, nil
	}
	if err != nil {
		telemetry.StoreOperations.WithLabelValues("database", "load", "error").Inc()
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	telemetry.StoreOperations.WithLabelValues("database", "load", "hit").Inc()
	return row.Values, nil
}

// Save replaces the list stored under key.
func (s *GormStore) Save(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	row := models.HistoryList{Key: key, Values: values, Length: len(values)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"entries", "entry_count", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		telemetry.StoreOperations.WithLabelValues("database", "save", "error").Inc()
		return fmt.Errorf("save %s: %w", key, err)
	}
	telemetry.StoreOperations.WithLabelValues("database", "save", "ok").Inc()
	s.logger.Debug().Str("key", key).Int("values", len(values)).Msg("history list saved")
	return nil
}

// SaveSnapshots upserts the last known state of every source.
func (s *GormStore) SaveSnapshots(ctx context.Context, snapshots []models.SourceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&snapshots).Error
	if err != nil {
		return fmt.Errorf("save source snapshots: %w", err)
	}
	return nil
}

// Snapshots returns the stored source states ordered by name.
func (s *GormStore) Snapshots(ctx context.Context) ([]models.SourceSnapshot, error) {
	var out []models.SourceSnapshot
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("load source snapshots: %w", err)
	}
	return out, nil
}
