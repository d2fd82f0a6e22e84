/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// HistoryList stores one recently played list or played log under its store key.
type HistoryList struct {
	Key       string   `gorm:"column:list_key;primaryKey;type:varchar(128)"`
	Values    []string `gorm:"column:entries;type:text;serializer:json"`
	Length    int      `gorm:"column:entry_count"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name across drivers.
func (HistoryList) TableName() string { return "history_lists" }

// SourceSnapshot records the last known cursor of a source so a restarted
// station can report where each source left off.
type SourceSnapshot struct {
	Name      string `gorm:"primaryKey;type:varchar(128)"`
	Grouping  string `gorm:"type:varchar(32)"`
	Tracks    int
	Remaining int
	Active    bool
	UpdatedAt time.Time
}

// TableName pins the table name across drivers.
func (SourceSnapshot) TableName() string { return "source_snapshots" }
