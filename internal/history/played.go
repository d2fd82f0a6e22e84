/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/friendsincode/muse/internal/track"
)

// Persistence keys of the played log.
const (
	KeyPlayedTracks    = "played_tracks"
	KeyPlaylistHistory = "playlist_history"
)

// PlayedLog is the master-level log of accepted tracks, most recent first.
// Unlike History buckets it keeps repeats.
type PlayedLog struct {
	mu         sync.RWMutex
	capacity   int
	identities []string
	details    []string
}

// NewPlayedLog creates an empty log capped at capacity entries.
func NewPlayedLog(capacity int) *PlayedLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &PlayedLog{capacity: capacity}
}

// Capacity returns the log cap.
func (l *PlayedLog) Capacity() int {
	return l.capacity
}

// Append logs t as the most recently played track.
func (l *PlayedLog) Append(t track.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.identities = prependCapped(l.identities, t.Identity(), l.capacity)
	l.details = prependCapped(l.details, t.Detail(), l.capacity)
}

func prependCapped(list []string, value string, capacity int) []string {
	next := make([]string, 0, min(len(list)+1, capacity))
	next = append(next, value)
	for _, v := range list {
		if len(next) >= capacity {
			break
		}
		next = append(next, v)
	}
	return next
}

// RecentlyPlayed reports whether identity is among the window most recent entries.
func (l *PlayedLog) RecentlyPlayed(identity string, window int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if window > len(l.identities) {
		window = len(l.identities)
	}
	for _, v := range l.identities[:max(window, 0)] {
		if v == identity {
			return true
		}
	}
	return false
}

// Identities returns a copy of the logged identities.
func (l *PlayedLog) Identities() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.identities...)
}

// Details returns a copy of the logged track details.
func (l *PlayedLog) Details() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.details...)
}

// Restore loads both lists from store.
func (l *PlayedLog) Restore(ctx context.Context, store Store) error {
	ids, err := store.Load(ctx, KeyPlayedTracks)
	if err != nil {
		return fmt.Errorf("load %s: %w", KeyPlayedTracks, err)
	}
	details, err := store.Load(ctx, KeyPlaylistHistory)
	if err != nil {
		return fmt.Errorf("load %s: %w", KeyPlaylistHistory, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.identities = truncate(ids, l.capacity)
	l.details = truncate(details, l.capacity)
	return nil
}

// Persist writes both lists to store.
func (l *PlayedLog) Persist(ctx context.Context, store Store) error {
	if err := store.Save(ctx, KeyPlayedTracks, l.Identities()); err != nil {
		return fmt.Errorf("save %s: %w", KeyPlayedTracks, err)
	}
	if err := store.Save(ctx, KeyPlaylistHistory, l.Details()); err != nil {
		return fmt.Errorf("save %s: %w", KeyPlaylistHistory, err)
	}
	return nil
}

func truncate(list []string, capacity int) []string {
	if len(list) > capacity {
		return list[:capacity]
	}
	return list
}
