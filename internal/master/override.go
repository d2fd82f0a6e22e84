/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package master

import (
	"context"

	"github.com/friendsincode/muse/internal/track"
)

// SetNextOverride queues t to play before any source. If an override is
// already waiting it blocks until Next consumes it or ctx is done.
func (m *Master) SetNextOverride(ctx context.Context, t track.Track) error {
	for {
		if m.TrySetNextOverride(t) {
			return nil
		}
		select {
		case <-m.OverrideReady():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TrySetNextOverride queues t when the override slot is free.
func (m *Master) TrySetNextOverride(t track.Track) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.override != nil {
		return false
	}
	m.override = &t
	m.ready = make(chan struct{})
	m.logger.Debug().Str("track", t.Path).Msg("override queued")
	return true
}

// OverrideReady returns a channel that is closed once the override slot is free.
func (m *Master) OverrideReady() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// OverridePending reports whether an override is waiting to be played.
func (m *Master) OverridePending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.override != nil
}
