/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"sync"
)

// Store persists ordered string lists under fixed keys.
type Store interface {
	Load(ctx context.Context, key string) ([]string, error)
	Save(ctx context.Context, key string, values []string) error
}

// MemoryStore keeps lists in process. Used when no durable backend is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]string)}
}

// Load returns a copy of the list stored under key.
func (s *MemoryStore) Load(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.lists[key]))
	copy(out, s.lists[key])
	return out, nil
}

// Save replaces the list stored under key.
func (s *MemoryStore) Save(_ context.Context, key string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append([]string(nil), values...)
	return nil
}
