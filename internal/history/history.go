/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history keeps the process-wide recently played lists used to judge recency.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/friendsincode/muse/internal/track"
)

// DefaultCapacity caps every bucket unless configured otherwise.
const DefaultCapacity = 1000

// Bucket names one recently played list.
type Bucket string

const (
	BucketFiles       Bucket = "files"
	BucketAlbums      Bucket = "albums"
	BucketArtists     Bucket = "artists"
	BucketComposers   Bucket = "composers"
	BucketGenres      Bucket = "genres"
	BucketForms       Bucket = "forms"
	BucketInstruments Bucket = "instruments"
)

var kindBuckets = map[track.GroupingKind]Bucket{
	track.GroupingAlbum:      BucketAlbums,
	track.GroupingArtist:     BucketArtists,
	track.GroupingComposer:   BucketComposers,
	track.GroupingGenre:      BucketGenres,
	track.GroupingForm:       BucketForms,
	track.GroupingInstrument: BucketInstruments,
}

// BucketFor returns the bucket tracking values of the given grouping kind.
func BucketFor(kind track.GroupingKind) (Bucket, bool) {
	b, ok := kindBuckets[kind]
	return b, ok
}

// AllBuckets lists the file bucket followed by every attribute bucket.
func AllBuckets() []Bucket {
	out := []Bucket{BucketFiles}
	for _, kind := range track.AttributeKinds {
		out = append(out, kindBuckets[kind])
	}
	return out
}

// StoreKey is the persistence key of a bucket.
func (b Bucket) StoreKey() string {
	return "recently_played_" + string(b)
}

// History holds one bounded, most-recent-first, deduplicated list per bucket.
// Readers get copies, so they never observe a half-applied Record.
type History struct {
	mu       sync.RWMutex
	capacity int
	lists    map[Bucket][]string
}

// New creates an empty history. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity, lists: make(map[Bucket][]string)}
}

// Capacity returns the per-bucket cap.
func (h *History) Capacity() int {
	return h.capacity
}

// Add moves value to the front of bucket. Empty values are ignored.
func (h *History) Add(bucket Bucket, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(bucket, value)
}

// Record registers t in the file bucket and in every attribute bucket,
// regardless of how the owning playlist is grouped.
func (h *History) Record(t track.Track) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(BucketFiles, t.Identity())
	for _, kind := range track.AttributeKinds {
		h.addLocked(kindBuckets[kind], kind.Attribute(t))
	}
}

func (h *History) addLocked(bucket Bucket, value string) {
	if value == "" {
		return
	}
	old := h.lists[bucket]
	next := make([]string, 0, min(len(old)+1, h.capacity))
	next = append(next, value)
	for _, existing := range old {
		if len(next) >= h.capacity {
			break
		}
		if existing != value {
			next = append(next, existing)
		}
	}
	h.lists[bucket] = next
}

// Snapshot returns a copy of bucket, most recent first.
func (h *History) Snapshot(bucket Bucket) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.lists[bucket]))
	copy(out, h.lists[bucket])
	return out
}

// Window returns the n most recent values of bucket as a set. n <= 0 means all.
func (h *History) Window(bucket Bucket, n int) map[string]struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.lists[bucket]
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make(map[string]struct{}, n)
	for _, v := range list[:n] {
		out[v] = struct{}{}
	}
	return out
}

// Contains reports whether value is anywhere in bucket.
func (h *History) Contains(bucket Bucket, value string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, v := range h.lists[bucket] {
		if v == value {
			return true
		}
	}
	return false
}

// Len returns the number of values held in bucket.
func (h *History) Len(bucket Bucket) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lists[bucket])
}

// Restore replaces every bucket with the values held in store.
func (h *History) Restore(ctx context.Context, store Store) error {
	loaded := make(map[Bucket][]string)
	for _, bucket := range AllBuckets() {
		values, err := store.Load(ctx, bucket.StoreKey())
		if err != nil {
			return fmt.Errorf("load %s: %w", bucket, err)
		}
		if len(values) > h.capacity {
			values = values[:h.capacity]
		}
		loaded[bucket] = values
	}

	h.mu.Lock()
	h.lists = loaded
	h.mu.Unlock()
	return nil
}

// Persist writes every bucket to store.
func (h *History) Persist(ctx context.Context, store Store) error {
	for _, bucket := range AllBuckets() {
		if err := store.Save(ctx, bucket.StoreKey(), h.Snapshot(bucket)); err != nil {
			return fmt.Errorf("save %s: %w", bucket, err)
		}
	}
	return nil
}
