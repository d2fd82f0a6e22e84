/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"

	"github.com/friendsincode/muse/internal/track"
)

// Keyword tables used to derive form and instrument from titles.
var (
	formKeywords = []string{
		"sonata", "symphony", "concerto", "quartet", "quintet", "trio", "suite",
		"prelude", "fugue", "nocturne", "etude", "waltz", "mazurka", "requiem",
		"mass", "overture", "rhapsody", "variations", "fantasia", "toccata",
	}
	instrumentKeywords = []string{
		"piano", "violin", "viola", "cello", "guitar", "organ", "harpsichord",
		"flute", "clarinet", "oboe", "bassoon", "trumpet", "horn", "harp", "lute",
	}
)

// TagAccessor builds tracks from embedded tags. Files without readable tags
// fall back to the file name for the title and the parent directory for the
// album. Results are cached per path.
type TagAccessor struct {
	mu    sync.RWMutex
	cache map[string]track.Track
}

// NewTagAccessor creates an accessor with an empty cache.
func NewTagAccessor() *TagAccessor {
	return &TagAccessor{cache: make(map[string]track.Track)}
}

// Track implements track.Accessor.
func (a *TagAccessor) Track(_ context.Context, path string) (track.Track, error) {
	a.mu.RLock()
	cached, ok := a.cache[path]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	t, err := readTrack(path)
	if err != nil {
		return track.Track{}, err
	}

	a.mu.Lock()
	a.cache[path] = t
	a.mu.Unlock()
	return t, nil
}

// Forget drops a cached entry so the next lookup re-reads the file.
func (a *TagAccessor) Forget(path string) {
	a.mu.Lock()
	delete(a.cache, path)
	a.mu.Unlock()
}

func readTrack(path string) (track.Track, error) {
	file, err := os.Open(path)
	if err != nil {
		return track.Track{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	t := track.Track{Path: path}
	metadata, err := tag.ReadFrom(file)
	if err != nil {
		t.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Album = filepath.Base(filepath.Dir(path))
		return Classify(t), nil
	}

	t.Title = getOrDefault(metadata.Title(), strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	t.Album = getOrDefault(metadata.Album(), filepath.Base(filepath.Dir(path)))
	t.Artist = getOrDefault(metadata.Artist(), metadata.AlbumArtist())
	t.Composer = metadata.Composer()
	t.Genre = metadata.Genre()
	return Classify(t), nil
}

// Classify fills Form and Instrument from keywords in the title when they
// are not already set.
func Classify(t track.Track) track.Track {
	title := strings.ToLower(t.Title)
	if t.Form == "" {
		t.Form = firstKeyword(title, formKeywords)
	}
	if t.Instrument == "" {
		t.Instrument = firstKeyword(title, instrumentKeywords)
	}
	return t
}

func firstKeyword(text string, keywords []string) string {
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		for _, k := range keywords {
			if word == k || word == k+"s" {
				return k
			}
		}
	}
	return ""
}

func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
