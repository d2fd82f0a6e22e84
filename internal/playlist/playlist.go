/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist orders the tracks of one source and tracks playback
// progress through them.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/shuffle"
	"github.com/friendsincode/muse/internal/telemetry"
	"github.com/friendsincode/muse/internal/track"
)

var (
	// ErrMissingAccessor is returned when a playlist is loaded without a track accessor.
	ErrMissingAccessor = errors.New("playlist: track accessor is required")
	// ErrStartTrackNotFound is returned when the configured start track is not in the playlist.
	ErrStartTrackNotFound = errors.New("playlist: start track not found")
)

// Boundary reports a change of group between consecutive tracks.
type Boundary struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Step is the result of advancing or peeking.
type Step struct {
	Track    track.Track `json:"track"`
	Boundary *Boundary   `json:"boundary,omitempty"`
}

// Playlist owns one sorted sequence, a cursor and the pending/played partition.
// A single writer advances it while any number of readers query it.
type Playlist struct {
	mu     sync.RWMutex
	name   string
	cfg    config.Playback
	hist   *history.History
	logger zerolog.Logger
	rng    *rand.Rand

	input    []track.Track
	tracks   []track.Track
	playedAt []bool
	current  int
	pending  map[string]int
	played   []string
	shuffle  shuffle.Result
}

// Load resolves every path through accessor and builds a sorted playlist.
func Load(ctx context.Context, name string, paths []string, accessor track.Accessor, cfg config.Playback, hist *history.History, logger zerolog.Logger) (*Playlist, error) {
	if accessor == nil {
		return nil, ErrMissingAccessor
	}
	tracks := make([]track.Track, 0, len(paths))
	for _, path := range paths {
		t, err := accessor.Track(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load track %s: %w", path, err)
		}
		tracks = append(tracks, t)
	}
	return New(ctx, name, tracks, cfg, hist, logger)
}

// New builds a playlist from already resolved tracks and sorts it. A nil
// history gives the playlist a private one.
func New(ctx context.Context, name string, tracks []track.Track, cfg config.Playback, hist *history.History, logger zerolog.Logger) (*Playlist, error) {
	if hist == nil {
		hist = history.New(history.DefaultCapacity)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p := &Playlist{
		name:    name,
		cfg:     cfg,
		hist:    hist,
		logger:  logger.With().Str("component", "playlist").Str("playlist", name).Logger(),
		rng:     rand.New(rand.NewSource(seed)),
		input:   slices.Clone(tracks),
		current: -1,
	}
	if err := p.Sort(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Sort recomputes the playback order from the original track set and
// restarts playback from the beginning.
func (p *Playlist) Sort(ctx context.Context) error {
	_, span := telemetry.StartSpan(ctx, "playlist.sort",
		attribute.String("playlist", p.name),
		attribute.String("grouping", p.cfg.Grouping.String()),
		attribute.Int("tracks", len(p.input)),
	)
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	s := sorter{kind: p.cfg.Grouping, cfg: p.cfg, hist: p.hist, rng: p.rng, logger: p.logger}
	order, res, err := s.sort(p.input)
	if err != nil {
		span.RecordError(err)
		return err
	}

	p.tracks = order
	p.playedAt = make([]bool, len(order))
	p.shuffle = res
	p.current = -1
	p.played = nil
	p.pending = make(map[string]int, len(order))
	for _, t := range order {
		p.pending[t.Identity()]++
	}

	p.logger.Debug().
		Int("tracks", len(order)).
		Str("grouping", p.cfg.Grouping.String()).
		Bool("shuffle_skipped", res.Skipped).
		Msg("playlist sorted")
	return nil
}

// Reset re-sorts the playlist for another loop.
func (p *Playlist) Reset(ctx context.Context) error {
	return p.Sort(ctx)
}

// NextTrack advances past places tracks plus one. When skipGrouping is set
// and the landing track continues the previous group, it keeps advancing
// until the group changes. Every track passed over is marked played. It
// returns false without changing anything when the sequence would run out.
func (p *Playlist) NextTrack(skipGrouping bool, places int) (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.current + 1 + max(places, 0)
	if idx >= len(p.tracks) {
		return Step{}, false
	}

	kind := p.cfg.Grouping
	if skipGrouping && kind.IsGrouped() && idx > 0 {
		prev := kind.Attribute(p.tracks[idx-1])
		for idx < len(p.tracks) && kind.Attribute(p.tracks[idx]) == prev {
			idx++
		}
		if idx >= len(p.tracks) {
			return Step{}, false
		}
	}

	step := Step{Track: p.tracks[idx], Boundary: p.boundaryLocked(p.current, idx)}
	for i := p.current + 1; i <= idx; i++ {
		p.markPlayedLocked(i)
	}
	p.current = idx
	p.hist.Record(step.Track)
	telemetry.TracksAdvanced.WithLabelValues(p.name).Inc()
	return step, true
}

// UpcomingTrack returns what NextTrack(false, places) would return without
// changing any state. The boundary is relative to the current track.
func (p *Playlist) UpcomingTrack(places int) (Step, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx := p.current + 1 + max(places, 0)
	if idx >= len(p.tracks) {
		return Step{}, false
	}
	return Step{Track: p.tracks[idx], Boundary: p.boundaryLocked(p.current, idx)}, true
}

// PeekAt returns the track places positions after the next one for queue
// listings. The boundary is relative to the track directly before it, so
// consecutive peeks read as a continuous sequence.
func (p *Playlist) PeekAt(places int) (Step, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	idx := p.current + 1 + max(places, 0)
	if idx >= len(p.tracks) {
		return Step{}, false
	}
	return Step{Track: p.tracks[idx], Boundary: p.boundaryLocked(idx-1, idx)}, true
}

// CurrentTrack returns the track under the cursor.
func (p *Playlist) CurrentTrack() (track.Track, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current < 0 || p.current >= len(p.tracks) {
		return track.Track{}, false
	}
	return p.tracks[p.current], true
}

// boundaryLocked reports the group change from index from to index to.
// A from index before the start counts as a change from the empty group.
func (p *Playlist) boundaryLocked(from, to int) *Boundary {
	kind := p.cfg.Grouping
	if !kind.IsGrouped() {
		return nil
	}
	next := kind.Attribute(p.tracks[to])
	if from < 0 {
		return &Boundary{New: next}
	}
	prev := kind.Attribute(p.tracks[from])
	if prev == next {
		return nil
	}
	return &Boundary{Old: prev, New: next}
}

// markPlayedLocked moves the track at position i from pending to played.
// Positions already played are left alone.
func (p *Playlist) markPlayedLocked(i int) {
	if p.playedAt[i] {
		return
	}
	p.playedAt[i] = true
	id := p.tracks[i].Identity()
	p.dropPendingLocked(id)
	p.played = append(p.played, id)
}

// unplayLocked returns the track at position i to pending if it was played.
func (p *Playlist) unplayLocked(i int) {
	if !p.playedAt[i] {
		return
	}
	p.playedAt[i] = false
	id := p.tracks[i].Identity()
	for j := len(p.played) - 1; j >= 0; j-- {
		if p.played[j] == id {
			p.played = slices.Delete(p.played, j, j+1)
			break
		}
	}
	p.pending[id]++
}

func (p *Playlist) dropPendingLocked(id string) {
	if p.pending[id] > 0 {
		p.pending[id]--
		if p.pending[id] == 0 {
			delete(p.pending, id)
		}
	}
}

// InsertUpcomingTracks splices tracks in at offset positions after the
// cursor. Offsets that point into the past are moved to the next slot. With
// overwrite, the track already at that slot is removed first.
func (p *Playlist) InsertUpcomingTracks(tracks []track.Track, offset int, overwrite bool) int {
	if len(tracks) == 0 {
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.current + offset
	if pos <= p.current {
		pos = p.current + 1
	}
	if pos > len(p.tracks) {
		pos = len(p.tracks)
	}
	if overwrite && pos < len(p.tracks) {
		removed := p.tracks[pos]
		if !p.playedAt[pos] {
			p.dropPendingLocked(removed.Identity())
		}
		p.tracks = slices.Delete(p.tracks, pos, pos+1)
		p.playedAt = slices.Delete(p.playedAt, pos, pos+1)
		if j := slices.IndexFunc(p.input, func(t track.Track) bool { return t.Identity() == removed.Identity() }); j >= 0 {
			p.input = slices.Delete(p.input, j, j+1)
		}
	}

	p.tracks = slices.Insert(p.tracks, pos, tracks...)
	p.playedAt = slices.Insert(p.playedAt, pos, make([]bool, len(tracks))...)
	for _, t := range tracks {
		p.pending[t.Identity()]++
	}
	p.input = append(p.input, tracks...)
	p.logger.Debug().Int("position", pos).Int("count", len(tracks)).Bool("overwrite", overwrite).Msg("tracks inserted")
	return pos
}

// InsertExtension places t immediately after the cursor.
func (p *Playlist) InsertExtension(t track.Track, overwrite bool) int {
	return p.InsertUpcomingTracks([]track.Track{t}, 1, overwrite)
}

// GroupCount counts tracks whose group value equals value. Ungrouped
// playlists always report zero.
func (p *Playlist) GroupCount(value string) int {
	kind := p.cfg.Grouping
	if !kind.IsGrouped() {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, t := range p.tracks {
		if kind.Attribute(t) == value {
			n++
		}
	}
	return n
}

// NextGrouping returns the first upcoming group value that differs from the
// current track's group.
func (p *Playlist) NextGrouping() (string, bool) {
	kind := p.cfg.Grouping
	if !kind.IsGrouped() {
		return "", false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	start := p.current + 1
	if p.current < 0 {
		if len(p.tracks) == 0 {
			return "", false
		}
		return kind.Attribute(p.tracks[0]), true
	}
	currentGroup := kind.Attribute(p.tracks[p.current])
	for i := start; i < len(p.tracks); i++ {
		if value := kind.Attribute(p.tracks[i]); value != currentGroup {
			return value, true
		}
	}
	return "", false
}

// SeekTo moves the cursor to the track with the given identity or path,
// searching forward from the cursor and then wrapping. Tracks skipped
// forward stay pending; tracks moved back over return to pending. The order
// itself never changes.
func (p *Playlist) SeekTo(ref string) (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := p.findLocked(ref)
	if target < 0 {
		return Step{}, false
	}
	if target == p.current {
		return Step{Track: p.tracks[target]}, true
	}

	step := Step{Track: p.tracks[target], Boundary: p.boundaryLocked(p.current, target)}
	for i := p.current; i > target; i-- {
		p.unplayLocked(i)
	}
	p.markPlayedLocked(target)
	p.current = target
	p.hist.Record(step.Track)
	p.logger.Debug().Str("track", step.Track.Path).Int("index", target).Msg("seek")
	return step, true
}

func (p *Playlist) findLocked(ref string) int {
	match := func(t track.Track) bool { return t.Path == ref || t.Identity() == ref }
	for i := p.current + 1; i < len(p.tracks); i++ {
		if match(p.tracks[i]) {
			return i
		}
	}
	for i := 0; i <= p.current && i < len(p.tracks); i++ {
		if match(p.tracks[i]) {
			return i
		}
	}
	return -1
}

// Contains reports whether a track with the identity or path is in the order.
func (p *Playlist) Contains(ref string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return indexOf(p.tracks, ref) >= 0
}

// Name returns the source name.
func (p *Playlist) Name() string { return p.name }

// Config returns the playback settings the playlist was built with.
func (p *Playlist) Config() config.Playback { return p.cfg }

// Grouping returns the grouping kind.
func (p *Playlist) Grouping() track.GroupingKind { return p.cfg.Grouping }

// Tracks returns a copy of the sorted order.
func (p *Playlist) Tracks() []track.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.tracks)
}

// Len returns the number of tracks in the order.
func (p *Playlist) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks)
}

// Index returns the cursor, -1 before the first advance.
func (p *Playlist) Index() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Remaining counts the tracks after the cursor.
func (p *Playlist) Remaining() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks) - p.current - 1
}

// Exhausted reports whether no track is left after the cursor.
func (p *Playlist) Exhausted() bool {
	return p.Remaining() <= 0
}

// IsPending reports whether a track identity has not been played yet.
func (p *Playlist) IsPending(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pending[identity] > 0
}

// PendingCount returns the number of pending entries, counting duplicates.
func (p *Playlist) PendingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, c := range p.pending {
		n += c
	}
	return n
}

// Played returns the played identities, oldest first.
func (p *Playlist) Played() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.played)
}

// ShuffleResult reports what the last memory shuffle did.
func (p *Playlist) ShuffleResult() shuffle.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.shuffle
}
