/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package master merges several playlists into one playback stream.
package master

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/muse/internal/events"
	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/playlist"
	"github.com/friendsincode/muse/internal/telemetry"
	"github.com/friendsincode/muse/internal/track"
)

// DefaultTaperRetries bounds how many random candidates are rejected as repeats.
const DefaultTaperRetries = 10

var (
	ErrDuplicateSource = errors.New("master: duplicate source name")
	ErrUnknownSource   = errors.New("master: unknown source")
	ErrNoSource        = errors.New("master: no source available")
)

// Selection is one track chosen by the master.
type Selection struct {
	playlist.Step
	Source   string `json:"source,omitempty"`
	Override bool   `json:"override,omitempty"`
}

// SourceStatus describes one registered source.
type SourceStatus struct {
	Name      string `json:"name"`
	Grouping  string `json:"grouping"`
	Weight    int    `json:"weight"`
	Loop      bool   `json:"loop"`
	Active    bool   `json:"active"`
	Tracks    int    `json:"tracks"`
	Remaining int    `json:"remaining"`
}

// Options configures a Master.
type Options struct {
	Stacked      bool
	History      *history.History
	Played       *history.PlayedLog
	Bus          events.Publisher
	TaperCap     int // upper bound of the tapering window, defaults to the played log capacity
	TaperRetries int
}

type entry struct {
	playlist *playlist.Playlist
	weight   int
	loop     bool
	active   bool
}

// Master owns the registered sources, the round robin cursor, the override
// slot and the played log.
type Master struct {
	mu      sync.Mutex
	id      string
	logger  zerolog.Logger
	hist    *history.History
	played  *history.PlayedLog
	bus     events.Publisher
	entries []*entry
	stacked bool
	cursor  int
	counter int

	current    Selection
	hasCurrent bool

	override *track.Track
	ready    chan struct{} // closed while the override slot is free

	taperCap     int
	taperRetries int
}

// New creates a master with no sources.
func New(opts Options, logger zerolog.Logger) *Master {
	if opts.History == nil {
		opts.History = history.New(history.DefaultCapacity)
	}
	if opts.Played == nil {
		opts.Played = history.NewPlayedLog(opts.History.Capacity())
	}
	if opts.TaperCap <= 0 {
		opts.TaperCap = opts.Played.Capacity()
	}
	if opts.TaperRetries <= 0 {
		opts.TaperRetries = DefaultTaperRetries
	}

	id := uuid.NewString()
	ready := make(chan struct{})
	close(ready)
	return &Master{
		id:           id,
		logger:       logger.With().Str("component", "master").Str("session", id).Logger(),
		hist:         opts.History,
		played:       opts.Played,
		bus:          opts.Bus,
		stacked:      opts.Stacked,
		ready:        ready,
		taperCap:     opts.TaperCap,
		taperRetries: opts.TaperRetries,
	}
}

// SessionID identifies this master in logs and events.
func (m *Master) SessionID() string { return m.id }

// History returns the recently played history shared with the sources.
func (m *Master) History() *history.History { return m.hist }

// Played returns the master-level played log.
func (m *Master) Played() *history.PlayedLog { return m.played }

// AddSource registers p after the existing sources. Weights below one are raised to one.
func (m *Master) AddSource(p *playlist.Playlist, weight int, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(p.Name()) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, p.Name())
	}
	m.entries = append(m.entries, &entry{playlist: p, weight: max(weight, 1), loop: loop, active: true})
	m.updateGaugeLocked()
	m.logger.Info().Str("source", p.Name()).Int("weight", max(weight, 1)).Bool("loop", loop).Int("tracks", p.Len()).Msg("source added")
	return nil
}

// RemoveSource drops a source. The cursor moves on to the following source.
func (m *Master) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	switch {
	case idx < m.cursor:
		m.cursor--
	case idx == m.cursor:
		m.counter = 0
	}
	m.updateGaugeLocked()
	return nil
}

// SetActive enables or disables a source without touching its cursor.
func (m *Master) SetActive(name string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	m.entries[idx].active = active
	m.updateGaugeLocked()
	return nil
}

// ResetLoop re-sorts a source and makes it eligible again.
func (m *Master) ResetLoop(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return m.resetLocked(ctx, m.entries[idx])
}

func (m *Master) resetLocked(ctx context.Context, e *entry) error {
	if err := e.playlist.Reset(ctx); err != nil {
		return fmt.Errorf("reset %s: %w", e.playlist.Name(), err)
	}
	e.active = true
	m.updateGaugeLocked()
	m.publish(events.EventSourceReset, events.Payload{"source": e.playlist.Name()})
	return nil
}

// SetStacked switches between interleaved and stacked selection.
func (m *Master) SetStacked(stacked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stacked = stacked
	m.counter = 0
}

// Stacked reports whether sources play out one after another.
func (m *Master) Stacked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stacked
}

// Sources reports the status of every source in registration order.
func (m *Master) Sources() []SourceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SourceStatus, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, SourceStatus{
			Name:      e.playlist.Name(),
			Grouping:  e.playlist.Grouping().String(),
			Weight:    e.weight,
			Loop:      e.loop,
			Active:    e.active,
			Tracks:    e.playlist.Len(),
			Remaining: e.playlist.Remaining(),
		})
	}
	return out
}

// Source returns the playlist registered under name.
func (m *Master) Source(name string) (*playlist.Playlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return nil, false
	}
	return m.entries[idx].playlist, true
}

// Current returns the last selected track.
func (m *Master) Current() (Selection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.hasCurrent
}

// Next selects the next track: a pending override first, then the source
// chosen by stacked or weighted round robin order. Exhausted sources loop or
// drop out. It returns false once no source can supply a track.
func (m *Master) Next(ctx context.Context) (Selection, bool) {
	ctx, span := telemetry.StartSpan(ctx, "master.next")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.override != nil {
		t := *m.override
		m.override = nil
		close(m.ready)
		sel := Selection{Step: playlist.Step{Track: t}, Override: true}
		m.hist.Record(t)
		m.acceptLocked(sel)
		telemetry.OverridesConsumed.Inc()
		m.publish(events.EventOverrideConsumed, events.Payload{"path": t.Path})
		return sel, true
	}

	for attempts := 0; attempts <= 2*len(m.entries); attempts++ {
		idx := m.selectLocked()
		if idx < 0 {
			break
		}
		e := m.entries[idx]
		step, ok := m.advanceLocked(e)
		if !ok && e.loop {
			if err := m.resetLocked(ctx, e); err != nil {
				m.logger.Error().Err(err).Str("source", e.playlist.Name()).Msg("loop reset failed")
			} else {
				step, ok = m.advanceLocked(e)
			}
		}
		if !ok {
			e.active = false
			m.counter = 0
			m.updateGaugeLocked()
			m.logger.Info().Str("source", e.playlist.Name()).Msg("source exhausted")
			m.publish(events.EventSourceExhausted, events.Payload{"source": e.playlist.Name()})
			continue
		}

		m.counter++
		sel := Selection{Step: step, Source: e.playlist.Name()}
		m.acceptLocked(sel)
		span.SetAttributes(attribute.String("source", sel.Source))
		return sel, true
	}

	m.logger.Debug().Msg("no active source left")
	return Selection{}, false
}

// selectLocked returns the index of the source that should play next or -1.
func (m *Master) selectLocked() int {
	n := len(m.entries)
	if n == 0 {
		return -1
	}
	if m.stacked {
		for i, e := range m.entries {
			if e.active {
				return i
			}
		}
		return -1
	}

	if m.cursor >= n {
		m.cursor, m.counter = 0, 0
	}
	if e := m.entries[m.cursor]; e.active && m.counter < e.weight {
		return m.cursor
	}
	for step := 1; step <= n; step++ {
		i := (m.cursor + step) % n
		if m.entries[i].active {
			m.cursor, m.counter = i, 0
			return i
		}
	}
	return -1
}

// advanceLocked moves a source forward. Random sources reject candidates
// found in the recent part of the played log, up to the retry limit.
func (m *Master) advanceLocked(e *entry) (playlist.Step, bool) {
	p := e.playlist
	if p.Grouping() != track.GroupingRandom {
		return p.NextTrack(false, 0)
	}

	window := min(p.Remaining(), m.taperCap)
	for k := 0; k < m.taperRetries; k++ {
		candidate, ok := p.UpcomingTrack(k)
		if !ok {
			break
		}
		if !m.played.RecentlyPlayed(candidate.Track.Identity(), window) {
			return p.NextTrack(false, k)
		}
		telemetry.TaperRejections.Inc()
	}

	telemetry.TaperExhausted.Inc()
	m.logger.Warn().Str("source", p.Name()).Int("window", window).Msg("taper retries exhausted, accepting a repeat")
	return p.NextTrack(false, 0)
}

func (m *Master) acceptLocked(sel Selection) {
	m.current = sel
	m.hasCurrent = true
	m.played.Append(sel.Track)

	if sel.Boundary != nil {
		m.publish(events.EventGroupChange, events.Payload{
			"source": sel.Source,
			"old":    sel.Boundary.Old,
			"new":    sel.Boundary.New,
		})
	}
	m.publish(events.EventNowPlaying, selectionPayload(sel))
	m.logger.Debug().Str("source", sel.Source).Str("track", sel.Track.Path).Bool("override", sel.Override).Msg("track selected")
}

// UpcomingTrack returns the selection places positions after the next one
// without changing any state.
func (m *Master) UpcomingTrack(places int) (Selection, bool) {
	places = max(places, 0)
	list := m.Upcoming(places + 1)
	if len(list) <= places {
		return Selection{}, false
	}
	return list[places], true
}

// Upcoming predicts the next n selections from the current state. Looping
// sources are not re-sorted in the prediction and tapering is not applied.
func (m *Master) Upcoming(n int) []Selection {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Selection, 0, max(n, 0))
	if n <= 0 {
		return out
	}
	if m.override != nil {
		out = append(out, Selection{Step: playlist.Step{Track: *m.override}, Override: true})
	}

	active := make([]bool, len(m.entries))
	offsets := make([]int, len(m.entries))
	for i, e := range m.entries {
		active[i] = e.active
	}
	cursor, counter := m.cursor, m.counter

	pick := func() int {
		if len(m.entries) == 0 {
			return -1
		}
		if m.stacked {
			for i := range m.entries {
				if active[i] {
					return i
				}
			}
			return -1
		}
		if cursor >= len(m.entries) {
			cursor, counter = 0, 0
		}
		if active[cursor] && counter < m.entries[cursor].weight {
			return cursor
		}
		for step := 1; step <= len(m.entries); step++ {
			i := (cursor + step) % len(m.entries)
			if active[i] {
				cursor, counter = i, 0
				return i
			}
		}
		return -1
	}

	for len(out) < n {
		idx := pick()
		if idx < 0 {
			break
		}
		e := m.entries[idx]
		step, ok := e.playlist.PeekAt(offsets[idx])
		if !ok {
			active[idx] = false
			counter = 0
			continue
		}
		offsets[idx]++
		counter++
		out = append(out, Selection{Step: step, Source: e.playlist.Name()})
	}
	return out
}

// InsertExtension places t right after the cursor of the source that played
// last, or the first source when nothing has played yet.
func (m *Master) InsertExtension(t track.Track, overwrite bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	if m.hasCurrent && m.current.Source != "" {
		idx = m.indexLocked(m.current.Source)
	}
	if idx < 0 {
		for i, e := range m.entries {
			if e.active {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return "", ErrNoSource
	}
	m.insertLocked(m.entries[idx], t, overwrite)
	return m.entries[idx].playlist.Name(), nil
}

// InsertInto places t right after the cursor of the named source and makes
// the source eligible again.
func (m *Master) InsertInto(name string, t track.Track, overwrite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	m.insertLocked(m.entries[idx], t, overwrite)
	return nil
}

func (m *Master) insertLocked(e *entry, t track.Track, overwrite bool) {
	e.playlist.InsertExtension(t, overwrite)
	if !e.active {
		e.active = true
		m.updateGaugeLocked()
	}
	m.publish(events.EventExtensionAdded, events.Payload{"source": e.playlist.Name(), "path": t.Path})
}

// SeekToTrack moves the owning source's cursor to the track with the given
// identity and makes that source the current one. Track order is unchanged.
func (m *Master) SeekToTrack(ctx context.Context, identity string) bool {
	_, span := telemetry.StartSpan(ctx, "master.seek", attribute.String("identity", identity))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if !e.playlist.Contains(identity) {
			continue
		}
		step, ok := e.playlist.SeekTo(identity)
		if !ok {
			continue
		}
		e.active = true
		m.cursor, m.counter = i, 1
		sel := Selection{Step: step, Source: e.playlist.Name()}
		m.acceptLocked(sel)
		m.updateGaugeLocked()
		telemetry.Seeks.WithLabelValues("found").Inc()
		m.publish(events.EventSeek, events.Payload{"source": sel.Source, "path": step.Track.Path})
		return true
	}

	telemetry.Seeks.WithLabelValues("not_found").Inc()
	m.logger.Debug().Str("identity", identity).Msg("seek target not found")
	return false
}

func (m *Master) indexLocked(name string) int {
	for i, e := range m.entries {
		if e.playlist.Name() == name {
			return i
		}
	}
	return -1
}

func (m *Master) updateGaugeLocked() {
	n := 0
	for _, e := range m.entries {
		if e.active {
			n++
		}
	}
	telemetry.ActiveSources.Set(float64(n))
}

func (m *Master) publish(eventType events.EventType, payload events.Payload) {
	if m.bus == nil {
		return
	}
	payload["session"] = m.id
	m.bus.Publish(eventType, payload)
}

func selectionPayload(sel Selection) events.Payload {
	return events.Payload{
		"source":   sel.Source,
		"path":     sel.Track.Path,
		"title":    sel.Track.DisplayTitle(),
		"artist":   sel.Track.Artist,
		"album":    sel.Track.Album,
		"override": sel.Override,
	}
}
