/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package station assembles a master from a sources file and keeps its
// history in the configured store.
package station

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/events"
	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/master"
	"github.com/friendsincode/muse/internal/models"
	"github.com/friendsincode/muse/internal/playlist"
	"github.com/friendsincode/muse/internal/track"
)

// SnapshotSaver is implemented by stores that also record source state.
type SnapshotSaver interface {
	SaveSnapshots(ctx context.Context, snapshots []models.SourceSnapshot) error
}

// Options are the collaborators a station is built from.
type Options struct {
	Sources         *config.Sources
	Store           history.Store
	Accessor        track.Accessor
	Lister          track.Lister
	Bus             events.Publisher
	HistoryCapacity int
}

// Station owns the master, its shared history and the store behind it.
type Station struct {
	Master  *master.Master
	History *history.History
	Played  *history.PlayedLog

	store    history.Store
	accessor track.Accessor
	dirs     map[string]string // source name -> directory
	logger   zerolog.Logger
}

// Build restores history, loads every source and registers it with a new master.
func Build(ctx context.Context, opts Options, logger zerolog.Logger) (*Station, error) {
	if opts.Sources == nil {
		return nil, errors.New("station: sources are required")
	}
	if opts.Lister == nil {
		return nil, errors.New("station: lister is required")
	}
	if opts.Store == nil {
		opts.Store = history.NewMemoryStore()
	}
	capacity := opts.HistoryCapacity
	if capacity <= 0 {
		capacity = history.DefaultCapacity
	}
	logger = logger.With().Str("component", "station").Logger()

	hist := history.New(capacity)
	played := history.NewPlayedLog(capacity)
	if err := hist.Restore(ctx, opts.Store); err != nil {
		logger.Warn().Err(err).Msg("history restore failed, starting empty")
	}
	if err := played.Restore(ctx, opts.Store); err != nil {
		logger.Warn().Err(err).Msg("played log restore failed, starting empty")
	}

	m := master.New(master.Options{
		Stacked: opts.Sources.Stacked,
		History: hist,
		Played:  played,
		Bus:     opts.Bus,
	}, logger)

	st := &Station{
		Master:   m,
		History:  hist,
		Played:   played,
		store:    opts.Store,
		accessor: opts.Accessor,
		dirs:     make(map[string]string),
		logger:   logger,
	}

	for _, spec := range opts.Sources.Sources {
		cfg := spec.Effective(opts.Sources.Override)
		paths, err := opts.Lister.List(ctx, spec.Definition())
		if err != nil {
			return nil, fmt.Errorf("list source %s: %w", spec.Name, err)
		}
		p, err := playlist.Load(ctx, spec.Name, paths, opts.Accessor, cfg, hist, logger)
		if err != nil {
			return nil, fmt.Errorf("load source %s: %w", spec.Name, err)
		}
		if err := m.AddSource(p, cfg.Weight, cfg.Loop); err != nil {
			return nil, err
		}
		if spec.Directory != "" {
			st.dirs[spec.Name] = filepath.Clean(spec.Directory)
		}
	}

	logger.Info().
		Int("sources", len(opts.Sources.Sources)).
		Bool("stacked", opts.Sources.Stacked).
		Int("history_files", hist.Len(history.BucketFiles)).
		Msg("station assembled")
	return st, nil
}

// Directories returns the source directories, for watching.
func (s *Station) Directories() []string {
	out := make([]string, 0, len(s.dirs))
	for _, dir := range s.dirs {
		out = append(out, dir)
	}
	return out
}

// AddFile reads a newly found file and inserts it after the cursor of the
// source whose directory contains it, or of the current source.
func (s *Station) AddFile(ctx context.Context, path string) error {
	if s.accessor == nil {
		return playlist.ErrMissingAccessor
	}
	t, err := s.accessor.Track(ctx, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if name := s.owner(path); name != "" {
		return s.Master.InsertInto(name, t, false)
	}
	_, err = s.Master.InsertExtension(t, false)
	return err
}

func (s *Station) owner(path string) string {
	best, bestLen := "", 0
	for name, dir := range s.dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(dir) > bestLen {
			best, bestLen = name, len(dir)
		}
	}
	return best
}

// Persist saves the history, the played log and, when supported, source snapshots.
func (s *Station) Persist(ctx context.Context) error {
	var errs []error
	if err := s.History.Persist(ctx, s.store); err != nil {
		errs = append(errs, err)
	}
	if err := s.Played.Persist(ctx, s.store); err != nil {
		errs = append(errs, err)
	}
	if saver, ok := s.store.(SnapshotSaver); ok {
		if err := saver.SaveSnapshots(ctx, s.Snapshots()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persist station: %w", err)
	}
	s.logger.Debug().Msg("station state persisted")
	return nil
}

// Snapshots converts the master's source status into storable rows.
func (s *Station) Snapshots() []models.SourceSnapshot {
	statuses := s.Master.Sources()
	out := make([]models.SourceSnapshot, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, models.SourceSnapshot{
			Name:      st.Name,
			Grouping:  st.Grouping,
			Tracks:    st.Tracks,
			Remaining: st.Remaining,
			Active:    st.Active,
		})
	}
	return out
}
