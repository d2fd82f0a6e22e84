/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// AddedFunc is called for every supported file that appears in a watched directory.
type AddedFunc func(ctx context.Context, path string)

// Watcher reports new audio files in source directories.
type Watcher struct {
	watcher  *fsnotify.Watcher
	lister   *DirLister
	onAdd    AddedFunc
	logger   zerolog.Logger

	// reported holds files found while walking a new directory so the
	// Create event that may follow does not report them twice.
	reported map[string]struct{}
}

// NewWatcher watches every directory in dirs and all of their subdirectories.
func NewWatcher(dirs []string, lister *DirLister, onAdd AddedFunc, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if lister == nil {
		lister = NewDirLister()
	}
	w := &Watcher{
		watcher:  fw,
		lister:   lister,
		onAdd:    onAdd,
		logger:   logger.With().Str("component", "library_watcher").Logger(),
		reported: make(map[string]struct{}),
	}
	for _, dir := range dirs {
		if err := w.addTree(dir, nil); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// addTree watches root and every directory below it. When found is non-nil
// it receives the supported files already present in the tree.
func (w *Watcher) addTree(root string, found func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if found != nil && w.lister.IsSupported(path) {
			found(path)
		}
		return nil
	})
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.handleNewDir(ctx, event.Name)
				continue
			}
			if !w.lister.IsSupported(event.Name) {
				continue
			}
			if _, seen := w.reported[event.Name]; seen {
				delete(w.reported, event.Name)
				continue
			}
			w.logger.Info().Str("path", event.Name).Msg("new file detected")
			w.onAdd(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// handleNewDir starts watching a directory created after startup. Files
// written into it before the watch was in place are reported here.
func (w *Watcher) handleNewDir(ctx context.Context, dir string) {
	err := w.addTree(dir, func(path string) {
		if _, seen := w.reported[path]; seen {
			return
		}
		w.reported[path] = struct{}{}
		w.logger.Info().Str("path", path).Msg("new file detected")
		w.onAdd(ctx, path)
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("dir", dir).Msg("watch new directory failed")
		return
	}
	w.logger.Debug().Str("dir", dir).Msg("watching new directory")
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
