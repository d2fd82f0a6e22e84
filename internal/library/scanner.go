/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library resolves source definitions to audio files and reads their tags.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/friendsincode/muse/internal/track"
)

// DefaultFormats lists the file extensions picked up by a directory scan.
var DefaultFormats = []string{".mp3", ".flac", ".ogg", ".opus", ".m4a", ".wav"}

// ErrEmptySource is returned for a definition with neither a directory nor paths.
var ErrEmptySource = errors.New("library: source has no directory or paths")

// DirLister lists the audio files of a source definition.
type DirLister struct {
	Formats []string
}

// NewDirLister creates a lister for the default formats.
func NewDirLister() *DirLister {
	return &DirLister{Formats: DefaultFormats}
}

// IsSupported reports whether path has one of the lister's extensions.
func (l *DirLister) IsSupported(path string) bool {
	formats := l.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	return slices.Contains(formats, strings.ToLower(filepath.Ext(path)))
}

// List returns the explicit paths of def, resolved against its directory, or
// every supported file below the directory in lexical order.
func (l *DirLister) List(ctx context.Context, def track.SourceDefinition) ([]string, error) {
	if len(def.Paths) > 0 {
		out := make([]string, 0, len(def.Paths))
		for _, p := range def.Paths {
			if !filepath.IsAbs(p) && def.Directory != "" {
				p = filepath.Join(def.Directory, p)
			}
			out = append(out, filepath.Clean(p))
		}
		return out, nil
	}
	if def.Directory == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, def.Name)
	}

	var out []string
	err := filepath.WalkDir(def.Directory, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && l.IsSupported(p) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", def.Directory, err)
	}
	return out, nil
}
