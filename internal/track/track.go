/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package track defines the playable item consumed by the ordering engine.
package track

import (
	"fmt"
	"path/filepath"
)

// Track is an immutable playable item. Metadata extraction happens outside the engine.
type Track struct {
	Path       string `json:"path"`
	ParentPath string `json:"parent_path,omitempty"` // set when the track is an excerpt of a larger file
	Title      string `json:"title,omitempty"`
	Album      string `json:"album,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Composer   string `json:"composer,omitempty"`
	Genre      string `json:"genre,omitempty"`
	Form       string `json:"form,omitempty"`
	Instrument string `json:"instrument,omitempty"`
}

// Identity is the bookkeeping key. Excerpts share identity with their parent file.
func (t Track) Identity() string {
	if t.ParentPath != "" {
		return t.ParentPath
	}
	return t.Path
}

// IsZero reports whether the track is the "no track" sentinel.
func (t Track) IsZero() bool {
	return t.Path == "" && t.ParentPath == ""
}

// DisplayTitle falls back to the file name when no title tag is present.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return filepath.Base(t.Path)
}

// Detail renders the single-line description stored in the playlist history log.
func (t Track) Detail() string {
	switch {
	case t.Artist != "" && t.Album != "":
		return fmt.Sprintf("%s - %s (%s)", t.Artist, t.DisplayTitle(), t.Album)
	case t.Artist != "":
		return fmt.Sprintf("%s - %s", t.Artist, t.DisplayTitle())
	default:
		return t.DisplayTitle()
	}
}
