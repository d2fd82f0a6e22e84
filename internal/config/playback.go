/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import "github.com/friendsincode/muse/internal/track"

// Playback bundles the per-source construction settings. The zero value of a
// field means "not set", which lets a master-level override fall through to the
// source's own value.
type Playback struct {
	Grouping            track.GroupingKind `yaml:"grouping"`
	StartTrack          string             `yaml:"start_track"`
	Loop                bool               `yaml:"loop"`
	Weight              int                `yaml:"weight"`
	SkipMemoryShuffle   bool               `yaml:"skip_memory_shuffle"`
	SkipRandomStart     bool               `yaml:"skip_random_start"`
	CheckEntirePlaylist bool               `yaml:"check_entire_playlist"` // use the thorough memory shuffle
	CheckCount          int                `yaml:"check_count"`           // explicit base check count
	Seed                int64              `yaml:"seed"`                  // 0 seeds from the clock
}

// DefaultPlayback returns the settings used when nothing is configured.
func DefaultPlayback() Playback {
	return Playback{Grouping: track.GroupingNone, Weight: 1}
}

// Merge applies override on top of base field by field. Fields left at their
// zero value in override keep the base value.
func Merge(base, override Playback) Playback {
	out := base
	if override.Grouping != track.GroupingNone {
		out.Grouping = override.Grouping
	}
	if override.StartTrack != "" {
		out.StartTrack = override.StartTrack
	}
	if override.Loop {
		out.Loop = true
	}
	if override.Weight > 0 {
		out.Weight = override.Weight
	}
	if override.SkipMemoryShuffle {
		out.SkipMemoryShuffle = true
	}
	if override.SkipRandomStart {
		out.SkipRandomStart = true
	}
	if override.CheckEntirePlaylist {
		out.CheckEntirePlaylist = true
	}
	if override.CheckCount > 0 {
		out.CheckCount = override.CheckCount
	}
	if override.Seed != 0 {
		out.Seed = override.Seed
	}
	if out.Weight < 1 {
		out.Weight = 1
	}
	return out
}
