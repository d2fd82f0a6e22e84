/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package shuffle pushes recently played groups away from the front of a grouped order.
package shuffle

import (
	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/telemetry"
	"github.com/friendsincode/muse/internal/track"
)

const (
	DefaultCheckCount         = 150
	DefaultMinPlaylistSize    = 200
	DefaultTargetPlaylistSize = 1000
	MinScaledCheckCount       = 50

	// MaxScourScanned bounds the cumulative positions a thorough scour inspects.
	MaxScourScanned = 100000
	// MaxReshufflePasses bounds the bounded reshuffle.
	MaxReshufflePasses = 30
	// StablePassLimit stops a reshuffle once the offender count has not moved for this many passes.
	StablePassLimit = 5
)

// Algorithm names the reordering strategy.
type Algorithm string

const (
	AlgorithmScour     Algorithm = "scour"
	AlgorithmReshuffle Algorithm = "reshuffle"
)

// Options tunes check count resolution and algorithm choice.
type Options struct {
	CheckCount         int  // base check count; 0 uses DefaultCheckCount
	MinPlaylistSize    int  // below this size nothing is reordered
	TargetPlaylistSize int  // below this size the check count scales down
	Thorough           bool // scour instead of reshuffle
}

func (o Options) withDefaults() Options {
	if o.CheckCount <= 0 {
		o.CheckCount = DefaultCheckCount
	}
	if o.MinPlaylistSize <= 0 {
		o.MinPlaylistSize = DefaultMinPlaylistSize
	}
	if o.TargetPlaylistSize <= 0 {
		o.TargetPlaylistSize = DefaultTargetPlaylistSize
	}
	return o
}

// CheckCount resolves how many leading positions are inspected for a playlist
// of the given size and grouping kind.
func CheckCount(opts Options, size int, kind track.GroupingKind) int {
	opts = opts.withDefaults()
	base := opts.CheckCount
	if size < opts.TargetPlaylistSize {
		base = base * size / opts.TargetPlaylistSize
		if floor := min(MinScaledCheckCount, opts.CheckCount); base < floor {
			base = floor
		}
	}
	count := base / kind.ScaleDivisor()
	if count < 1 {
		count = 1
	}
	if count > size {
		count = size
	}
	return count
}

// Result describes what a memory shuffle did.
type Result struct {
	Algorithm  Algorithm
	CheckCount int
	Skipped    bool
	Reason     string
	Scanned    int // scour only
	Passes     int // reshuffle only
	Remaining  int // offenders left in the checked window
	Converged  bool
}

// Apply reorders tracks in place so that groups present in the most recent
// history values are pushed past the check window. recent is a history
// snapshot, most recent first.
func Apply(tracks []track.Track, kind track.GroupingKind, recent []string, opts Options, logger zerolog.Logger) Result {
	opts = opts.withDefaults()
	res := Result{Algorithm: AlgorithmReshuffle}
	if opts.Thorough {
		res.Algorithm = AlgorithmScour
	}

	switch {
	case !kind.IsGrouped():
		res.Skipped, res.Reason = true, "ungrouped"
	case len(recent) == 0:
		res.Skipped, res.Reason = true, "empty_history"
	case len(tracks) < opts.MinPlaylistSize:
		res.Skipped, res.Reason = true, "small_playlist"
	}
	if res.Skipped {
		telemetry.MemoryShuffleRuns.WithLabelValues(string(res.Algorithm), "skipped").Inc()
		return res
	}

	res.CheckCount = CheckCount(opts, len(tracks), kind)
	window := recentWindow(recent, res.CheckCount)

	if res.Algorithm == AlgorithmScour {
		res.Scanned, res.Converged = Scour(tracks, kind, window, res.CheckCount)
		res.Remaining = countOffenders(tracks[:res.CheckCount], kind, window)
		telemetry.MemoryShuffleScanned.Observe(float64(res.Scanned))
	} else {
		res.Passes, res.Remaining = Reshuffle(tracks, kind, window, res.CheckCount)
		res.Converged = res.Remaining == 0
	}

	outcome := "converged"
	if !res.Converged {
		outcome = "best_effort"
		logger.Warn().
			Str("algorithm", string(res.Algorithm)).
			Str("grouping", kind.String()).
			Int("check_count", res.CheckCount).
			Int("scanned", res.Scanned).
			Int("passes", res.Passes).
			Int("remaining", res.Remaining).
			Msg("memory shuffle did not clear recent groups from the check window")
	} else {
		logger.Debug().
			Str("algorithm", string(res.Algorithm)).
			Str("grouping", kind.String()).
			Int("check_count", res.CheckCount).
			Int("scanned", res.Scanned).
			Int("passes", res.Passes).
			Msg("memory shuffle complete")
	}
	telemetry.MemoryShuffleRuns.WithLabelValues(string(res.Algorithm), outcome).Inc()
	return res
}

func recentWindow(recent []string, n int) map[string]struct{} {
	if n > len(recent) {
		n = len(recent)
	}
	out := make(map[string]struct{}, n)
	for _, v := range recent[:n] {
		out[v] = struct{}{}
	}
	return out
}

func isRecent(t track.Track, kind track.GroupingKind, recent map[string]struct{}) bool {
	v := kind.Attribute(t)
	if v == "" {
		return false
	}
	_, ok := recent[v]
	return ok
}

func countOffenders(tracks []track.Track, kind track.GroupingKind, recent map[string]struct{}) int {
	n := 0
	for _, t := range tracks {
		if isRecent(t, kind, recent) {
			n++
		}
	}
	return n
}
