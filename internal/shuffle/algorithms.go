/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package shuffle

import "github.com/friendsincode/muse/internal/track"

// Scour repeatedly scans the first checkCount positions and moves every recent
// group it meets to the end, until a scan moves nothing or MaxScourScanned
// positions have been inspected. It returns the positions scanned and whether
// the window ended up free of recent groups.
func Scour(tracks []track.Track, kind track.GroupingKind, recent map[string]struct{}, checkCount int) (int, bool) {
	if checkCount > len(tracks) {
		checkCount = len(tracks)
	}
	if checkCount <= 0 || countOffenders(tracks, kind, recent) == len(tracks) {
		return 0, checkCount <= 0
	}

	scanned := 0
	for scanned < MaxScourScanned {
		moved := false
		for i := 0; i < checkCount; i++ {
			scanned++
			if !isRecent(tracks[i], kind, recent) {
				continue
			}
			start, end := runBounds(tracks, kind, i)
			if moveRunToEnd(tracks, start, end) {
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return scanned, countOffenders(tracks[:checkCount], kind, recent) == 0
}

// Reshuffle moves every recent group found in the first 2×checkCount positions
// to the end in one pass, then rescans. It stops after MaxReshufflePasses, when
// the window is clean, or once the offender count has held steady for
// StablePassLimit passes. It returns the passes made and the offenders left.
func Reshuffle(tracks []track.Track, kind track.GroupingKind, recent map[string]struct{}, checkCount int) (int, int) {
	window := min(2*checkCount, len(tracks))
	if window <= 0 {
		return 0, 0
	}

	remaining := countOffenders(tracks[:window], kind, recent)
	passes, unchanged := 0, 0
	for passes < MaxReshufflePasses && remaining > 0 {
		runs := offendingRuns(tracks, kind, recent, window)
		if !moveRunsToEnd(tracks, runs) {
			break
		}
		passes++

		next := countOffenders(tracks[:window], kind, recent)
		if next == remaining {
			unchanged++
		} else {
			unchanged = 0
		}
		remaining = next
		if unchanged >= StablePassLimit {
			break
		}
	}
	return passes, remaining
}

type run struct{ start, end int }

// runBounds returns the contiguous block of tracks sharing the group value at i.
func runBounds(tracks []track.Track, kind track.GroupingKind, i int) (int, int) {
	value := kind.Attribute(tracks[i])
	start, end := i, i+1
	for start > 0 && kind.Attribute(tracks[start-1]) == value {
		start--
	}
	for end < len(tracks) && kind.Attribute(tracks[end]) == value {
		end++
	}
	return start, end
}

func offendingRuns(tracks []track.Track, kind track.GroupingKind, recent map[string]struct{}, window int) []run {
	var runs []run
	for i := 0; i < window; i++ {
		if !isRecent(tracks[i], kind, recent) {
			continue
		}
		start, end := runBounds(tracks, kind, i)
		runs = append(runs, run{start, end})
		i = end - 1
	}
	return runs
}

// moveRunToEnd rotates tracks[start:end] to the tail, shifting the remainder up.
func moveRunToEnd(tracks []track.Track, start, end int) bool {
	if end >= len(tracks) || start >= end {
		return false
	}
	block := append([]track.Track(nil), tracks[start:end]...)
	copy(tracks[start:], tracks[end:])
	copy(tracks[len(tracks)-len(block):], block)
	return true
}

// moveRunsToEnd relocates the given sorted, disjoint runs to the tail in their
// current relative order. It reports whether the order changed.
func moveRunsToEnd(tracks []track.Track, runs []run) bool {
	if len(runs) == 0 {
		return false
	}
	if len(runs) == 1 && runs[0].end >= len(tracks) {
		return false
	}

	kept := make([]track.Track, 0, len(tracks))
	moved := make([]track.Track, 0, len(tracks))
	next := 0
	for _, r := range runs {
		kept = append(kept, tracks[next:r.start]...)
		moved = append(moved, tracks[r.start:r.end]...)
		next = r.end
	}
	kept = append(kept, tracks[next:]...)
	if len(kept) == 0 {
		return false
	}

	copy(tracks, kept)
	copy(tracks[len(kept):], moved)
	return true
}
