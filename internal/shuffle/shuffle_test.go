/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package shuffle

import (
	"fmt"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/track"
)

// albumTracks builds contiguous album groups in the order given.
func albumTracks(groups ...struct {
	album string
	count int
}) []track.Track {
	var out []track.Track
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			out = append(out, track.Track{
				Path:  fmt.Sprintf("/music/%s/%03d.flac", g.album, i),
				Album: g.album,
			})
		}
	}
	return out
}

type group = struct {
	album string
	count int
}

func paths(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Path
	}
	return out
}

func assertPermutation(t *testing.T, before, after []track.Track) {
	t.Helper()
	a, b := paths(before), paths(after)
	sort.Strings(a)
	sort.Strings(b)
	if len(a) != len(b) {
		t.Fatalf("length changed: %d -> %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("track multiset changed at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func assertContiguous(t *testing.T, tracks []track.Track, kind track.GroupingKind) {
	t.Helper()
	closed := make(map[string]bool)
	prev := ""
	for i, tr := range tracks {
		v := kind.Attribute(tr)
		if i > 0 && v != prev {
			closed[prev] = true
			if closed[v] {
				t.Fatalf("group %q reappears at position %d", v, i)
			}
		}
		prev = v
	}
}

func TestCheckCount(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		size int
		kind track.GroupingKind
		want int
	}{
		{"scaled floor for small playlist", Options{}, 250, track.GroupingAlbum, 50},
		{"full base at target size", Options{}, 1000, track.GroupingAlbum, 150},
		{"linear scaling", Options{}, 800, track.GroupingAlbum, 120},
		{"artist divisor", Options{}, 2000, track.GroupingArtist, 75},
		{"genre divisor", Options{}, 2000, track.GroupingGenre, 10},
		{"genre floor at one", Options{CheckCount: 10}, 2000, track.GroupingGenre, 1},
		{"explicit override", Options{CheckCount: 400}, 5000, track.GroupingAlbum, 400},
		{"small explicit override keeps its own floor", Options{CheckCount: 20}, 300, track.GroupingAlbum, 20},
		{"capped at size", Options{CheckCount: 500, TargetPlaylistSize: 10}, 300, track.GroupingAlbum, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckCount(tt.opts, tt.size, tt.kind); got != tt.want {
				t.Errorf("CheckCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScourScenarioFiveAlbums(t *testing.T) {
	tracks := albumTracks(group{"X", 50}, group{"A", 50}, group{"B", 50}, group{"C", 50}, group{"D", 50})
	before := append([]track.Track(nil), tracks...)

	res := Apply(tracks, track.GroupingAlbum, []string{"X"}, Options{Thorough: true}, zerolog.Nop())

	if res.Skipped {
		t.Fatalf("unexpected skip: %s", res.Reason)
	}
	if res.CheckCount != 50 {
		t.Fatalf("CheckCount = %d, want 50", res.CheckCount)
	}
	for i := 0; i < 50; i++ {
		if tracks[i].Album == "X" {
			t.Fatalf("album X found at position %d", i)
		}
	}
	if res.Scanned == 0 || res.Scanned%50 != 0 {
		t.Fatalf("Scanned = %d, want a positive multiple of 50", res.Scanned)
	}
	if !res.Converged {
		t.Fatal("expected convergence")
	}
	assertPermutation(t, before, tracks)
	assertContiguous(t, tracks, track.GroupingAlbum)
}

func TestScourClearsSeveralRecentGroups(t *testing.T) {
	var groups []group
	for i := 0; i < 20; i++ {
		groups = append(groups, group{fmt.Sprintf("album-%02d", i), 15})
	}
	tracks := albumTracks(groups...)
	before := append([]track.Track(nil), tracks...)
	recent := map[string]struct{}{"album-00": {}, "album-01": {}, "album-03": {}, "album-04": {}}

	scanned, ok := Scour(tracks, track.GroupingAlbum, recent, 60)
	if !ok {
		t.Fatalf("expected scour to converge after %d scanned", scanned)
	}
	if n := countOffenders(tracks[:60], track.GroupingAlbum, recent); n != 0 {
		t.Fatalf("%d offenders left in window", n)
	}
	assertPermutation(t, before, tracks)
	assertContiguous(t, tracks, track.GroupingAlbum)
}

func TestScourStopsAtCapWhenUnsatisfiable(t *testing.T) {
	tracks := albumTracks(group{"X", 100}, group{"Y", 100}, group{"Z", 10})
	before := append([]track.Track(nil), tracks...)
	recent := map[string]struct{}{"X": {}, "Y": {}}

	scanned, ok := Scour(tracks, track.GroupingAlbum, recent, 50)
	if ok {
		t.Fatal("expected scour to report non-convergence")
	}
	if scanned < MaxScourScanned || scanned >= MaxScourScanned+50 {
		t.Fatalf("scanned = %d, want the cap to stop the scan", scanned)
	}
	assertPermutation(t, before, tracks)
	assertContiguous(t, tracks, track.GroupingAlbum)
}

func TestScourAllRecentIsNoop(t *testing.T) {
	tracks := albumTracks(group{"X", 120}, group{"Y", 120})
	before := append([]track.Track(nil), tracks...)

	scanned, ok := Scour(tracks, track.GroupingAlbum, map[string]struct{}{"X": {}, "Y": {}}, 50)
	if ok || scanned != 0 {
		t.Fatalf("Scour() = (%d, %v), want (0, false)", scanned, ok)
	}
	for i := range tracks {
		if tracks[i] != before[i] {
			t.Fatalf("order changed at %d", i)
		}
	}
}

func TestReshuffleClearsWindow(t *testing.T) {
	tracks := albumTracks(group{"X", 40}, group{"A", 60}, group{"Y", 30}, group{"B", 80}, group{"C", 40})
	before := append([]track.Track(nil), tracks...)
	recent := map[string]struct{}{"X": {}, "Y": {}}

	passes, remaining := Reshuffle(tracks, track.GroupingAlbum, recent, 50)
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if passes != 2 {
		t.Fatalf("passes = %d, want 2", passes)
	}
	if tracks[0].Album != "A" {
		t.Fatalf("first album = %q, want A", tracks[0].Album)
	}
	assertPermutation(t, before, tracks)
	assertContiguous(t, tracks, track.GroupingAlbum)
}

func TestReshuffleStopsAtStableMinimum(t *testing.T) {
	tracks := albumTracks(group{"X", 100}, group{"Y", 100}, group{"Z", 10})
	before := append([]track.Track(nil), tracks...)
	recent := map[string]struct{}{"X": {}, "Y": {}}

	passes, remaining := Reshuffle(tracks, track.GroupingAlbum, recent, 50)
	if remaining != 90 {
		t.Fatalf("remaining = %d, want 90", remaining)
	}
	if passes >= MaxReshufflePasses {
		t.Fatalf("passes = %d, expected the stable minimum to stop early", passes)
	}
	if tracks[0].Album != "Z" {
		t.Fatalf("first album = %q, want Z", tracks[0].Album)
	}
	assertPermutation(t, before, tracks)
	assertContiguous(t, tracks, track.GroupingAlbum)
}

func TestApplySkips(t *testing.T) {
	large := albumTracks(group{"X", 150}, group{"A", 150})
	small := albumTracks(group{"X", 50}, group{"A", 50})

	tests := []struct {
		name   string
		tracks []track.Track
		kind   track.GroupingKind
		recent []string
		reason string
	}{
		{"ungrouped", large, track.GroupingRandom, []string{"X"}, "ungrouped"},
		{"empty history", large, track.GroupingAlbum, nil, "empty_history"},
		{"small playlist", small, track.GroupingAlbum, []string{"X"}, "small_playlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]track.Track(nil), tt.tracks...)
			res := Apply(tt.tracks, tt.kind, tt.recent, Options{Thorough: true}, zerolog.Nop())
			if !res.Skipped || res.Reason != tt.reason {
				t.Fatalf("Apply() = %+v, want skip %q", res, tt.reason)
			}
			for i := range before {
				if before[i] != tt.tracks[i] {
					t.Fatalf("skipped shuffle changed order at %d", i)
				}
			}
		})
	}
}

func TestApplyOnlyConsidersRecentWindow(t *testing.T) {
	tracks := albumTracks(group{"Old", 100}, group{"A", 100}, group{"B", 100})
	recent := make([]string, 0, 60)
	for i := 0; i < 59; i++ {
		recent = append(recent, fmt.Sprintf("filler-%d", i))
	}
	recent = append(recent, "Old") // position 60, outside a check count of 50

	res := Apply(tracks, track.GroupingAlbum, recent, Options{}, zerolog.Nop())
	if res.CheckCount != 50 {
		t.Fatalf("CheckCount = %d", res.CheckCount)
	}
	if tracks[0].Album != "Old" {
		t.Fatalf("first album = %q; values beyond the recency window must not be pushed back", tracks[0].Album)
	}
}

func TestMoveRunToEnd(t *testing.T) {
	tracks := albumTracks(group{"A", 2}, group{"B", 3}, group{"C", 1})
	if !moveRunToEnd(tracks, 2, 5) {
		t.Fatal("expected move")
	}
	got := ""
	for _, tr := range tracks {
		got += tr.Album
	}
	if got != "AACBBB" {
		t.Fatalf("order = %s, want AACBBB", got)
	}
	if moveRunToEnd(tracks, 3, 6) {
		t.Fatal("moving the tail run should be a no-op")
	}
}
