/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/track"
)

func seqTracks(n int) []track.Track {
	out := make([]track.Track, n)
	for i := range out {
		out[i] = track.Track{Path: fmt.Sprintf("/music/%02d.flac", i), Artist: fmt.Sprintf("artist-%d", i%3)}
	}
	return out
}

// albumTracks interleaves albums so the grouped sort has work to do.
func albumTracks(albums []string, per int) []track.Track {
	var out []track.Track
	for i := 0; i < per; i++ {
		for _, album := range albums {
			out = append(out, track.Track{
				Path:   fmt.Sprintf("/music/%s/%03d.flac", album, i),
				Album:  album,
				Artist: "artist-" + album,
			})
		}
	}
	return out
}

func newPlaylist(t *testing.T, tracks []track.Track, cfg config.Playback, hist *history.History) *Playlist {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	p, err := New(context.Background(), "test", tracks, cfg, hist, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func identities(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Identity()
	}
	slices.Sort(out)
	return out
}

func albumRuns(tracks []track.Track) []string {
	var runs []string
	for i, t := range tracks {
		if i == 0 || tracks[i-1].Album != t.Album {
			runs = append(runs, t.Album)
		}
	}
	return runs
}

func TestSequenceRotatesToStartTrack(t *testing.T) {
	tracks := seqTracks(10)
	p := newPlaylist(t, tracks, config.Playback{StartTrack: tracks[3].Path}, nil)

	got := p.Tracks()
	for i, want := range []int{3, 4, 5, 6, 7, 8, 9, 0, 1, 2} {
		if got[i].Path != tracks[want].Path {
			t.Fatalf("position %d = %s, want %s", i, got[i].Path, tracks[want].Path)
		}
	}
}

func TestSequenceWithoutStartKeepsInputOrder(t *testing.T) {
	tracks := seqTracks(5)
	p := newPlaylist(t, tracks, config.Playback{}, nil)
	if !reflect.DeepEqual(p.Tracks(), tracks) {
		t.Fatalf("order changed: %v", p.Tracks())
	}
}

func TestStartTrackNotFound(t *testing.T) {
	kinds := []track.GroupingKind{track.GroupingNone, track.GroupingRandom, track.GroupingAlbum}
	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			_, err := New(context.Background(), "test", albumTracks([]string{"A"}, 3),
				config.Playback{Grouping: kind, StartTrack: "/missing.flac", Seed: 1}, nil, zerolog.Nop())
			if !errors.Is(err, ErrStartTrackNotFound) {
				t.Fatalf("err = %v, want ErrStartTrackNotFound", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	if _, err := Load(ctx, "test", []string{"/a"}, nil, config.Playback{}, nil, zerolog.Nop()); !errors.Is(err, ErrMissingAccessor) {
		t.Fatalf("err = %v, want ErrMissingAccessor", err)
	}

	errBroken := errors.New("unreadable")
	broken := track.AccessorFunc(func(context.Context, string) (track.Track, error) {
		return track.Track{}, errBroken
	})
	if _, err := Load(ctx, "test", []string{"/a"}, broken, config.Playback{}, nil, zerolog.Nop()); !errors.Is(err, errBroken) {
		t.Fatalf("err = %v, want wrapped accessor error", err)
	}

	accessor := track.AccessorFunc(func(_ context.Context, path string) (track.Track, error) {
		return track.Track{Path: path, Album: "A"}, nil
	})
	p, err := Load(ctx, "test", []string{"/b", "/a"}, accessor, config.Playback{}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Len() != 2 || p.Tracks()[0].Path != "/b" {
		t.Fatalf("unexpected tracks %v", p.Tracks())
	}
}

func TestRandomKeepsStartFirst(t *testing.T) {
	tracks := seqTracks(50)
	start := tracks[17]
	p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingRandom, StartTrack: start.Path, Seed: 7}, nil)

	got := p.Tracks()
	if got[0].Path != start.Path {
		t.Fatalf("first = %s, want %s", got[0].Path, start.Path)
	}
	if !reflect.DeepEqual(identities(got), identities(tracks)) {
		t.Fatal("random sort is not a permutation")
	}
}

func TestGroupedSortIsContiguousAndDeterministic(t *testing.T) {
	tracks := albumTracks([]string{"C", "A", "B"}, 4)
	p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, SkipRandomStart: true}, nil)

	got := p.Tracks()
	if runs := albumRuns(got); !reflect.DeepEqual(runs, []string{"C", "A", "B"}) {
		t.Fatalf("runs = %v, want first-seen order C A B", runs)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Album == got[i-1].Album && got[i].Path < got[i-1].Path {
			t.Fatalf("tracks within a group are not ordered by identity: %s before %s", got[i-1].Path, got[i].Path)
		}
	}
	if !reflect.DeepEqual(identities(got), identities(tracks)) {
		t.Fatal("grouped sort is not a permutation")
	}
}

func TestGroupedRandomStartKeepsContiguity(t *testing.T) {
	tracks := albumTracks([]string{"A", "B", "C", "D", "E"}, 6)
	for seed := int64(1); seed <= 20; seed++ {
		p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, Seed: seed}, nil)
		if runs := albumRuns(p.Tracks()); len(runs) != 5 {
			t.Fatalf("seed %d: runs = %v, want 5 contiguous groups", seed, runs)
		}
	}
}

func TestGroupedExplicitStartLeadsItsBlock(t *testing.T) {
	tracks := albumTracks([]string{"A", "B", "C"}, 4)
	start := track.Track{Path: "/music/B/002.flac"}
	p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, StartTrack: start.Path}, nil)

	got := p.Tracks()
	if got[0].Path != start.Path {
		t.Fatalf("first = %s, want %s", got[0].Path, start.Path)
	}
	for i := 1; i < 4; i++ {
		if got[i].Album != "B" {
			t.Fatalf("position %d album = %s, want B", i, got[i].Album)
		}
	}
	if runs := albumRuns(got); len(runs) != 3 {
		t.Fatalf("runs = %v", runs)
	}
}

func TestGroupedSortPushesRecentAlbums(t *testing.T) {
	hist := history.New(history.DefaultCapacity)
	hist.Add(history.BucketAlbums, "X")

	tracks := albumTracks([]string{"X", "B", "C", "D", "E"}, 50)
	for seed := int64(1); seed <= 5; seed++ {
		p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, CheckEntirePlaylist: true, Seed: seed}, hist)

		res := p.ShuffleResult()
		if res.Skipped || !res.Converged || res.CheckCount != 50 {
			t.Fatalf("seed %d: unexpected shuffle result %+v", seed, res)
		}
		for i, tr := range p.Tracks()[:50] {
			if tr.Album == "X" {
				t.Fatalf("seed %d: recent album at position %d", seed, i)
			}
		}
		if runs := albumRuns(p.Tracks()); len(runs) != 5 {
			t.Fatalf("seed %d: runs = %v", seed, runs)
		}
	}
}

func TestSkipMemoryShuffle(t *testing.T) {
	hist := history.New(history.DefaultCapacity)
	hist.Add(history.BucketAlbums, "X")

	tracks := albumTracks([]string{"X", "B", "C", "D", "E"}, 50)
	p := newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, SkipRandomStart: true, SkipMemoryShuffle: true}, hist)
	if p.Tracks()[0].Album != "X" {
		t.Fatalf("first album = %s, want X", p.Tracks()[0].Album)
	}
}

func TestNextTrackMovesTracksToPlayed(t *testing.T) {
	tracks := seqTracks(5)
	p := newPlaylist(t, tracks, config.Playback{}, nil)

	if _, ok := p.CurrentTrack(); ok {
		t.Fatal("current track before the first advance")
	}
	for i := 0; i < 2; i++ {
		step, ok := p.NextTrack(false, 0)
		if !ok || step.Track.Path != tracks[i].Path {
			t.Fatalf("advance %d = %v %v", i, step.Track.Path, ok)
		}
		if step.Boundary != nil {
			t.Fatalf("ungrouped playlist reported boundary %+v", step.Boundary)
		}
	}
	if p.Index() != 1 || p.PendingCount() != 3 {
		t.Fatalf("index %d pending %d", p.Index(), p.PendingCount())
	}
	if p.IsPending(tracks[0].Path) || p.IsPending(tracks[1].Path) || !p.IsPending(tracks[2].Path) {
		t.Fatal("partition does not match cursor")
	}
	if got := p.Played(); !reflect.DeepEqual(got, []string{tracks[0].Path, tracks[1].Path}) {
		t.Fatalf("played = %v", got)
	}
}

func TestNextTrackPlacesMarksSkippedPlayed(t *testing.T) {
	tracks := seqTracks(5)
	p := newPlaylist(t, tracks, config.Playback{}, nil)

	step, ok := p.NextTrack(false, 2)
	if !ok || step.Track.Path != tracks[2].Path {
		t.Fatalf("got %s %v", step.Track.Path, ok)
	}
	for _, tr := range tracks[:3] {
		if p.IsPending(tr.Identity()) {
			t.Fatalf("%s still pending", tr.Path)
		}
	}
	if p.PendingCount() != 2 {
		t.Fatalf("pending = %d", p.PendingCount())
	}
}

func TestNextTrackPastEndLeavesStateUntouched(t *testing.T) {
	p := newPlaylist(t, seqTracks(3), config.Playback{}, nil)
	p.NextTrack(false, 0)

	if _, ok := p.NextTrack(false, 5); ok {
		t.Fatal("expected exhaustion")
	}
	if p.Index() != 0 || p.PendingCount() != 2 {
		t.Fatalf("state changed: index %d pending %d", p.Index(), p.PendingCount())
	}
	p.NextTrack(false, 1)
	if !p.Exhausted() {
		t.Fatal("expected exhausted playlist")
	}
	if _, ok := p.NextTrack(false, 0); ok {
		t.Fatal("expected no track")
	}
}

func TestEmptyPlaylist(t *testing.T) {
	p := newPlaylist(t, nil, config.Playback{Grouping: track.GroupingAlbum}, nil)
	if _, ok := p.NextTrack(true, 0); ok {
		t.Fatal("expected no track")
	}
	if _, ok := p.UpcomingTrack(0); ok {
		t.Fatal("expected no upcoming track")
	}
	if _, ok := p.NextGrouping(); ok {
		t.Fatal("expected no grouping")
	}
}

func TestNextTrackRecordsEveryBucket(t *testing.T) {
	hist := history.New(10)
	tr := track.Track{Path: "/m/1.flac", Album: "Blue", Artist: "Joni", Genre: "folk"}
	p := newPlaylist(t, []track.Track{tr}, config.Playback{Grouping: track.GroupingAlbum}, hist)

	p.NextTrack(false, 0)
	for bucket, want := range map[history.Bucket]string{
		history.BucketFiles:   "/m/1.flac",
		history.BucketAlbums:  "Blue",
		history.BucketArtists: "Joni",
		history.BucketGenres:  "folk",
	} {
		if !hist.Contains(bucket, want) {
			t.Errorf("bucket %s missing %q", bucket, want)
		}
	}
}

func groupedFixture(t *testing.T, albums []string, per int) *Playlist {
	t.Helper()
	var tracks []track.Track
	for _, album := range albums {
		for i := 0; i < per; i++ {
			tracks = append(tracks, track.Track{Path: fmt.Sprintf("/music/%s/%d.flac", album, i), Album: album})
		}
	}
	return newPlaylist(t, tracks, config.Playback{Grouping: track.GroupingAlbum, SkipRandomStart: true, SkipMemoryShuffle: true}, nil)
}

func TestNextTrackBoundaries(t *testing.T) {
	p := groupedFixture(t, []string{"A", "B"}, 2)

	want := []*Boundary{{New: "A"}, nil, {Old: "A", New: "B"}, nil}
	for i, w := range want {
		step, ok := p.NextTrack(false, 0)
		if !ok {
			t.Fatalf("advance %d failed", i)
		}
		if !reflect.DeepEqual(step.Boundary, w) {
			t.Fatalf("advance %d boundary = %+v, want %+v", i, step.Boundary, w)
		}
	}
}

func TestSkipGroupingAppliesPlacesFirst(t *testing.T) {
	p := groupedFixture(t, []string{"A", "B", "C"}, 3)
	p.NextTrack(false, 0) // A/0

	// Two places land on B/0, which already starts a new group.
	step, ok := p.NextTrack(true, 2)
	if !ok || step.Track.Path != "/music/B/0.flac" {
		t.Fatalf("got %s %v", step.Track.Path, ok)
	}
	if !reflect.DeepEqual(step.Boundary, &Boundary{Old: "A", New: "B"}) {
		t.Fatalf("boundary = %+v", step.Boundary)
	}

	// One place lands on B/2, still inside B, so the skip continues to C/0.
	step, ok = p.NextTrack(true, 1)
	if !ok || step.Track.Path != "/music/C/0.flac" {
		t.Fatalf("got %s %v", step.Track.Path, ok)
	}
	if !reflect.DeepEqual(step.Boundary, &Boundary{Old: "B", New: "C"}) {
		t.Fatalf("boundary = %+v", step.Boundary)
	}
	if p.Index() != 6 || p.PendingCount() != 2 {
		t.Fatalf("index %d pending %d", p.Index(), p.PendingCount())
	}
}

func TestSkipGroupingOffTheEnd(t *testing.T) {
	p := groupedFixture(t, []string{"A", "B"}, 2)
	p.NextTrack(false, 2) // B/0

	if _, ok := p.NextTrack(true, 0); ok {
		t.Fatal("expected exhaustion while skipping the last group")
	}
	if p.Index() != 2 {
		t.Fatalf("index = %d, want 2", p.Index())
	}
}

func TestUpcomingTrackIsReadOnly(t *testing.T) {
	hist := history.New(10)
	p := newPlaylist(t, albumTracks([]string{"A", "B"}, 3), config.Playback{Grouping: track.GroupingAlbum}, hist)
	p.NextTrack(false, 0)
	before := hist.Len(history.BucketFiles)

	first, ok1 := p.UpcomingTrack(1)
	second, ok2 := p.UpcomingTrack(1)
	if !ok1 || !ok2 || !reflect.DeepEqual(first, second) {
		t.Fatalf("upcoming not idempotent: %+v %+v", first, second)
	}
	if p.Index() != 0 || p.PendingCount() != 5 || hist.Len(history.BucketFiles) != before {
		t.Fatal("upcoming mutated state")
	}
	if first.Track.Path != p.Tracks()[2].Path {
		t.Fatalf("upcoming = %s, want %s", first.Track.Path, p.Tracks()[2].Path)
	}
}

func TestInsertUpcomingTracks(t *testing.T) {
	tracks := seqTracks(5)
	p := newPlaylist(t, tracks, config.Playback{}, nil)
	p.NextTrack(false, 1) // index 1

	x := track.Track{Path: "/ext/x.flac"}
	y := track.Track{Path: "/ext/y.flac"}
	if pos := p.InsertUpcomingTracks([]track.Track{x, y}, 1, false); pos != 2 {
		t.Fatalf("pos = %d, want 2", pos)
	}
	got := p.Tracks()
	if len(got) != 7 || got[2].Path != x.Path || got[3].Path != y.Path || got[4].Path != tracks[2].Path {
		t.Fatalf("unexpected order %v", got)
	}
	if !p.IsPending(x.Path) || !p.IsPending(y.Path) {
		t.Fatal("inserted tracks are not pending")
	}

	z := track.Track{Path: "/ext/z.flac"}
	p.InsertExtension(z, true)
	if p.Len() != 7 || p.IsPending(x.Path) {
		t.Fatal("overwrite did not replace the next track")
	}
	step, ok := p.NextTrack(false, 0)
	if !ok || step.Track.Path != z.Path {
		t.Fatalf("next = %s, want %s", step.Track.Path, z.Path)
	}
}

func TestInsertClampsOffsets(t *testing.T) {
	p := newPlaylist(t, seqTracks(3), config.Playback{}, nil)
	p.NextTrack(false, 0)

	if pos := p.InsertUpcomingTracks([]track.Track{{Path: "/a"}}, -4, false); pos != 1 {
		t.Fatalf("pos = %d, want 1", pos)
	}
	if pos := p.InsertUpcomingTracks([]track.Track{{Path: "/b"}}, 100, true); pos != 4 {
		t.Fatalf("pos = %d, want 4", pos)
	}
	if p.Len() != 5 {
		t.Fatalf("len = %d", p.Len())
	}
}

func TestGroupCountAndNextGrouping(t *testing.T) {
	p := groupedFixture(t, []string{"A", "B"}, 3)

	if got := p.GroupCount("A"); got != 3 {
		t.Fatalf("GroupCount(A) = %d", got)
	}
	if got := p.GroupCount("missing"); got != 0 {
		t.Fatalf("GroupCount(missing) = %d", got)
	}
	if next, ok := p.NextGrouping(); !ok || next != "A" {
		t.Fatalf("NextGrouping before start = %q %v", next, ok)
	}
	p.NextTrack(false, 0)
	if next, ok := p.NextGrouping(); !ok || next != "B" {
		t.Fatalf("NextGrouping = %q %v", next, ok)
	}
	p.NextTrack(false, 3)
	if _, ok := p.NextGrouping(); ok {
		t.Fatal("expected no further grouping")
	}

	plain := newPlaylist(t, seqTracks(3), config.Playback{}, nil)
	if plain.GroupCount("") != 0 {
		t.Fatal("ungrouped playlist reported a group count")
	}
	if _, ok := plain.NextGrouping(); ok {
		t.Fatal("ungrouped playlist reported a grouping")
	}
}

func TestSeekForwardKeepsSkippedPending(t *testing.T) {
	tracks := seqTracks(20)
	p := newPlaylist(t, tracks, config.Playback{}, nil)
	for p.Index() < 5 {
		p.NextTrack(false, 0)
	}
	before := p.Tracks()

	step, ok := p.SeekTo(tracks[9].Path)
	if !ok || step.Track.Path != tracks[9].Path {
		t.Fatalf("seek = %s %v", step.Track.Path, ok)
	}
	if !reflect.DeepEqual(before, p.Tracks()) {
		t.Fatal("seek changed the order")
	}
	if p.Index() != 9 {
		t.Fatalf("index = %d, want 9", p.Index())
	}
	for i := 6; i <= 8; i++ {
		if !p.IsPending(tracks[i].Path) {
			t.Fatalf("track %d left pending", i)
		}
	}
	if p.IsPending(tracks[9].Path) {
		t.Fatal("seek target still pending")
	}

	next, _ := p.NextTrack(false, 0)
	if next.Track.Path != tracks[10].Path {
		t.Fatalf("next after seek = %s", next.Track.Path)
	}
}

func TestSeekBackwardReturnsTracksToPending(t *testing.T) {
	tracks := seqTracks(12)
	p := newPlaylist(t, tracks, config.Playback{}, nil)
	p.NextTrack(false, 9) // index 9

	if _, ok := p.SeekTo(tracks[3].Path); !ok {
		t.Fatal("seek failed")
	}
	if p.Index() != 3 {
		t.Fatalf("index = %d", p.Index())
	}
	for i, tr := range tracks {
		if want := i > 3; p.IsPending(tr.Path) != want {
			t.Fatalf("track %d pending = %v, want %v", i, !want, want)
		}
	}
	if len(p.Played()) != 4 {
		t.Fatalf("played = %v", p.Played())
	}
}

func TestSeekForwardThenBackRestoresOnlyPlayed(t *testing.T) {
	tracks := seqTracks(20)
	p := newPlaylist(t, tracks, config.Playback{}, nil)
	p.NextTrack(false, 5) // index 5, tracks 0..5 played

	if _, ok := p.SeekTo(tracks[9].Path); !ok {
		t.Fatal("forward seek failed")
	}
	if _, ok := p.SeekTo(tracks[2].Path); !ok {
		t.Fatal("backward seek failed")
	}
	if p.Index() != 2 {
		t.Fatalf("index = %d, want 2", p.Index())
	}
	if got := p.PendingCount(); got != 17 {
		t.Fatalf("pending = %d, want 17", got)
	}
	if got := len(p.Played()); got != 3 {
		t.Fatalf("played = %v, want 3 entries", p.Played())
	}
	for i, tr := range tracks {
		if want := i > 2; p.IsPending(tr.Path) != want {
			t.Fatalf("track %d pending = %v, want %v", i, !want, want)
		}
	}

	// Seeking forward again onto a previously skipped track plays it once.
	p.SeekTo(tracks[7].Path)
	p.SeekTo(tracks[7].Path)
	if got := p.PendingCount(); got != 16 {
		t.Fatalf("pending after reseek = %d, want 16", got)
	}
}

func TestOverwriteDropsTrackAcrossReset(t *testing.T) {
	p := newPlaylist(t, seqTracks(4), config.Playback{}, nil)
	p.NextTrack(false, 0)
	removed := p.Tracks()[1]

	ext := track.Track{Path: "/ext/x.flac"}
	p.InsertUpcomingTracks([]track.Track{ext}, 1, true)
	if err := p.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if p.Len() != 4 {
		t.Fatalf("len after reset = %d, want 4", p.Len())
	}
	if p.Contains(removed.Path) {
		t.Fatalf("overwritten track %s came back after reset", removed.Path)
	}
	if !p.Contains(ext.Path) {
		t.Fatal("inserted track lost after reset")
	}
	if p.PendingCount() != 4 {
		t.Fatalf("pending = %d, want 4", p.PendingCount())
	}
}

func TestUpcomingTrackMatchesNextTrack(t *testing.T) {
	p := groupedFixture(t, []string{"A", "B"}, 2)
	p.NextTrack(false, 0) // A/0

	peek, ok := p.PeekAt(2)
	if !ok || peek.Track.Path != "/music/B/1.flac" || peek.Boundary != nil {
		t.Fatalf("peek = %s %+v", peek.Track.Path, peek.Boundary)
	}
	up, ok := p.UpcomingTrack(2)
	if !ok {
		t.Fatal("expected an upcoming track")
	}
	next, _ := p.NextTrack(false, 2)
	if !reflect.DeepEqual(up, next) {
		t.Fatalf("upcoming %+v differs from next %+v", up, next)
	}
	if !reflect.DeepEqual(next.Boundary, &Boundary{Old: "A", New: "B"}) {
		t.Fatalf("boundary = %+v", next.Boundary)
	}
}

func TestSeekUnknownLeavesStateUntouched(t *testing.T) {
	p := newPlaylist(t, seqTracks(4), config.Playback{}, nil)
	p.NextTrack(false, 0)

	if _, ok := p.SeekTo("/nope.flac"); ok {
		t.Fatal("seek to unknown identity succeeded")
	}
	if p.Index() != 0 || p.PendingCount() != 3 {
		t.Fatal("failed seek mutated state")
	}
}

func TestSeekMatchesExcerptParent(t *testing.T) {
	tracks := []track.Track{
		{Path: "/m/a.flac"},
		{Path: "/m/b.flac#2", ParentPath: "/m/b.flac"},
		{Path: "/m/c.flac"},
	}
	p := newPlaylist(t, tracks, config.Playback{}, nil)

	step, ok := p.SeekTo("/m/b.flac")
	if !ok || step.Track.Path != "/m/b.flac#2" {
		t.Fatalf("seek = %s %v", step.Track.Path, ok)
	}
	if !p.Contains("/m/b.flac#2") || !p.Contains("/m/b.flac") {
		t.Fatal("Contains should match path and identity")
	}
}

func TestResetRestartsPlayback(t *testing.T) {
	p := newPlaylist(t, albumTracks([]string{"A", "B"}, 3), config.Playback{Grouping: track.GroupingAlbum}, nil)
	for {
		if _, ok := p.NextTrack(false, 0); !ok {
			break
		}
	}
	if err := p.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if p.Index() != -1 || p.PendingCount() != p.Len() || len(p.Played()) != 0 {
		t.Fatalf("reset left index %d pending %d", p.Index(), p.PendingCount())
	}
}

func TestConcurrentReadersDuringAdvance(t *testing.T) {
	p := newPlaylist(t, albumTracks([]string{"A", "B", "C"}, 100), config.Playback{Grouping: track.GroupingAlbum}, nil)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if step, ok := p.UpcomingTrack(0); ok && step.Track.IsZero() {
					t.Error("torn read")
				}
				p.GroupCount("A")
				p.NextGrouping()
			}
		}()
	}
	for {
		if _, ok := p.NextTrack(false, 0); !ok {
			break
		}
	}
	close(done)
	wg.Wait()
}
