/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/shuffle"
	"github.com/friendsincode/muse/internal/track"
)

// sorter computes a playback order from the constructor order. It never
// touches playlist state so it can run without holding the lock.
type sorter struct {
	kind   track.GroupingKind
	cfg    config.Playback
	hist   *history.History
	rng    *rand.Rand
	logger zerolog.Logger
}

func (s sorter) sort(input []track.Track) ([]track.Track, shuffle.Result, error) {
	order := slices.Clone(input)
	var res shuffle.Result

	switch {
	case s.kind == track.GroupingNone:
		if s.cfg.StartTrack == "" {
			return order, res, nil
		}
		idx := indexOf(order, s.cfg.StartTrack)
		if idx < 0 {
			return nil, res, fmt.Errorf("%w: %s", ErrStartTrackNotFound, s.cfg.StartTrack)
		}
		return slices.Concat(order[idx:], order[:idx]), res, nil

	case s.kind == track.GroupingRandom:
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		if s.cfg.StartTrack == "" {
			return order, res, nil
		}
		idx := indexOf(order, s.cfg.StartTrack)
		if idx < 0 {
			return nil, res, fmt.Errorf("%w: %s", ErrStartTrackNotFound, s.cfg.StartTrack)
		}
		start := order[idx]
		order = slices.Delete(order, idx, idx+1)
		return slices.Insert(order, 0, start), res, nil
	}

	startIdx := -1
	if s.cfg.StartTrack != "" {
		startIdx = indexOf(order, s.cfg.StartTrack)
		if startIdx < 0 {
			return nil, res, fmt.Errorf("%w: %s", ErrStartTrackNotFound, s.cfg.StartTrack)
		}
	}

	lead := -1
	if startIdx >= 0 {
		lead = startIdx
	} else if !s.cfg.SkipRandomStart && len(order) > 0 {
		lead = s.rng.Intn(len(order))
	}

	ordinals := groupOrdinals(order, s.kind, lead)
	slices.SortStableFunc(order, func(a, b track.Track) int {
		if c := cmp.Compare(ordinals[s.kind.Attribute(a)], ordinals[s.kind.Attribute(b)]); c != 0 {
			return c
		}
		return cmp.Compare(a.Identity(), b.Identity())
	})

	if !s.cfg.SkipMemoryShuffle {
		bucket, _ := history.BucketFor(s.kind)
		res = shuffle.Apply(order, s.kind, s.hist.Snapshot(bucket), shuffle.Options{
			CheckCount: s.cfg.CheckCount,
			Thorough:   s.cfg.CheckEntirePlaylist,
		}, s.logger)
	}

	if startIdx >= 0 {
		order = rotateGroupToFront(order, s.kind, s.cfg.StartTrack)
	}
	return order, res, nil
}

// groupOrdinals numbers attribute values by first appearance. When lead is a
// valid index the numbering starts at that track's value and wraps around.
func groupOrdinals(tracks []track.Track, kind track.GroupingKind, lead int) map[string]int {
	var seen []string
	index := make(map[string]int)
	for _, t := range tracks {
		value := kind.Attribute(t)
		if _, ok := index[value]; ok {
			continue
		}
		index[value] = len(seen)
		seen = append(seen, value)
	}

	offset := 0
	if lead >= 0 && lead < len(tracks) {
		offset = index[kind.Attribute(tracks[lead])]
	}
	ordinals := make(map[string]int, len(seen))
	for i, value := range seen {
		ordinals[value] = (i - offset + len(seen)) % len(seen)
	}
	return ordinals
}

// rotateGroupToFront moves every track of the start track's group to the
// front as one block led by the start track. Everything else keeps its order.
func rotateGroupToFront(order []track.Track, kind track.GroupingKind, start string) []track.Track {
	idx := indexOf(order, start)
	if idx < 0 {
		return order
	}
	group := kind.Attribute(order[idx])
	block := []track.Track{order[idx]}
	rest := make([]track.Track, 0, len(order))
	for i, t := range order {
		switch {
		case i == idx:
		case kind.Attribute(t) == group:
			block = append(block, t)
		default:
			rest = append(rest, t)
		}
	}
	return append(block, rest...)
}

// indexOf finds the first track whose path or identity equals ref.
func indexOf(tracks []track.Track, ref string) int {
	return slices.IndexFunc(tracks, func(t track.Track) bool {
		return t.Path == ref || t.Identity() == ref
	})
}
