/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import (
	"fmt"
	"strings"
)

// GroupingKind selects which attribute, if any, keeps tracks contiguous.
type GroupingKind int

const (
	// GroupingNone plays the input order as a plain sequence.
	GroupingNone GroupingKind = iota
	// GroupingRandom shuffles the full order with no grouping.
	GroupingRandom
	GroupingAlbum
	GroupingArtist
	GroupingComposer
	GroupingGenre
	GroupingForm
	GroupingInstrument
)

// AttributeKinds lists every kind backed by a track attribute, in bucket order.
var AttributeKinds = []GroupingKind{
	GroupingAlbum,
	GroupingArtist,
	GroupingComposer,
	GroupingGenre,
	GroupingForm,
	GroupingInstrument,
}

type groupingSpec struct {
	name      string
	attribute func(Track) string
	divisor   int
}

var groupingSpecs = map[GroupingKind]groupingSpec{
	GroupingNone:       {name: "sequence"},
	GroupingRandom:     {name: "random"},
	GroupingAlbum:      {name: "album", attribute: func(t Track) string { return t.Album }, divisor: 1},
	GroupingArtist:     {name: "artist", attribute: func(t Track) string { return t.Artist }, divisor: 2},
	GroupingComposer:   {name: "composer", attribute: func(t Track) string { return t.Composer }, divisor: 3},
	GroupingGenre:      {name: "genre", attribute: func(t Track) string { return t.Genre }, divisor: 15},
	GroupingForm:       {name: "form", attribute: func(t Track) string { return t.Form }, divisor: 8},
	GroupingInstrument: {name: "instrument", attribute: func(t Track) string { return t.Instrument }, divisor: 10},
}

// String returns the configuration name of the kind.
func (k GroupingKind) String() string {
	if spec, ok := groupingSpecs[k]; ok {
		return spec.name
	}
	return fmt.Sprintf("grouping(%d)", int(k))
}

// IsGrouped reports whether the kind enforces contiguous attribute groups.
func (k GroupingKind) IsGrouped() bool {
	spec, ok := groupingSpecs[k]
	return ok && spec.attribute != nil
}

// Attribute returns the grouping value of t, or "" for ungrouped kinds.
func (k GroupingKind) Attribute(t Track) string {
	spec, ok := groupingSpecs[k]
	if !ok || spec.attribute == nil {
		return ""
	}
	return spec.attribute(t)
}

// ScaleDivisor shrinks the recency check window for broad groupings.
// Ungrouped kinds return 1.
func (k GroupingKind) ScaleDivisor() int {
	spec, ok := groupingSpecs[k]
	if !ok || spec.divisor < 1 {
		return 1
	}
	return spec.divisor
}

// MarshalText implements encoding.TextMarshaler.
func (k GroupingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *GroupingKind) UnmarshalText(text []byte) error {
	parsed, err := ParseGroupingKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseGroupingKind resolves a configuration name. Empty input means GroupingNone.
func ParseGroupingKind(name string) (GroupingKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "none", "sequence":
		return GroupingNone, nil
	case "shuffle":
		return GroupingRandom, nil
	}
	for kind, spec := range groupingSpecs {
		if spec.name == name {
			return kind, nil
		}
	}
	return GroupingNone, fmt.Errorf("unknown grouping kind %q", name)
}
