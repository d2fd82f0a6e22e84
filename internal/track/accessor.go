/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import "context"

// Accessor resolves a stable path identity into a populated Track.
type Accessor interface {
	Track(ctx context.Context, path string) (Track, error)
}

// AccessorFunc adapts a plain function to Accessor.
type AccessorFunc func(ctx context.Context, path string) (Track, error)

// Track calls f(ctx, path).
func (f AccessorFunc) Track(ctx context.Context, path string) (Track, error) {
	return f(ctx, path)
}

// SourceDefinition names where a source's identities come from.
type SourceDefinition struct {
	Name      string
	Directory string   // scanned recursively when set
	Paths     []string // explicit list, used as-is
}

// Lister returns every track identity under a source definition.
type Lister interface {
	List(ctx context.Context, def SourceDefinition) ([]string, error)
}
