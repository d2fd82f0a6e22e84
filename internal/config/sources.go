/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/muse/internal/track"
)

// Sources describes the set of sources a master plays.
type Sources struct {
	Stacked  bool         `yaml:"stacked"`
	Override Playback     `yaml:"override"`
	Sources  []SourceSpec `yaml:"sources"`
}

// SourceSpec is a single source entry of the sources file.
type SourceSpec struct {
	Name      string   `yaml:"name"`
	Directory string   `yaml:"directory"`
	Paths     []string `yaml:"paths"`
	Playback  Playback `yaml:"playback"`
}

// Definition converts the spec into the library lookup definition.
func (s SourceSpec) Definition() track.SourceDefinition {
	return track.SourceDefinition{
		Name:      s.Name,
		Directory: s.Directory,
		Paths:     append([]string(nil), s.Paths...),
	}
}

// Effective returns the source playback settings with the master override applied.
func (s SourceSpec) Effective(override Playback) Playback {
	return Merge(Merge(DefaultPlayback(), s.Playback), override)
}

// LoadSources reads and validates a YAML sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates YAML sources content.
func ParseSources(data []byte) (*Sources, error) {
	var src Sources
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	if len(src.Sources) == 0 {
		return nil, fmt.Errorf("sources file defines no sources")
	}

	seen := make(map[string]bool, len(src.Sources))
	for i, spec := range src.Sources {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("source %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		seen[name] = true
		if spec.Directory == "" && len(spec.Paths) == 0 {
			return nil, fmt.Errorf("source %q needs a directory or explicit paths", name)
		}
		if spec.Playback.Weight < 0 {
			return nil, fmt.Errorf("source %q has negative weight %d", name, spec.Playback.Weight)
		}
		src.Sources[i].Name = name
	}

	return &src, nil
}
