/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of Muse.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/muse/internal/version.Version=X.Y.Z
var Version = "0.1.0"

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{Version: Version, GoVersion: runtime.Version()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Revision = shortRevision(s.Value)
			}
		}
	}
	return info
}

// String renders the info on one line.
func (i Info) String() string {
	if i.Revision == "" {
		return fmt.Sprintf("muse %s (%s)", i.Version, i.GoVersion)
	}
	return fmt.Sprintf("muse %s-%s (%s)", i.Version, i.Revision, i.GoVersion)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
