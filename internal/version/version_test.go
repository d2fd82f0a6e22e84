/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "1.2.3", GoVersion: "go1.24"}, "muse 1.2.3 (go1.24)"},
		{Info{Version: "1.2.3", Revision: "abc", GoVersion: "go1.24"}, "muse 1.2.3-abc (go1.24)"},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || !strings.HasPrefix(info.GoVersion, "go") {
		t.Fatalf("Get() = %+v", info)
	}
	if got := shortRevision("0123456789abcdef"); got != "0123456789ab" {
		t.Fatalf("shortRevision = %q", got)
	}
}
