// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	originalCommit, originalDirty, originalTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() {
		GitCommit, GitDirty, BuildTime = originalCommit, originalDirty, originalTime
	})

	GitCommit, GitDirty, BuildTime = "abc1234", "false", "2026-10-01T00:00:00Z"
	if got, want := Info(), Version+" (abc1234, 2026-10-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want a -dirty marker", got)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, want it to start with Info()", full)
	}
	if !strings.Contains(full, runtime.Version()) {
		t.Errorf("Full() = %q, want the Go version", full)
	}
}

func TestInfoFallsBackToVCSStamp(t *testing.T) {
	originalCommit, originalRead := GitCommit, readBuildInfo
	t.Cleanup(func() {
		GitCommit, readBuildInfo = originalCommit, originalRead
	})

	GitCommit = "unknown"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-09-30T12:00:00Z"},
		}}, true
	}
	if got, want := Info(), Version+" (0123456789ab-dirty, 2026-09-30T12:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	readBuildInfo = func() (*debug.BuildInfo, bool) { return &debug.BuildInfo{}, true }
	if got := Info(); !strings.Contains(got, "(unknown, ") {
		t.Errorf("Info() without a stamp = %q, want unknown commit", got)
	}

	GitCommit = "feedbee"
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		t.Error("build info read although -ldflags set the commit")
		return nil, false
	}
	if got := Info(); !strings.Contains(got, "feedbee") {
		t.Errorf("Info() = %q, want the ldflags commit", got)
	}
}
