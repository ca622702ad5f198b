// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info returns a formatted version string suitable for --version output.
// Without -ldflags, the commit comes from the VCS stamp the go command
// embeds in module builds, when there is one.
func Info() string {
	commit, dirty, built := GitCommit, GitDirty == "true", BuildTime
	if commit == "unknown" {
		if stamp, ok := vcsStamp(); ok {
			commit, dirty, built = stamp.revision, stamp.modified, stamp.time
		}
	}

	dirtyMarker := ""
	if dirty {
		dirtyMarker = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, dirtyMarker, built)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

type stamp struct {
	revision string
	modified bool
	time     string
}

func vcsStamp() (stamp, bool) {
	info, ok := readBuildInfo()
	if !ok {
		return stamp{}, false
	}
	result := stamp{time: "unknown"}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			result.revision = setting.Value
		case "vcs.modified":
			result.modified = setting.Value == "true"
		case "vcs.time":
			result.time = setting.Value
		}
	}
	if result.revision == "" {
		return stamp{}, false
	}
	if len(result.revision) > 12 {
		result.revision = result.revision[:12]
	}
	return result, true
}
