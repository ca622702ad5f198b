// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the ledger
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/ledger/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.1.0-dev" during development builds
// and test runs. When GitCommit is not injected, [Info] reads the VCS
// stamp from the binary's embedded build info instead. [Info] formats them for --version output and the
// service's status action; [Full] adds the Go version and platform.
package version
