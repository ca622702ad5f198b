// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the ledger
// service and CLI.
//
// Configuration is loaded from a single file specified by either the
// LEDGER_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). [Resolve] tries both and falls back to [Default]
// when neither names a file, so the CLI works out of the box against
// a per-user data directory. There is no file discovery.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${LEDGER_ROOT}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Durations are written in Go syntax ("5s", "60m").
//
// This package depends on no other ledger packages.
package config
