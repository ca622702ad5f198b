// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the ledger
// binaries. They cover the raw I/O that happens outside the
// structured logger: reporting a fatal error from main() when the
// logger may not exist yet, and exiting with a chosen status.
package process
