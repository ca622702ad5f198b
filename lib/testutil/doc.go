// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ledger packages.
//
// [SocketDir] creates a temporary directory in /tmp short enough for
// Unix domain socket paths.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-timeout pattern so tests do not call time.After
// directly. They are the only place in the test suite where real
// wall-clock timeouts are used.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
