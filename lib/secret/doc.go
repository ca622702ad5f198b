// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps passwords out of the Go heap while the CLI
// holds them.
//
// [Buffer] allocates memory via mmap(MAP_ANONYMOUS), locks it into
// physical RAM via mlock, and marks it excluded from core dumps via
// madvise(MADV_DONTDUMP). On Close, the memory is zeroed, unlocked,
// and unmapped.
//
// [ReadTerminal] reads a password with echo disabled and
// [ReadFromPath] reads one from a file or stdin. Both zero their
// intermediate copies.
package secret
