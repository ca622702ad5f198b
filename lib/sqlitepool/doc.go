// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the ledger's SQLite connection pool.
//
// The ledger database is the single durable store: accounts, users and
// revoked sessions live in one file so a transfer's debit and credit
// commit together. The pool wraps zombiezen.com/go/sqlite's sqlitex.Pool
// and applies a fixed set of pragmas to every connection:
//
//   - journal_mode=WAL: readers do not block the single writer.
//   - synchronous=FULL by default: a committed transfer survives power
//     loss, not only a process crash. Config.Synchronous may relax this
//     to NORMAL for throwaway databases.
//   - busy_timeout: how long a writer waits for the write lock before
//     SQLITE_BUSY. Defaults to 5 seconds.
//   - foreign_keys=ON and temp_store=MEMORY.
//
// Connections are request-scoped handles: a caller Takes one, uses it on
// a single goroutine, and Puts it back on every exit path.
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
//
// Take binds the connection to ctx: cancelling ctx interrupts any
// statement running on it. IsTransient reports whether an error from
// this package or from a statement is worth retrying.
package sqlitepool
