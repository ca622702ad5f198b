// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accountstore

import (
	"context"
	"fmt"
	"math"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Transaction is one unit of work holding the database write lock. Its
// effects become visible to other connections only on Commit.
//
// A successful Commit or Rollback ends the unit and releases the
// underlying connection; Rollback after that is a no-op. A failed
// Commit or Rollback that leaves SQLite inside the transaction leaves
// the unit open: its writes are still pending and every method remains
// usable, so the caller can undo its writes and Commit, or try Rollback
// again. Discard ends the unit in any state.
//
// A Transaction belongs to one goroutine.
type Transaction interface {
	// ConditionalDebit subtracts amount from account id if and only if
	// its balance is at least amount. It reports whether the debit was
	// applied. A missing account reports false.
	ConditionalDebit(id string, amount int64) (bool, error)

	// Credit adds amount to account id. ErrNotFound means the account
	// does not exist.
	Credit(id string, amount int64) error

	// Commit makes the unit durable. If it fails, nothing was applied.
	Commit() error

	// Rollback discards the unit's writes.
	Rollback() error

	// Discard rolls back if the unit is still open and releases the
	// connection whether or not the rollback succeeds. It reports the
	// rollback failure, if any.
	Discard() error
}

// Begin takes a connection and starts an IMMEDIATE transaction on it.
// ctx bounds the wait for a connection and interrupts statements run
// by the transaction; it does not prevent Rollback. IMMEDIATE takes the
// database write lock up front, so open units never overlap.
func (s *Store) Begin(ctx context.Context) (Transaction, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("accountstore: begin: %w", err)
	}
	if err := sqlitex.ExecuteTransient(conn, "BEGIN IMMEDIATE;", nil); err != nil {
		s.pool.Put(conn)
		return nil, fmt.Errorf("accountstore: begin: %w", err)
	}
	return &transaction{store: s, conn: conn}, nil
}

type transaction struct {
	store *Store
	conn  *sqlite.Conn
	done  bool
}

func (t *transaction) ConditionalDebit(id string, amount int64) (bool, error) {
	if t.done {
		return false, ErrTransactionDone
	}
	if amount < 0 {
		return false, fmt.Errorf("accountstore: debit of negative amount %d", amount)
	}
	err := sqlitex.Execute(t.conn,
		"UPDATE accounts SET balance = balance - ? WHERE id = ? AND balance >= ?",
		&sqlitex.ExecOptions{Args: []any{amount, id, amount}})
	if err != nil {
		return false, fmt.Errorf("accountstore: debit %s: %w", id, err)
	}
	return t.conn.Changes() == 1, nil
}

func (t *transaction) Credit(id string, amount int64) error {
	if t.done {
		return ErrTransactionDone
	}
	if amount < 0 {
		return fmt.Errorf("accountstore: credit of negative amount %d", amount)
	}
	err := sqlitex.Execute(t.conn,
		"UPDATE accounts SET balance = balance + ? WHERE id = ? AND balance <= ?",
		&sqlitex.ExecOptions{Args: []any{amount, id, math.MaxInt64 - amount}})
	if err != nil {
		return fmt.Errorf("accountstore: credit %s: %w", id, err)
	}
	if t.conn.Changes() == 1 {
		return nil
	}

	exists := false
	err = sqlitex.Execute(t.conn, "SELECT 1 FROM accounts WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(*sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("accountstore: credit %s: %w", id, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, id)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (t *transaction) Commit() error {
	if t.done {
		return ErrTransactionDone
	}
	err := sqlitex.ExecuteTransient(t.conn, "COMMIT;", nil)
	if err == nil || t.conn.AutocommitEnabled() {
		t.release()
	}
	if err != nil {
		return fmt.Errorf("accountstore: commit: %w", err)
	}
	return nil
}

func (t *transaction) Rollback() error {
	if t.done {
		return nil
	}
	// A done context would interrupt ROLLBACK itself.
	t.conn.SetInterrupt(nil)
	err := rollbackStatement(t.conn)
	if err == nil || t.conn.AutocommitEnabled() {
		t.release()
	}
	if err != nil {
		return fmt.Errorf("accountstore: rollback: %w", err)
	}
	return nil
}

func (t *transaction) Discard() error {
	if t.done {
		return nil
	}
	t.conn.SetInterrupt(nil)
	var err error
	if !t.conn.AutocommitEnabled() {
		if err = rollbackStatement(t.conn); err != nil && !t.conn.AutocommitEnabled() {
			// The pool rolls the connection back before lending it again.
			t.store.logger.Error("connection returned to pool inside an open transaction", "error", err)
		}
	}
	t.release()
	if err != nil {
		return fmt.Errorf("accountstore: discard: %w", err)
	}
	return nil
}

// rollbackStatement is replaced in tests to simulate a ROLLBACK that
// fails and leaves the transaction open.
var rollbackStatement = func(conn *sqlite.Conn) error {
	return sqlitex.ExecuteTransient(conn, "ROLLBACK;", nil)
}

// release ends the unit and returns the connection to the pool.
func (t *transaction) release() {
	t.done = true
	t.store.pool.Put(t.conn)
	t.conn = nil
}
