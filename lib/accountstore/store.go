// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package accountstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ledger/lib/sqlitepool"
)

var (
	// ErrNotFound means no account matched the id (and owner, for
	// scoped reads).
	ErrNotFound = errors.New("accountstore: account not found")

	// ErrAccountExists is returned by CreateAccount for a duplicate id.
	ErrAccountExists = errors.New("accountstore: account already exists")

	// ErrBalanceOverflow is returned by Credit when the new balance
	// would not fit in an int64.
	ErrBalanceOverflow = errors.New("accountstore: balance overflow")

	// ErrTransactionDone is returned by operations on a committed or
	// rolled-back Transaction.
	ErrTransactionDone = errors.New("accountstore: transaction already finished")
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id      TEXT PRIMARY KEY,
	owner   TEXT NOT NULL,
	balance INTEGER NOT NULL CHECK (balance >= 0)
) STRICT;

CREATE INDEX IF NOT EXISTS accounts_owner ON accounts (owner);
`

// Migrate creates the accounts table if it does not exist. It is meant
// to run from sqlitepool.Config.OnConnect.
func Migrate(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("accountstore: applying schema: %w", err)
	}
	return nil
}

// Account is one ledger line. Balance is in the smallest currency unit.
type Account struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	Balance int64  `json:"balance"`
}

// Store reads and writes accounts through a shared connection pool.
// Every method takes its own connection and returns it before
// returning, so a Store is safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// New returns a Store over pool. The pool's OnConnect must apply
// Migrate.
func New(pool *sqlitepool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{pool: pool, logger: logger}
}

// GetBalance returns the balance of account id if and only if it is
// owned by owner. Any mismatch returns ErrNotFound.
func (s *Store) GetBalance(ctx context.Context, id, owner string) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("accountstore: get balance: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		balance int64
		found   bool
	)
	err = sqlitex.Execute(conn,
		"SELECT balance FROM accounts WHERE id = ? AND owner = ?",
		&sqlitex.ExecOptions{
			Args: []any{id, owner},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				balance = stmt.ColumnInt64(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("accountstore: get balance of %s: %w", id, err)
	}
	if !found {
		return 0, ErrNotFound
	}
	return balance, nil
}

// Accounts lists the accounts owned by owner, ordered by id.
func (s *Store) Accounts(ctx context.Context, owner string) ([]Account, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("accountstore: list accounts: %w", err)
	}
	defer s.pool.Put(conn)

	var accounts []Account
	err = sqlitex.Execute(conn,
		"SELECT id, owner, balance FROM accounts WHERE owner = ? ORDER BY id",
		&sqlitex.ExecOptions{
			Args: []any{owner},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				accounts = append(accounts, Account{
					ID:      stmt.ColumnText(0),
					Owner:   stmt.ColumnText(1),
					Balance: stmt.ColumnInt64(2),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("accountstore: list accounts: %w", err)
	}
	return accounts, nil
}

// Total returns the sum of every balance in the ledger. A successful
// transfer never changes it.
func (s *Store) Total(ctx context.Context) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("accountstore: total: %w", err)
	}
	defer s.pool.Put(conn)

	var total int64
	err = sqlitex.Execute(conn, "SELECT COALESCE(SUM(balance), 0) FROM accounts", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			total = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("accountstore: total: %w", err)
	}
	return total, nil
}

// CreateAccount inserts a new account. It is the seeding path and the
// only insert; it never modifies an existing row.
func (s *Store) CreateAccount(ctx context.Context, account Account) error {
	if account.ID == "" || account.Owner == "" {
		return fmt.Errorf("accountstore: account id and owner are required")
	}
	if account.Balance < 0 {
		return fmt.Errorf("accountstore: account %s: negative opening balance %d", account.ID, account.Balance)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("accountstore: create account: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO accounts (id, owner, balance) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{account.ID, account.Owner, account.Balance}})
	if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey {
		return fmt.Errorf("%w: %s", ErrAccountExists, account.ID)
	}
	if err != nil {
		return fmt.Errorf("accountstore: create account %s: %w", account.ID, err)
	}

	s.logger.Info("account created", "account", account.ID, "owner", account.Owner, "balance", account.Balance)
	return nil
}

// IsTransient reports whether err came from contention, a timeout or an
// I/O failure rather than from the data.
func IsTransient(err error) bool {
	return sqlitepool.IsTransient(err)
}
