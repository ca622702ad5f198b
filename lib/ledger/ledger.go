// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/ledger/lib/accountstore"
	"github.com/bureau-foundation/ledger/lib/clock"
	"github.com/bureau-foundation/ledger/lib/config"
	"github.com/bureau-foundation/ledger/lib/identity"
	"github.com/bureau-foundation/ledger/lib/sessiontoken"
	"github.com/bureau-foundation/ledger/lib/sqlitepool"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

// Options carries the collaborators Open does not build itself.
type Options struct {
	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// BcryptCost overrides the identity default. Tests lower it.
	BcryptCost int
}

// Ledger is an opened ledger database with its engine and directory.
type Ledger struct {
	Pool      *sqlitepool.Pool
	Store     *accountstore.Store
	Engine    *transfer.Engine
	Directory *identity.Directory

	// PublicKey verifies session tokens minted by Directory.
	PublicKey ed25519.PublicKey
}

// Open creates the configured directories, opens the database with
// both schemas applied, and loads the session signing keypair,
// generating it on first start.
func Open(cfg *config.Config, options Options) (*Ledger, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}

	if err := cfg.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	public, private, generated, err := sessiontoken.LoadOrGenerateKeypair(cfg.Paths.State)
	if err != nil {
		return nil, fmt.Errorf("ledger: session signing key: %w", err)
	}
	if generated {
		logger.Info("generated session signing keypair", "state_dir", cfg.Paths.State)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:        cfg.Paths.Database,
		PoolSize:    cfg.Database.PoolSize,
		Synchronous: sqlitepool.Synchronous(cfg.Database.Synchronous),
		Logger:      logger,
		OnConnect:   migrate,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	store := accountstore.New(pool, logger.With("component", "accountstore"))
	engine, err := transfer.New(transfer.Config{
		Store:   store,
		Clock:   clk,
		Logger:  logger.With("component", "transfer"),
		Ceiling: cfg.Transfer.Ceiling,
		Timeout: cfg.Transfer.Timeout,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("ledger: %w", err), pool.Close())
	}
	directory, err := identity.New(identity.Config{
		Pool:       pool,
		PublicKey:  public,
		PrivateKey: private,
		Clock:      clk,
		Logger:     logger.With("component", "identity"),
		TokenTTL:   cfg.Session.TTL,
		LoginDelay: cfg.Session.LoginDelay,
		BcryptCost: options.BcryptCost,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("ledger: %w", err), pool.Close())
	}

	return &Ledger{
		Pool:      pool,
		Store:     store,
		Engine:    engine,
		Directory: directory,
		PublicKey: public,
	}, nil
}

// Close closes the database pool.
func (l *Ledger) Close() error {
	return l.Pool.Close()
}

func migrate(conn *sqlite.Conn) error {
	if err := accountstore.Migrate(conn); err != nil {
		return err
	}
	return identity.Migrate(conn)
}
