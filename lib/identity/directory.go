// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/ledger/lib/clock"
	"github.com/bureau-foundation/ledger/lib/sessiontoken"
	"github.com/bureau-foundation/ledger/lib/sqlitepool"
)

// Audience is the audience claim of every ledger session token.
const Audience = "ledger"

const (
	DefaultTokenTTL   = 60 * time.Minute
	DefaultLoginDelay = time.Second
)

var (
	// ErrInvalidCredentials is the single answer to a failed login.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrUnauthenticated wraps every reason a token is refused.
	ErrUnauthenticated = errors.New("identity: not authenticated")

	// ErrSessionRevoked means the token was logged out.
	ErrSessionRevoked = errors.New("identity: session has been logged out")

	// ErrUserExists is returned by CreateUser for a duplicate email.
	ErrUserExists = errors.New("identity: user already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	password_hash BLOB NOT NULL
) STRICT;

CREATE TABLE IF NOT EXISTS revoked_sessions (
	id         TEXT PRIMARY KEY,
	expires_at INTEGER NOT NULL
) STRICT;
`

// Migrate creates the identity tables if they do not exist.
func Migrate(conn *sqlite.Conn) error {
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("identity: applying schema: %w", err)
	}
	return nil
}

// Config holds a Directory's collaborators.
type Config struct {
	Pool       *sqlitepool.Pool
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
	Clock      clock.Clock
	Logger     *slog.Logger

	// TokenTTL defaults to DefaultTokenTTL.
	TokenTTL time.Duration

	// LoginDelay is waited out by every Login attempt. Zero disables
	// it; use DefaultLoginDelay in production.
	LoginDelay time.Duration

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Directory authenticates account owners.
type Directory struct {
	pool       *sqlitepool.Pool
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
	clock      clock.Clock
	logger     *slog.Logger
	tokenTTL   time.Duration
	loginDelay time.Duration
	bcryptCost int

	// dummyHash is compared against when the email is unknown.
	dummyHash []byte
}

// New validates cfg and returns a Directory.
func New(cfg Config) (*Directory, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("identity: Pool is required")
	}
	if len(cfg.PublicKey) != ed25519.PublicKeySize || len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("identity: an Ed25519 signing keypair is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("identity: Clock is required")
	}

	directory := &Directory{
		pool:       cfg.Pool,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		tokenTTL:   cfg.TokenTTL,
		loginDelay: cfg.LoginDelay,
		bcryptCost: cfg.BcryptCost,
	}
	if directory.logger == nil {
		directory.logger = slog.New(slog.DiscardHandler)
	}
	if directory.tokenTTL <= 0 {
		directory.tokenTTL = DefaultTokenTTL
	}
	if directory.bcryptCost == 0 {
		directory.bcryptCost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("no such user"), directory.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("identity: preparing dummy hash: %w", err)
	}
	directory.dummyHash = dummy
	return directory, nil
}

// User is a registered owner.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateUser registers a user with a bcrypt hash of password.
func (d *Directory) CreateUser(ctx context.Context, user User, password []byte) error {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return fmt.Errorf("identity: email is required")
	}
	if len(password) == 0 {
		return fmt.Errorf("identity: password is required")
	}

	hash, err := bcrypt.GenerateFromPassword(password, d.bcryptCost)
	if err != nil {
		return fmt.Errorf("identity: hashing password for %s: %w", email, err)
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("identity: create user: %w", err)
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{email, user.Name, hash}})
	if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey {
		return fmt.Errorf("%w: %s", ErrUserExists, email)
	}
	if err != nil {
		return fmt.Errorf("identity: create user %s: %w", email, err)
	}
	d.logger.Info("user created", "email", email)
	return nil
}

// Session is the result of a successful login.
type Session struct {
	Token     []byte    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks email and password and mints a session token. Every
// credential failure returns ErrInvalidCredentials after LoginDelay.
func (d *Directory) Login(ctx context.Context, email string, password []byte) (Session, error) {
	started := d.clock.Now()
	email = strings.TrimSpace(email)

	hash, found, err := d.passwordHash(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if !found {
		hash = d.dummyHash
	}
	matched := bcrypt.CompareHashAndPassword(hash, password) == nil && found

	if err := d.waitOutDelay(ctx, started); err != nil {
		return Session{}, err
	}
	if !matched {
		d.logger.Info("login failed", "email", email)
		return Session{}, ErrInvalidCredentials
	}

	id, err := sessiontoken.NewID()
	if err != nil {
		return Session{}, err
	}
	now := d.clock.Now()
	expires := now.Add(d.tokenTTL)
	raw, err := sessiontoken.Mint(d.privateKey, &sessiontoken.Token{
		Subject:   email,
		Audience:  Audience,
		ID:        id,
		IssuedAt:  now.Unix(),
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("identity: minting session: %w", err)
	}

	d.logger.Info("login succeeded", "email", email, "session_id", id)
	return Session{Token: raw, Subject: email, ExpiresAt: time.Unix(expires.Unix(), 0)}, nil
}

// Authenticate verifies a session token and returns its subject.
func (d *Directory) Authenticate(ctx context.Context, raw []byte) (string, error) {
	token, err := sessiontoken.VerifyAudienceAt(d.publicKey, raw, Audience, d.clock.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	revoked, err := d.isRevoked(ctx, token.ID)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", fmt.Errorf("%w: %w", ErrUnauthenticated, ErrSessionRevoked)
	}
	return token.Subject, nil
}

// Logout revokes a session until its natural expiry. An already
// expired token needs no revocation and is accepted silently.
func (d *Directory) Logout(ctx context.Context, raw []byte) error {
	token, err := sessiontoken.VerifyAudienceAt(d.publicKey, raw, Audience, d.clock.Now())
	if errors.Is(err, sessiontoken.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("identity: logout: %w", err)
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO revoked_sessions (id, expires_at) VALUES (?, ?)",
		&sqlitex.ExecOptions{Args: []any{token.ID, token.ExpiresAt}})
	if err != nil {
		return fmt.Errorf("identity: logout: %w", err)
	}
	d.logger.Info("session revoked", "email", token.Subject, "session_id", token.ID)
	return nil
}

// PruneRevocations forgets revocations of tokens that have expired on
// their own, and returns how many were removed.
func (d *Directory) PruneRevocations(ctx context.Context) (int, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("identity: prune revocations: %w", err)
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM revoked_sessions WHERE expires_at <= ?", &sqlitex.ExecOptions{
		Args: []any{d.clock.Now().Unix()},
	})
	if err != nil {
		return 0, fmt.Errorf("identity: prune revocations: %w", err)
	}
	return conn.Changes(), nil
}

func (d *Directory) passwordHash(ctx context.Context, email string) ([]byte, bool, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("identity: login: %w", err)
	}
	defer d.pool.Put(conn)

	var (
		hash  []byte
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT password_hash FROM users WHERE email = ?", &sqlitex.ExecOptions{
		Args: []any{email},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			hash = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, hash)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("identity: login: %w", err)
	}
	return hash, found, nil
}

func (d *Directory) isRevoked(ctx context.Context, id string) (bool, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("identity: checking revocation: %w", err)
	}
	defer d.pool.Put(conn)

	revoked := false
	err = sqlitex.Execute(conn, "SELECT 1 FROM revoked_sessions WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(*sqlite.Stmt) error {
			revoked = true
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("identity: checking revocation: %w", err)
	}
	return revoked, nil
}

// waitOutDelay blocks until LoginDelay has passed since started.
func (d *Directory) waitOutDelay(ctx context.Context, started time.Time) error {
	remaining := d.loginDelay - d.clock.Now().Sub(started)
	if remaining <= 0 {
		return nil
	}
	select {
	case <-d.clock.After(remaining):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("identity: login: %w", ctx.Err())
	}
}
