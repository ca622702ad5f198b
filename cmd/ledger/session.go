// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/ledger/lib/secret"
	"github.com/bureau-foundation/ledger/lib/service"
)

// sessionFileEnvVar overrides the session file location.
const sessionFileEnvVar = "LEDGER_SESSION_FILE"

// storedSession is the on-disk form of a login. Token is the signed
// session token exactly as the service issued it.
type storedSession struct {
	Subject   string    `json:"subject"`
	Token     []byte    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// errNotLoggedIn is returned by commands that need a session when none
// is saved.
var errNotLoggedIn = &localError{
	kind:    service.KindUnauthenticated,
	message: "not logged in (run 'ledger login --email <address>')",
}

// localError is a CLI-side failure that maps to an exit code by kind.
type localError struct {
	kind    string
	message string
}

func (e *localError) Error() string     { return e.message }
func (e *localError) ErrorKind() string { return e.kind }

// sessionPath returns $LEDGER_SESSION_FILE, then
// $XDG_CONFIG_HOME/ledger/session, then ~/.config/ledger/session.
func (a *app) sessionPath() (string, error) {
	if path := a.getenv(sessionFileEnvVar); path != "" {
		return path, nil
	}
	if configHome := a.getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "ledger", "session"), nil
	}
	home, err := a.homeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate session file: %w", err)
	}
	return filepath.Join(home, ".config", "ledger", "session"), nil
}

func (a *app) loadSession() (*storedSession, error) {
	path, err := a.sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	defer secret.Zero(data)

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if len(stored.Token) == 0 {
		return nil, errNotLoggedIn
	}
	return &stored, nil
}

// saveSession writes the session with owner-only permissions, creating
// its directory if needed.
func (a *app) saveSession(stored *storedSession) (string, error) {
	path, err := a.sessionPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	defer secret.Zero(data)

	// WriteFile keeps the mode of an existing file, so tighten it.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing session: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return "", fmt.Errorf("securing session file: %w", err)
	}
	return path, nil
}

// removeSession deletes the session file. A missing file is not an
// error.
func (a *app) removeSession() error {
	path, err := a.sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
