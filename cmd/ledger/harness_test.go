// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bureau-foundation/ledger/lib/codec"
	"github.com/bureau-foundation/ledger/lib/config"
	"github.com/bureau-foundation/ledger/lib/identity"
	"github.com/bureau-foundation/ledger/lib/ledger"
	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/testutil"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

// cliHarness runs CLI commands against a seeded ledger served over a
// real socket. The handlers below mirror the service's actions closely
// enough to exercise the client side.
type cliHarness struct {
	root        string
	configPath  string
	sessionPath string
	ledger      *ledger.Ledger
}

// writeConfig writes a development config rooted at root and points
// LEDGER_CONFIG at it.
func writeConfig(t *testing.T, root, socketPath string) string {
	t.Helper()
	path := filepath.Join(root, "ledger.yaml")
	content := fmt.Sprintf(`environment: development
paths:
  root: %s
  state: %s
  database: %s
  socket: %s
session:
  login_delay: 0s
`, root, filepath.Join(root, "state"), filepath.Join(root, "ledger.db"), socketPath)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvVar, path)
	return path
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	root := t.TempDir()
	configPath := writeConfig(t, root, filepath.Join(testutil.SocketDir(t), "ledger.sock"))
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	opened, err := ledger.Open(cfg, ledger.Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { opened.Close() })
	if _, err := opened.Seed(context.Background(), ledger.DefaultFixture()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	server := service.NewSocketServer(cfg.Paths.Socket, slog.New(slog.DiscardHandler), opened.Directory)
	registerFakeActions(server, opened)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "server did not stop"); err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket ready")

	return &cliHarness{
		root:        root,
		configPath:  configPath,
		sessionPath: filepath.Join(root, "config", "ledger", "session"),
		ledger:      opened,
	}
}

func registerFakeActions(server *service.SocketServer, opened *ledger.Ledger) {
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return statusResponse{UptimeSeconds: 90, Version: "test", TransferCeiling: opened.Engine.Ceiling()}, nil
	})
	server.Handle("login", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Email    string `cbor:"email"`
			Password []byte `cbor:"password"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		session, err := opened.Directory.Login(ctx, request.Email, request.Password)
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, &localError{kind: service.KindUnauthenticated, message: "invalid credentials"}
		}
		if err != nil {
			return nil, err
		}
		return loginResponse{Token: session.Token, Subject: session.Subject, ExpiresAt: session.ExpiresAt}, nil
	})
	server.HandleAuth("logout", func(ctx context.Context, subject string, raw []byte) (any, error) {
		var request struct {
			Token []byte `cbor:"token"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return nil, opened.Directory.Logout(ctx, request.Token)
	})
	server.HandleAuth("balance", func(ctx context.Context, subject string, raw []byte) (any, error) {
		var request struct {
			Account string `cbor:"account"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		balance, err := opened.Engine.Balance(ctx, request.Account, subject)
		if err != nil {
			return nil, err
		}
		return balanceResponse{Account: request.Account, Balance: balance}, nil
	})
	server.HandleAuth("accounts", func(ctx context.Context, subject string, raw []byte) (any, error) {
		accounts, err := opened.Engine.Accounts(ctx, subject)
		if err != nil {
			return nil, err
		}
		return accountsResponse{Owner: subject, Accounts: accounts}, nil
	})
	server.HandleAuth("transfer", func(ctx context.Context, subject string, raw []byte) (any, error) {
		var request struct {
			Source      string `cbor:"source"`
			Target      string `cbor:"target"`
			TargetOwner string `cbor:"target_owner"`
			Amount      string `cbor:"amount"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return opened.Engine.Transfer(ctx, transfer.Request{
			SourceAccount: request.Source,
			SourceOwner:   subject,
			TargetAccount: request.Target,
			TargetOwner:   request.TargetOwner,
			Amount:        request.Amount,
		})
	})
}

// run executes one CLI invocation and returns what it printed.
func (h *cliHarness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runIn(t, h.root, args...)
}

// runIn executes one CLI invocation with its session file under root.
func runIn(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cliApp := &app{
		stdout: &stdout,
		stderr: &stderr,
		getenv: func(name string) string {
			if name == "XDG_CONFIG_HOME" {
				return filepath.Join(root, "config")
			}
			return ""
		},
		homeDir: func() (string, error) {
			return "", errors.New("no home directory in tests")
		},
		bcryptCost: bcrypt.MinCost,
	}
	err := cliApp.root().Execute(context.Background(), args)
	return stdout.String(), stderr.String(), err
}

// login logs email in with the fixture password through a password
// file.
func (h *cliHarness) login(t *testing.T, email string) {
	t.Helper()
	passwordPath := filepath.Join(h.root, "password")
	if err := os.WriteFile(passwordPath, []byte("123456\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := h.run(t, "login", "--email", email, "--password-file", passwordPath); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error with exit code %d, got nil", want)
	}
	if got := exitCode(err); got != want {
		t.Errorf("exit code = %d, want %d (error: %v)", got, want, err)
	}
}
