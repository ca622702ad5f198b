// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/secret"
	"github.com/bureau-foundation/ledger/lib/service"
)

type loginResponse struct {
	Token     []byte    `cbor:"token"`
	Subject   string    `cbor:"subject"`
	ExpiresAt time.Time `cbor:"expires_at"`
}

func (a *app) loginCommand() *cli.Command {
	var (
		email        string
		passwordFile string
	)

	return &cli.Command{
		Name:    "login",
		Summary: "Log in and save a session",
		Description: `Log in with an email address and password.

The password is read from the terminal without echo, or from
--password-file ("-" reads one line from stdin). The session token is
saved with owner-only permissions and used by every other command
until it expires.`,
		Usage: "ledger login --email <address> [--password-file <path>]",
		Examples: []cli.Example{
			{Description: "Log in interactively", Command: "ledger login --email alice@example.com"},
			{Description: "Log in from a script", Command: "ledger login --email alice@example.com --password-file - < password.txt"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("login")
			flagSet.StringVar(&email, "email", "", "account email address (required)")
			flagSet.StringVar(&passwordFile, "password-file", "", `read the password from a file ("-" for stdin) instead of the terminal`)
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}
			if email == "" {
				return cli.Usage("--email is required")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			password, err := a.readPassword(passwordFile)
			if err != nil {
				return err
			}
			defer password.Close()

			var response loginResponse
			err = service.NewServiceClient(cfg.Paths.Socket, nil).Call(ctx, "login", map[string]any{
				"email":    email,
				"password": password.Bytes(),
			}, &response)
			if err != nil {
				return err
			}
			defer secret.Zero(response.Token)

			path, err := a.saveSession(&storedSession{
				Subject:   response.Subject,
				Token:     response.Token,
				ExpiresAt: response.ExpiresAt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "logged in as %s until %s\n", response.Subject, response.ExpiresAt.Local().Format(time.DateTime))
			fmt.Fprintf(a.stderr, "session saved to %s\n", path)
			return nil
		},
	}
}

func (a *app) readPassword(passwordFile string) (*secret.Buffer, error) {
	if passwordFile != "" {
		password, err := secret.ReadFromPath(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return password, nil
	}
	if a.stdin == nil {
		return nil, cli.Usage("no terminal for the password prompt; use --password-file")
	}
	password, err := secret.ReadTerminal(int(a.stdin.Fd()), "Password: ", a.stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w (use --password-file when not on a terminal)", err)
	}
	return password, nil
}

func (a *app) logoutCommand() *cli.Command {
	return &cli.Command{
		Name:    "logout",
		Summary: "Revoke the saved session",
		Description: `Revoke the saved session on the service and delete it locally.

The local session is deleted even when the service cannot be reached.
The token then stays valid until it expires.`,
		Usage: "ledger logout",
		Flags: func() *pflag.FlagSet {
			return a.flagSet("logout")
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			client, stored, err := a.client(cfg)
			if errors.Is(err, errNotLoggedIn) {
				fmt.Fprintln(a.stdout, "not logged in")
				return nil
			}
			if err != nil {
				return err
			}
			defer secret.Zero(stored.Token)

			callErr := client.Call(ctx, "logout", nil, nil)
			var serviceErr *service.ServiceError
			if errors.As(callErr, &serviceErr) && serviceErr.Kind == service.KindUnauthenticated {
				// Already expired or revoked.
				callErr = nil
			}
			if err := a.removeSession(); err != nil {
				return errors.Join(callErr, err)
			}
			if callErr != nil {
				return fmt.Errorf("session deleted locally but not revoked: %w", callErr)
			}
			fmt.Fprintf(a.stdout, "logged out %s\n", stored.Subject)
			return nil
		},
	}
}
