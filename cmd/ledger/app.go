// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/config"
	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/version"
)

// app holds the process-level state every command shares. Commands
// write through stdout and stderr, never os.Stdout directly.
type app struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer

	// getenv and homeDir locate the session file.
	getenv  func(string) string
	homeDir func() (string, error)

	// configPath is bound to every command's --config flag.
	configPath string

	// bcryptCost is passed to ledger.Open by seed; zero keeps the
	// default. Tests lower it.
	bcryptCost int
}

func newApp(stdin *os.File, stdout, stderr io.Writer) *app {
	return &app{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		getenv:  os.Getenv,
		homeDir: os.UserHomeDir,
	}
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:    "ledger",
		Summary: "Move money between ledger accounts",
		Description: `Move money between ledger accounts.

The ledger service owns the database; this CLI talks to it over its
Unix socket. Log in once with "ledger login" and the session token is
kept in ~/.config/ledger/session until it expires or you log out.
"ledger seed" is the exception: it opens the database directly.`,
		HelpOutput: a.stdout,
		Subcommands: []*cli.Command{
			a.seedCommand(),
			a.loginCommand(),
			a.logoutCommand(),
			a.balanceCommand(),
			a.accountsCommand(),
			a.transferCommand(),
			a.statusCommand(),
			a.versionCommand(),
		},
	}
}

// flagSet returns a flag set carrying the flags every command accepts.
func (a *app) flagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&a.configPath, "config", "", "path to ledger.yaml (default: $"+config.EnvVar+", then built-in defaults)")
	return flagSet
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// client loads the saved session and returns a client carrying its
// token.
func (a *app) client(cfg *config.Config) (*service.ServiceClient, *storedSession, error) {
	stored, err := a.loadSession()
	if err != nil {
		return nil, nil, err
	}
	return service.NewServiceClient(cfg.Paths.Socket, stored.Token), stored, nil
}

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print the CLI version",
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}
			fmt.Fprintf(a.stdout, "ledger %s\n", version.Full())
			return nil
		},
	}
}
