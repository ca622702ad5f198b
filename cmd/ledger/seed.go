// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/ledger"
)

func (a *app) seedCommand() *cli.Command {
	var fixturePath string

	return &cli.Command{
		Name:    "seed",
		Summary: "Create users and accounts from a fixture",
		Description: `Create users and accounts from a fixture.

The fixture is JSON with comments and trailing commas allowed. Without
--fixture the built-in demo users are created. Users and accounts that
already exist are skipped, so seeding twice is harmless.

seed opens the database directly and does not need the service.`,
		Usage: "ledger seed [--fixture <path>]",
		Examples: []cli.Example{
			{Description: "Create the demo users", Command: "ledger seed"},
			{Description: "Load a fixture file", Command: "ledger seed --fixture users.jsonc"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("seed")
			flagSet.StringVar(&fixturePath, "fixture", "", "path to a JSONC fixture (default: built-in demo users)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument: %s", args[0])
			}

			fixture := ledger.DefaultFixture()
			if fixturePath != "" {
				var err error
				if fixture, err = ledger.ReadFixture(fixturePath); err != nil {
					return err
				}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			opened, err := ledger.Open(cfg, ledger.Options{Logger: logger, BcryptCost: a.bcryptCost})
			if err != nil {
				return err
			}
			defer opened.Close()

			report, err := opened.Seed(ctx, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "users:    %d created, %d already present\n", report.UsersCreated, report.UsersSkipped)
			fmt.Fprintf(a.stdout, "accounts: %d created, %d already present\n", report.AccountsCreated, report.AccountsSkipped)
			return nil
		},
	}
}
