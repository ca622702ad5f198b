// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/accountstore"
	"github.com/bureau-foundation/ledger/lib/secret"
)

type balanceResponse struct {
	Account string `cbor:"account"`
	Balance int64  `cbor:"balance"`
}

type accountsResponse struct {
	Owner    string                 `cbor:"owner"`
	Accounts []accountstore.Account `cbor:"accounts"`
}

func (a *app) balanceCommand() *cli.Command {
	var units bool

	return &cli.Command{
		Name:    "balance",
		Summary: "Show the balance of one of your accounts",
		Description: `Show the balance of one of your accounts.

Accounts owned by someone else are reported as not found.`,
		Usage: "ledger balance <account> [--units]",
		Examples: []cli.Example{
			{Description: "Balance in minor units", Command: "ledger balance 100"},
			{Description: "Balance in major units", Command: "ledger balance 100 --units"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("balance")
			flagSet.BoolVar(&units, "units", false, "show amounts in major units at the configured display scale")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Usage("expected exactly one account, got %d arguments", len(args))
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			client, stored, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer secret.Zero(stored.Token)

			var response balanceResponse
			if err := client.Call(ctx, "balance", map[string]any{"account": args[0]}, &response); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s\t%s\n", response.Account, formatAmount(response.Balance, cfg.Display.Scale, units))
			return nil
		},
	}
}

func (a *app) accountsCommand() *cli.Command {
	var units bool

	return &cli.Command{
		Name:    "accounts",
		Summary: "List your accounts",
		Usage:   "ledger accounts [--units]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("accounts")
			flagSet.BoolVar(&units, "units", false, "show amounts in major units at the configured display scale")
			return flagSet
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
			if err != nil {
				return err
			}
			defer secret.Zero(stored.Token)

			var response accountsResponse
			if err := client.Call(ctx, "accounts", nil, &response); err != nil {
				return err
			}
			if len(response.Accounts) == 0 {
				fmt.Fprintf(a.stdout, "%s has no accounts\n", response.Owner)
				return nil
			}

			writer := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
			fmt.Fprintln(writer, "ACCOUNT\tBALANCE\t")
			for _, account := range response.Accounts {
				fmt.Fprintf(writer, "%s\t%s\t\n", account.ID, formatAmount(account.Balance, cfg.Display.Scale, units))
			}
			return writer.Flush()
		},
	}
}
