// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/secret"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

func (a *app) transferCommand() *cli.Command {
	var (
		targetOwner string
		units       bool
	)

	return &cli.Command{
		Name:    "transfer",
		Summary: "Move money from one of your accounts to another account",
		Description: `Move money from one of your accounts to another account.

The source account must be yours. The target account must belong to
the user named by --to-owner; a mismatch is reported as not found, the
same as an account that does not exist. The amount is a positive whole
number of minor units, or a decimal in major units with --units, and
may not exceed the service's transfer ceiling.

Exit codes: 2 validation, 3 not found, 4 insufficient funds, 5 policy
violation, 6 temporarily unavailable (safe to retry), 7 consistency
fault, 8 not logged in.`,
		Usage: "ledger transfer <source> <target> <amount> --to-owner <email> [--units]",
		Examples: []cli.Example{
			{
				Description: "Send 500 minor units from account 100 to Bob's account 998",
				Command:     "ledger transfer 100 998 500 --to-owner bob@example.com",
			},
			{
				Description: "The same transfer in major units",
				Command:     "ledger transfer 100 998 5.00 --to-owner bob@example.com --units",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("transfer")
			flagSet.StringVar(&targetOwner, "to-owner", "", "email of the target account's owner (required)")
			flagSet.BoolVar(&units, "units", false, "amount is in major units at the configured display scale")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) != 3 {
				return cli.Usage("expected <source> <target> <amount>, got %d arguments", len(args))
			}
			if targetOwner == "" {
				return cli.Usage("--to-owner is required")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			amount := args[2]
			if units {
				if amount, err = minorUnits(amount, cfg.Display.Scale); err != nil {
					return err
				}
			}

			client, stored, err := a.client(cfg)
			if err != nil {
				return err
			}
			defer secret.Zero(stored.Token)

			var result transfer.Result
			err = client.Call(ctx, "transfer", map[string]any{
				"source":       args[0],
				"target":       args[1],
				"target_owner": targetOwner,
				"amount":       amount,
			}, &result)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "transferred %s from %s to %s\n",
				formatAmount(result.Amount, cfg.Display.Scale, units), result.Source, result.Target)
			fmt.Fprintf(a.stderr, "transfer id %s\n", result.ID)
			return nil
		},
	}
}
