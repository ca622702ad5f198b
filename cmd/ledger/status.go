// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/service"
)

type statusResponse struct {
	UptimeSeconds   float64 `cbor:"uptime_seconds"`
	Version         string  `cbor:"version"`
	TransferCeiling int64   `cbor:"transfer_ceiling"`
}

func (a *app) statusCommand() *cli.Command {
	var units bool

	return &cli.Command{
		Name:    "status",
		Summary: "Check that the service is running",
		Usage:   "ledger status [--units]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.flagSet("status")
			flagSet.BoolVar(&units, "units", false, "show the ceiling in major units at the configured display scale")
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

			var status statusResponse
			if err := service.NewServiceClient(cfg.Paths.Socket, nil).Call(ctx, "status", nil, &status); err != nil {
				return err
			}
			uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
			fmt.Fprintf(a.stdout, "socket:   %s\n", cfg.Paths.Socket)
			fmt.Fprintf(a.stdout, "version:  %s\n", status.Version)
			fmt.Fprintf(a.stdout, "uptime:   %s\n", uptime)
			fmt.Fprintf(a.stdout, "ceiling:  %s\n", formatAmount(status.TransferCeiling, cfg.Display.Scale, units))
			return nil
		},
	}
}
