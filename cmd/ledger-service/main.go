// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ledger/lib/clock"
	"github.com/bureau-foundation/ledger/lib/config"
	"github.com/bureau-foundation/ledger/lib/ledger"
	"github.com/bureau-foundation/ledger/lib/process"
	"github.com/bureau-foundation/ledger/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)

	flags := pflag.NewFlagSet("ledger-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to ledger.yaml (default: $"+config.EnvVar+", then built-in defaults)")
	flags.StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("ledger-service %s\n", version.Info())
		return nil
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Environment, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	opened, err := ledger.Open(cfg, ledger.Options{Clock: clk, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := opened.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	ledgerService := newLedgerService(opened, clk, logger)
	server := ledgerService.newSocketServer(cfg.Paths.Socket)

	logger.Info("ledger service starting",
		"version", version.Info(),
		"environment", string(cfg.Environment),
		"socket", cfg.Paths.Socket,
		"database", cfg.Paths.Database,
		"transfer_ceiling", opened.Engine.Ceiling(),
	)
	err = ledgerService.serve(ctx, server)
	logger.Info("ledger service stopped")
	return err
}

// newLogger returns a JSON logger in staging and production and a text
// logger in development.
func newLogger(w io.Writer, environment config.Environment, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if environment == config.Development {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
