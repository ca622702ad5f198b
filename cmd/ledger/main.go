// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/ledger/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newApp(os.Stdin, os.Stdout, os.Stderr).root().Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		process.FatalCode(os.Stderr, exitCode(err), err)
	}
}
