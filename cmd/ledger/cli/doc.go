// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework behind the ledger CLI.
//
// A [Command] tree is dispatched by the first positional argument.
// Each leaf parses its own pflag flags and runs. Help output is
// assembled from each command's Summary, Description, Usage, flags,
// and Examples. Mistyped commands and flags get a "did you mean"
// suggestion by edit distance.
//
// Errors that should set a specific process exit code are wrapped in
// [ExitError]; [Usage] builds one for command-line mistakes.
package cli
