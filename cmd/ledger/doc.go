// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ledger is the command-line client for the ledger service.
//
// Commands:
//
//	seed       create users and accounts from a fixture (opens the database directly)
//	login      log in and save the session token
//	logout     revoke the saved session
//	balance    show one account's balance
//	accounts   list the caller's accounts
//	transfer   move money between accounts
//	status     check that the service is running
//	version    print the CLI version
//
// Every command accepts --config; the socket and database locations
// come from the configuration. The exit code of a failed command
// identifies the kind of failure, so scripts can tell an insufficient
// balance (4) from a retryable outage (6).
package main
