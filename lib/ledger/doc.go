// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger assembles the ledger from its parts. [Open] turns a
// [config.Config] into a connection pool carrying both the account
// and identity schemas, a transfer engine, and an identity directory
// signing with the persisted keypair. Both the service and the CLI's
// seed command start here.
//
// [Fixture] describes users and opening balances in JSON with
// comments; [Ledger.Seed] loads one.
package ledger
