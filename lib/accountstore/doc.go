// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package accountstore is the durable account relation: account id to
// (owner, balance), stored in the ledger's SQLite database.
//
// Reads are owner-scoped. GetBalance and Accounts only return rows whose
// owner matches the caller-supplied identity, so a wrong owner is
// indistinguishable from a missing account.
//
// Balances change only through a Transaction's two write primitives.
// ConditionalDebit is a single UPDATE guarded by balance >= amount, so
// the sufficiency check and the debit cannot be separated by a
// concurrent writer. Credit adds to an existing row. Each Transaction
// holds one pooled connection inside BEGIN IMMEDIATE, which serializes
// writers on the database write lock rather than on any process-wide
// mutex; readers proceed in parallel under WAL.
//
// Accounts are created by seeding (CreateAccount) and never deleted.
package accountstore
