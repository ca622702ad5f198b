// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ledger-service hosts the transfer engine behind a Unix socket.
//
// The service opens the SQLite database named by the configuration,
// applies the account and identity schemas, and loads the session
// signing keypair from the state directory, generating it only on the
// first start. Tokens issued before a restart therefore remain valid
// after it.
//
// # Socket API
//
// Each connection carries one CBOR request and one CBOR response
// (see lib/service). Actions:
//
//   - status: uptime, version, and transfer ceiling. No token needed.
//   - login {email, password}: returns a session token. Every attempt
//     takes at least session.login_delay, and an unknown email is
//     indistinguishable from a wrong password.
//   - logout: revokes the presented token until it expires.
//   - balance {account}: the balance of an account the caller owns.
//   - accounts: the caller's accounts.
//   - transfer {source, target, target_owner, amount}: moves amount
//     from the caller's source account to target, which must belong
//     to target_owner.
//
// Failures carry a kind: one of the transfer kinds (validation,
// not_found, insufficient_funds, policy_violation, transient,
// consistency_fault) or unauthenticated.
//
// # Housekeeping
//
// A janitor prunes revocations of tokens that have since expired.
package main
