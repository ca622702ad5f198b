// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessiontoken mints and verifies the bearer tokens that prove
// an account owner's identity to the ledger service.
//
// A token is a CBOR-encoded Token followed by a 64-byte Ed25519
// signature over those bytes. Verification needs only the public key,
// so the service can check a token without any database round trip;
// revocation (logout) is layered on top by lib/identity.
//
// The signing keypair lives in the service's state directory and is
// loaded at start. LoadOrGenerateKeypair creates it on first start
// only; regenerating it would invalidate every outstanding session.
package sessiontoken
