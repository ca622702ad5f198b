// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the ledger's single CBOR configuration.
//
// CBOR carries two internal formats: the session token payload minted
// by lib/sessiontoken and the request/response envelopes on the service
// socket. JSON is reserved for operator-facing output and fixtures.
// Encoding is Core Deterministic (RFC 8949 §4.2), so a token payload
// always signs over the same bytes for the same claims.
//
// Types that only ever travel as CBOR use `cbor` struct tags. Types the
// CLI also prints as JSON use `json` tags; fxamacker/cbor falls back to
// them when no `cbor` tag is present.
package codec
