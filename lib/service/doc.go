// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the ledger's Unix socket protocol.
//
// [SocketServer] accepts one CBOR request per connection, routes it by
// its "action" field, and writes one CBOR [Response]. Actions that
// need a caller identity are registered with HandleAuth: the server
// verifies the request's "token" field through an [Authenticator] and
// passes the handler the token's subject. The handler never sees a
// request whose token failed verification.
//
// Failures carry a machine-readable Kind alongside the error text.
// Any handler error implementing [KindError] contributes its kind;
// authentication failures use [KindUnauthenticated].
//
// [ServiceClient] is the matching client. It returns a *ServiceError
// with the server's Kind when a request fails.
//
// Services compose these pieces in their own main() function. The
// package provides building blocks, not a runtime.
package service
