// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity turns credentials into a proven owner identity.
//
// A Directory keeps users (email, display name, bcrypt password hash)
// and revoked session ids in the ledger database. Login checks a
// password and mints a session token (lib/sessiontoken) whose subject
// is the user's email; that email is the owner string the account
// store scopes every read and write by. Authenticate reverses the
// process for each request: verify the signature, the expiry, the
// audience, and that the token was not logged out.
//
// Failed logins are indistinguishable: an unknown email still pays one
// bcrypt comparison, and both outcomes wait out the same LoginDelay.
package identity
