// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessiontoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/ledger/lib/codec"
)

const signatureSize = ed25519.SignatureSize

// Token is the signed payload.
type Token struct {
	// Subject is the owner identity (an email address).
	Subject string `cbor:"1,keyasint"`

	// Audience names the service the token is for.
	Audience string `cbor:"2,keyasint"`

	// ID identifies this token for revocation.
	ID string `cbor:"3,keyasint"`

	// IssuedAt and ExpiresAt are Unix seconds.
	IssuedAt  int64 `cbor:"4,keyasint"`
	ExpiresAt int64 `cbor:"5,keyasint"`
}

// Expiry returns ExpiresAt as a time.
func (t *Token) Expiry() time.Time { return time.Unix(t.ExpiresAt, 0) }

var (
	ErrTokenTooShort    = errors.New("sessiontoken: token too short for signature")
	ErrInvalidSignature = errors.New("sessiontoken: invalid signature")
	ErrTokenExpired     = errors.New("sessiontoken: token has expired")
	ErrAudienceMismatch = errors.New("sessiontoken: audience does not match")
)

// NewID returns a random 128-bit token identifier in hex.
func NewID() (string, error) {
	var buffer [16]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return "", fmt.Errorf("sessiontoken: generating token id: %w", err)
	}
	return hex.EncodeToString(buffer[:]), nil
}

// Mint signs token and returns payload || signature.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	if token.Subject == "" {
		return nil, fmt.Errorf("sessiontoken: Subject is required")
	}
	if token.ExpiresAt <= token.IssuedAt {
		return nil, fmt.Errorf("sessiontoken: ExpiresAt must be after IssuedAt")
	}
	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: encoding payload: %w", err)
	}
	signed := make([]byte, 0, len(payload)+signatureSize)
	signed = append(signed, payload...)
	return append(signed, ed25519.Sign(privateKey, payload)...), nil
}

// VerifyAt checks the signature and that the token has not expired at
// now, and returns the decoded claims.
func VerifyAt(publicKey ed25519.PublicKey, raw []byte, now time.Time) (*Token, error) {
	if len(raw) <= signatureSize {
		return nil, ErrTokenTooShort
	}
	split := len(raw) - signatureSize
	payload, signature := raw[:split], raw[split:]

	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("sessiontoken: decoding payload: %w", err)
	}
	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &token, nil
}

// VerifyAudienceAt is VerifyAt plus a check that the token was minted
// for audience.
func VerifyAudienceAt(publicKey ed25519.PublicKey, raw []byte, audience string, now time.Time) (*Token, error) {
	token, err := VerifyAt(publicKey, raw, now)
	if err != nil {
		return nil, err
	}
	if token.Audience != audience {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrAudienceMismatch, token.Audience, audience)
	}
	return token, nil
}
