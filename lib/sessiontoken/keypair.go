// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessiontoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	privateKeyFile = "session-signing-key"
	publicKeyFile  = "session-signing-key.pub"
)

// GenerateKeypair creates a new Ed25519 signing keypair.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("sessiontoken: generating keypair: %w", err)
	}
	return public, private, nil
}

// SaveKeypair writes the keypair into stateDir: the private key with
// mode 0600, the public key with 0644. The private key is written to a
// temporary file and renamed, so a crash never leaves a truncated key.
func SaveKeypair(stateDir string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := writeAtomic(filepath.Join(stateDir, privateKeyFile), private, 0600); err != nil {
		return fmt.Errorf("sessiontoken: writing private key: %w", err)
	}
	if err := writeAtomic(filepath.Join(stateDir, publicKeyFile), public, 0644); err != nil {
		return fmt.Errorf("sessiontoken: writing public key: %w", err)
	}
	return nil
}

// LoadKeypair reads the keypair from stateDir and checks that the two
// halves belong together.
func LoadKeypair(stateDir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privateBytes, err := os.ReadFile(filepath.Join(stateDir, privateKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("sessiontoken: reading private key: %w", err)
	}
	if len(privateBytes) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("sessiontoken: private key has %d bytes, want %d", len(privateBytes), ed25519.PrivateKeySize)
	}

	publicBytes, err := os.ReadFile(filepath.Join(stateDir, publicKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("sessiontoken: reading public key: %w", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("sessiontoken: public key has %d bytes, want %d", len(publicBytes), ed25519.PublicKeySize)
	}

	private := ed25519.PrivateKey(privateBytes)
	public := ed25519.PublicKey(publicBytes)
	if !public.Equal(private.Public()) {
		return nil, nil, fmt.Errorf("sessiontoken: public key in %s does not match the private key", stateDir)
	}
	return public, private, nil
}

// LoadOrGenerateKeypair loads the keypair from stateDir, generating and
// saving one only when no private key file exists. A present but
// unreadable key is an error, never a reason to regenerate. The boolean
// reports whether a new keypair was created.
func LoadOrGenerateKeypair(stateDir string) (ed25519.PublicKey, ed25519.PrivateKey, bool, error) {
	public, private, err := LoadKeypair(stateDir)
	if err == nil {
		return public, private, false, nil
	}
	if _, statErr := os.Stat(filepath.Join(stateDir, privateKeyFile)); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, nil, false, err
	}

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, false, fmt.Errorf("sessiontoken: creating %s: %w", stateDir, err)
	}
	public, private, err = GenerateKeypair()
	if err != nil {
		return nil, nil, false, err
	}
	if err := SaveKeypair(stateDir, public, private); err != nil {
		return nil, nil, false, err
	}
	return public, private, true, nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, data, mode); err != nil {
		return err
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return err
	}
	return nil
}
