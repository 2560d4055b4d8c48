// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package keys derives purpose-bound cookie keys from the server secret.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Size is the length of every derived key (HMAC-SHA256 and AES-256).
const Size = 32

// Derive returns a Size-byte key for purpose, expanded from secret with
// HKDF-SHA256. An empty secret yields random bytes, so cookies signed with
// the key do not survive a restart.
func Derive(secret, purpose string) ([]byte, error) {
	key := make([]byte, Size)

	if secret == "" {
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate %s key: %w", purpose, err)
		}
		return key, nil
	}

	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
