// Package auth provides authentication utilities for the shared ingest
// secret.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretLen is the byte length of a generated ingest secret (32 bytes,
// 64 hex characters).
const SecretLen = 32

// GeneratedSecret contains the two forms of a newly generated ingest
// secret.
type GeneratedSecret struct {
	Plaintext string // full secret (show once only)
	Hash      string // argon2id hash for storage in Settings.APIKeyHash
}

// GenerateSecret creates a new random shared ingest secret. Pulse has no
// per-key prefix or scoping: one secret authenticates every producer.
func GenerateSecret() (*GeneratedSecret, error) {
	raw := make([]byte, SecretLen)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	plaintext := hex.EncodeToString(raw)

	hash, err := HashPassword(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	return &GeneratedSecret{Plaintext: plaintext, Hash: hash}, nil
}
