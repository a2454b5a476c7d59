// Package auth issues and verifies the tokens that authenticate API calls:
// PASETO v4.local access tokens, opaque refresh tokens backed by sessions in
// the key-value store, and argon2id password hashes.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const keyFileName = "auth.key"

// LoadOrGenerateKey returns the hex-encoded symmetric token key stored in
// dataPath/auth.key, creating the file with a fresh random key on first
// start.
func LoadOrGenerateKey(dataPath string) (string, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	//#nosec G304 -- path is derived from the configured data directory
	if raw, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexSize {
			return "", fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexSize, len(keyHex))
		}
		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("invalid auth key format: %w", err)
		}
		return keyHex, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save auth key: %w", err)
	}
	return keyHex, nil
}
