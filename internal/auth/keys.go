// Package auth issues and verifies session tokens and verifies Google ID tokens.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aidanwoods.dev/go-paseto"
)

const (
	keyFileName = "session.key"
	// Ed25519 private keys are 64 bytes (seed + public key), 128 hex characters.
	keyHexLength = 128
)

// ParseSigningKey decodes a hex encoded Ed25519 private key.
func ParseSigningKey(keyHex string) (paseto.V4AsymmetricSecretKey, error) {
	keyHex = strings.TrimSpace(keyHex)
	if len(keyHex) != keyHexLength {
		return paseto.V4AsymmetricSecretKey{}, fmt.Errorf("invalid session key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
	}

	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(keyHex)
	if err != nil {
		return paseto.V4AsymmetricSecretKey{}, fmt.Errorf("invalid session key: %w", err)
	}
	return key, nil
}

// LoadOrGenerateKey loads or generates the Ed25519 key used to sign session tokens.
// The key is stored in <dataPath>/session.key as a hex-encoded string.
// If the file doesn't exist, a new key is generated and saved.
func LoadOrGenerateKey(dataPath string) (paseto.V4AsymmetricSecretKey, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	//#nosec G304 -- Key path is derived from the configured data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		return ParseSigningKey(string(keyBytes))
	}

	key := paseto.NewV4AsymmetricSecretKey()

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return paseto.V4AsymmetricSecretKey{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.WriteFile(keyPath, []byte(key.ExportHex()), 0o600); err != nil {
		return paseto.V4AsymmetricSecretKey{}, fmt.Errorf("failed to save session key: %w", err)
	}

	return key, nil
}
