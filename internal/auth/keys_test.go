package auth

import (
	"os"
	"path/filepath"
	"testing"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateKey_PersistsKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, keyFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first.ExportHex(), second.ExportHex())
}

func TestLoadOrGenerateKey_RejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, keyFileName), []byte("deadbeef"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	assert.ErrorContains(t, err, "invalid session key length")
}

func TestParseSigningKey(t *testing.T) {
	key := paseto.NewV4AsymmetricSecretKey()

	parsed, err := ParseSigningKey("  " + key.ExportHex() + "\n")
	require.NoError(t, err)
	assert.Equal(t, key.Public().ExportHex(), parsed.Public().ExportHex())

	_, err = ParseSigningKey("zz")
	assert.Error(t, err)
}
