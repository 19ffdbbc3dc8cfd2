package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/moneytech/rvault/crypto"
)

func TestLoadDefaults(t *testing.T) {
	opts, err := Load("")
	require.NoError(t, err)
	require.Equal(t, crypto.ChaCha20Poly1305, opts.Cipher)
	require.False(t, opts.NoAuth)
	require.Equal(t, "", opts.ServerURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RVAULT_CIPHER", "aes256-gcm")
	t.Setenv("RVAULT_NOAUTH", "true")
	t.Setenv("RVAULT_SERVER_URL", "https://escrow.example.invalid")

	opts, err := Load("")
	require.NoError(t, err)
	require.Equal(t, crypto.AES256GCM, opts.Cipher)
	require.True(t, opts.NoAuth)
	require.Equal(t, "https://escrow.example.invalid", opts.ServerURL)
}

func TestLoadUnsupportedCipher(t *testing.T) {
	t.Setenv("RVAULT_CIPHER", "rot13")
	_, err := Load("")
	require.Error(t, err)
}
