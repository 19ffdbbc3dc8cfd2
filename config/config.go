// Package config binds the recognized configuration inputs: cipher
// choice, the NOAUTH flag, and the escrow server URL (settable via
// config file or environment). It only binds values; building a CLI
// around them is a separate concern.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/moneytech/rvault/crypto"
	"github.com/moneytech/rvault/vaulterrors"
)

// EnvPrefix namespaces every environment variable this package reads
// (e.g. RVAULT_SERVER_URL).
const EnvPrefix = "RVAULT"

// Options are the resolved, validated configuration inputs ready to
// pass into vault.Init/vault.Open.
type Options struct {
	Cipher    crypto.Cipher
	NoAuth    bool
	ServerURL string
}

// Load resolves configuration from defaults, an optional config file,
// and environment variables (RVAULT_CIPHER, RVAULT_NOAUTH,
// RVAULT_SERVER_URL), in viper's usual precedence order. configPath may
// be empty to skip file loading.
func Load(configPath string) (Options, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cipher", "chacha20-poly1305")
	v.SetDefault("noauth", false)
	v.SetDefault("server_url", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, vaulterrors.Wrap("config.Load", vaulterrors.IoError, err)
		}
	}

	cipherName := v.GetString("cipher")
	c, err := crypto.CipherByName(cipherName)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Cipher:    c,
		NoAuth:    v.GetBool("noauth"),
		ServerURL: v.GetString("server_url"),
	}, nil
}
