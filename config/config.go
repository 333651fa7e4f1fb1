// Package config loads the archdemo configuration file. The file is TOML,
// lives under the user config directory by default and is created with
// defaults on first run so there is always an editable file to point at.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyNetwork        = "bitcoin.network"
	KeyProjectDir     = "project.directory"
	KeyLeaderRPC      = "leader_rpc_endpoint"
	KeySeedDomain     = "seed_domain"
	KeyKeystore       = "keystore"
	KeyTemplateSource = "template_source"
)

// Config wraps the viper instance bound to one archdemo config file.
type Config struct {
	v    *viper.Viper
	path string
}

// Dir returns the archdemo configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "archdemo"), nil
}

// Load reads the config file at path, or <config dir>/config.toml when path
// is empty. A missing file is written out with the defaults first, an
// existing file is never touched.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}

	configDir := filepath.Dir(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault(KeyNetwork, "regtest")
	v.SetDefault(KeyKeystore, "file://"+filepath.Join(configDir, "keys.json"))
	v.SetDefault(KeyTemplateSource, "builtin:")

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		err = v.ReadInConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v, path: path}, nil
}

// Path returns the location of the loaded config file.
func (c *Config) Path() string {
	return c.path
}

// Network returns the bitcoin network the demo targets.
func (c *Config) Network() string {
	return c.v.GetString(KeyNetwork)
}

// ProjectDir returns the base directory the demo is provisioned under.
// Empty when not configured.
func (c *Config) ProjectDir() string {
	return c.v.GetString(KeyProjectDir)
}

// LeaderRPCEndpoint returns the configured RPC endpoint, empty when unset.
func (c *Config) LeaderRPCEndpoint() string {
	return c.v.GetString(KeyLeaderRPC)
}

// SeedDomain returns the domain queried for RPC endpoint discovery, empty
// when unset.
func (c *Config) SeedDomain() string {
	return c.v.GetString(KeySeedDomain)
}

// KeystoreURI returns the location URI of the key store.
func (c *Config) KeystoreURI() string {
	return c.v.GetString(KeyKeystore)
}

// TemplateSourceURI returns the location URI templates are fetched from.
func (c *Config) TemplateSourceURI() string {
	return c.v.GetString(KeyTemplateSource)
}
