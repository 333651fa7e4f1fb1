package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archdemo")
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "regtest", cfg.Network())
	assert.Equal(t, "file://"+filepath.Join(dir, "keys.json"), cfg.KeystoreURI())
	assert.Equal(t, "builtin:", cfg.TemplateSourceURI())
	assert.Empty(t, cfg.ProjectDir())
	assert.Empty(t, cfg.LeaderRPCEndpoint())
	assert.Empty(t, cfg.SeedDomain())
}

func TestLoadReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `leader_rpc_endpoint = "http://node.example:9002/"
seed_domain = "seed.arch.network"
keystore = "vault://vault.example:8200/secret/archdemo"
template_source = "github://arch-network/demo-templates@v1"

[bitcoin]
network = "testnet"

[project]
directory = "/srv/archdemo"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testnet", cfg.Network())
	assert.Equal(t, "/srv/archdemo", cfg.ProjectDir())
	assert.Equal(t, "http://node.example:9002/", cfg.LeaderRPCEndpoint())
	assert.Equal(t, "seed.arch.network", cfg.SeedDomain())
	assert.Equal(t, "vault://vault.example:8200/secret/archdemo", cfg.KeystoreURI())
	assert.Equal(t, "github://arch-network/demo-templates@v1", cfg.TemplateSourceURI())
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[project]
directory = "/srv/archdemo"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/archdemo", cfg.ProjectDir())
	assert.Equal(t, "regtest", cfg.Network())
	assert.Equal(t, "builtin:", cfg.TemplateSourceURI())
}

func TestLoadNeverRewritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "# hand-edited\n[bitcoin]\nnetwork = \"testnet\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(after))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("network = [unclosed\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
