package envfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readEnv(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSetOverwritesInPlace(t *testing.T) {
	path := writeEnv(t, "A=1\nB=2\nC=3\n")

	f, err := Load(path)
	require.NoError(t, err)
	f.Set("B", "two")
	require.NoError(t, f.Save())

	assert.Equal(t, "A=1\nB=two\nC=3\n", readEnv(t, path), "overwriting must keep the line position")
}

func TestSetAppendsMissingKey(t *testing.T) {
	path := writeEnv(t, "A=1\n")

	f, err := Load(path)
	require.NoError(t, err)
	f.Set("B", "2")
	require.NoError(t, f.Save())

	assert.Equal(t, "A=1\nB=2\n", readEnv(t, path))
}

func TestGet(t *testing.T) {
	path := writeEnv(t, "A=1\nEMPTY=\n# comment\n")

	f, err := Load(path)
	require.NoError(t, err)

	v, ok := f.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = f.Get("EMPTY")
	assert.True(t, ok, "an empty value is still a present key")
	assert.Equal(t, "", v)

	_, ok = f.Get("MISSING")
	assert.False(t, ok)
}

func TestConfigureScenario(t *testing.T) {
	path := writeEnv(t, "VITE_PROGRAM_PUBKEY=\nVITE_WALL_ACCOUNT_PUBKEY=\nVITE_NETWORK=\nVITE_RPC_URL=http://old:8080\n")

	program := interfaces.PubkeyFromBytes([]byte{0xab})
	wall := interfaces.PubkeyFromBytes([]byte{0xcd})
	require.NoError(t, Configure(path, "http://new:9090", program, wall, "regtest"))

	want := "VITE_PROGRAM_PUBKEY=" + program.String() + "\n" +
		"VITE_WALL_ACCOUNT_PUBKEY=" + wall.String() + "\n" +
		"VITE_NETWORK=regtest\n" +
		"VITE_RPC_URL=http://new:9090\n"
	assert.Equal(t, want, readEnv(t, path))
}

func TestConfigureIsIdempotent(t *testing.T) {
	path := writeEnv(t, "VITE_PROGRAM_PUBKEY=\nVITE_WALL_ACCOUNT_PUBKEY=\nVITE_NETWORK=\nVITE_RPC_URL=http://old:8080\n")

	program := interfaces.PubkeyFromBytes([]byte{0xab})
	wall := interfaces.PubkeyFromBytes([]byte{0xcd})
	require.NoError(t, Configure(path, "http://new:9090", program, wall, "regtest"))
	once := readEnv(t, path)

	require.NoError(t, Configure(path, "http://new:9090", program, wall, "regtest"))
	assert.Equal(t, once, readEnv(t, path), "a second configure must not change the file")
}

func TestConfigurePreservesUnknownLines(t *testing.T) {
	path := writeEnv(t, "# frontend settings\n\nSOME_OTHER=untouched\nVITE_PROGRAM_PUBKEY=\nVITE_NETWORK=\n")

	program := interfaces.PubkeyFromBytes([]byte{0xab})
	wall := interfaces.PubkeyFromBytes([]byte{0xcd})
	require.NoError(t, Configure(path, "", program, wall, "testnet"))

	want := "# frontend settings\n" +
		"\n" +
		"SOME_OTHER=untouched\n" +
		"VITE_PROGRAM_PUBKEY=" + program.String() + "\n" +
		"VITE_NETWORK=testnet\n" +
		"VITE_WALL_ACCOUNT_PUBKEY=" + wall.String() + "\n"
	assert.Equal(t, want, readEnv(t, path), "unrecognized lines pass through, missing keys append")
}

func TestConfigureLeavesRPCURLWithoutOverride(t *testing.T) {
	path := writeEnv(t, "VITE_PROGRAM_PUBKEY=\nVITE_WALL_ACCOUNT_PUBKEY=\nVITE_NETWORK=\nVITE_RPC_URL=http://old:8080\n")

	program := interfaces.PubkeyFromBytes([]byte{0xab})
	wall := interfaces.PubkeyFromBytes([]byte{0xcd})
	require.NoError(t, Configure(path, "", program, wall, "regtest"))

	f, err := Load(path)
	require.NoError(t, err)
	v, ok := f.Get(KeyRPCURL)
	require.True(t, ok)
	assert.Equal(t, "http://old:8080", v, "an empty rpc url must not clobber the existing endpoint")
}

func TestConfigureMissingFile(t *testing.T) {
	err := Configure(filepath.Join(t.TempDir(), ".env"), "", interfaces.Pubkey{}, interfaces.Pubkey{}, "regtest")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
