package deployer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadProgramBinaryAtRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.so"), []byte("root-elf"), 0644))

	elf, path, err := ReadProgramBinary(dir)
	require.NoError(t, err)
	assert.Equal(t, []byte("root-elf"), elf)
	assert.Equal(t, filepath.Join(dir, "program.so"), path)
}

func TestReadProgramBinaryInCargoTarget(t *testing.T) {
	dir := t.TempDir()
	deployDir := filepath.Join(dir, "target", "deploy")
	require.NoError(t, os.MkdirAll(deployDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(deployDir, "program.so"), []byte("target-elf"), 0644))

	elf, path, err := ReadProgramBinary(dir)
	require.NoError(t, err)
	assert.Equal(t, []byte("target-elf"), elf)
	assert.Equal(t, filepath.Join(deployDir, "program.so"), path)
}

func TestReadProgramBinaryPrefersRoot(t *testing.T) {
	dir := t.TempDir()
	deployDir := filepath.Join(dir, "target", "deploy")
	require.NoError(t, os.MkdirAll(deployDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.so"), []byte("root-elf"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(deployDir, "program.so"), []byte("target-elf"), 0644))

	elf, _, err := ReadProgramBinary(dir)
	require.NoError(t, err)
	assert.Equal(t, []byte("root-elf"), elf)
}

func TestReadProgramBinaryMissing(t *testing.T) {
	_, _, err := ReadProgramBinary(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build the program first")
}
