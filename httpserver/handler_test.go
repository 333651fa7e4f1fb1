package httpserver

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

func TestNewHandlerRequiresProvisionedDemo(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewHandler(t.TempDir(), logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archdemo setup")
}

func TestNewHandlerRejectsMissingProgramPubkey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wall := interfaces.NewUniquePubkey()

	demoDir := writeDemoTree(t, "", wall.String())
	_, err := NewHandler(demoDir, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program pubkey")
}

func TestNewHandlerRejectsMalformedPubkey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wall := interfaces.NewUniquePubkey()

	demoDir := writeDemoTree(t, "not-a-pubkey", wall.String())
	_, err := NewHandler(demoDir, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed program pubkey")
}

func TestHandlerInfoMatchesEnv(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	program := interfaces.NewUniquePubkey()
	wall := interfaces.NewUniquePubkey()

	handler, err := NewHandler(writeDemoTree(t, program.String(), wall.String()), logger)
	require.NoError(t, err)

	info := handler.Info()
	assert.True(t, program.Equal(info.ProgramPubkey))
	assert.True(t, wall.Equal(info.WallAccountPubkey))
	assert.Equal(t, "regtest", info.Network)
	assert.Equal(t, "http://localhost:9002/", info.RPCURL)
}

func TestNewHandlerToleratesMissingOptionalKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	program := interfaces.NewUniquePubkey()
	wall := interfaces.NewUniquePubkey()

	demoDir := t.TempDir()
	frontendDir := filepath.Join(demoDir, "app", "frontend")
	require.NoError(t, os.MkdirAll(frontendDir, 0755))
	env := "VITE_PROGRAM_PUBKEY=" + program.String() + "\n" +
		"VITE_WALL_ACCOUNT_PUBKEY=" + wall.String() + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(frontendDir, ".env"), []byte(env), 0644))

	handler, err := NewHandler(demoDir, logger)
	require.NoError(t, err)
	assert.Empty(t, handler.Info().Network)
	assert.Empty(t, handler.Info().RPCURL)
}
