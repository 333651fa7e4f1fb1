package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ruteri/arch-demo-provisioner/envfile"
	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// DeploymentInfo identifies the provisioned deployment a frontend talks to.
type DeploymentInfo struct {
	ProgramPubkey     interfaces.Pubkey `json:"program_pubkey"`
	WallAccountPubkey interfaces.Pubkey `json:"wall_account_pubkey"`
	Network           string            `json:"network"`
	RPCURL            string            `json:"rpc_url"`
}

// Handler serves the demo frontend tree and the read-only deployment API.
type Handler struct {
	frontendDir string
	info        DeploymentInfo
	log         *slog.Logger
}

// NewHandler reads the deployment info out of the demo's frontend env file
// and prepares the frontend directory for serving. It fails when the demo
// has not been provisioned yet.
func NewHandler(demoDir string, log *slog.Logger) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}

	frontendDir := filepath.Join(demoDir, "app", "frontend")
	envPath := filepath.Join(frontendDir, ".env")

	env, err := envfile.Load(envPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no provisioned demo at %s, run archdemo setup first", demoDir)
	}
	if err != nil {
		return nil, err
	}

	info, err := deploymentInfoFromEnv(env)
	if err != nil {
		return nil, fmt.Errorf("%s is incomplete (%w), run archdemo setup first", envPath, err)
	}

	return &Handler{
		frontendDir: frontendDir,
		info:        info,
		log:         log,
	}, nil
}

func deploymentInfoFromEnv(env *envfile.File) (DeploymentInfo, error) {
	var info DeploymentInfo

	programHex, _ := env.Get(envfile.KeyProgramPubkey)
	if programHex == "" {
		return info, errors.New("no program pubkey recorded")
	}
	program, err := interfaces.PubkeyFromHex(programHex)
	if err != nil {
		return info, fmt.Errorf("malformed program pubkey: %w", err)
	}

	wallHex, _ := env.Get(envfile.KeyWallAccountPubkey)
	if wallHex == "" {
		return info, errors.New("no wall account pubkey recorded")
	}
	wall, err := interfaces.PubkeyFromHex(wallHex)
	if err != nil {
		return info, fmt.Errorf("malformed wall account pubkey: %w", err)
	}

	info.ProgramPubkey = program
	info.WallAccountPubkey = wall
	info.Network, _ = env.Get(envfile.KeyNetwork)
	info.RPCURL, _ = env.Get(envfile.KeyRPCURL)
	return info, nil
}

// Info returns the deployment info served by the API.
func (h *Handler) Info() DeploymentInfo {
	return h.info
}

// HandleDeploymentInfo returns the deployment identifiers as JSON.
//
// URL format: GET /api/v1/deployment
func (h *Handler) HandleDeploymentInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.info); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HandleFrontend serves the static frontend tree. Paths that do not match a
// file fall back to index.html so client-side routes keep working.
func (h *Handler) HandleFrontend(w http.ResponseWriter, r *http.Request) {
	// A rooted Clean cannot escape the frontend directory.
	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	target := filepath.Join(h.frontendDir, filepath.FromSlash(rel))

	if info, err := os.Stat(target); err != nil || info.IsDir() {
		target = filepath.Join(h.frontendDir, "index.html")
	}
	http.ServeFile(w, r, target)
}
