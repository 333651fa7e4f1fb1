package templates

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// IPFSSource fetches per-template archives <cid>/<name>.tar.gz from an IPFS
// node and serves the extracted trees.
type IPFSSource struct {
	shell       *shell.Shell
	cid         string
	log         *slog.Logger
	locationURI string

	mu        sync.Mutex
	extracted map[string]string
}

// NewIPFSSource creates a template source reading from the given CID through
// the IPFS API at apiAddr (host:port).
func NewIPFSSource(cid, apiAddr string, log *slog.Logger) *IPFSSource {
	return &IPFSSource{
		shell:       shell.NewShell(apiAddr),
		cid:         cid,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s?gateway=%s", cid, apiAddr),
		extracted:   make(map[string]string),
	}
}

// Template fetches and extracts <cid>/<name>.tar.gz.
// Returns ErrTemplateNotFound when the CID carries no such archive, or
// ErrStoreUnavailable when the IPFS node is not accessible.
func (s *IPFSSource) Template(ctx context.Context, name string) (fs.FS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir, ok := s.extracted[name]; ok {
		return os.DirFS(dir), nil
	}

	if !s.shell.IsUp() {
		return nil, fmt.Errorf("%w: IPFS node not reachable", interfaces.ErrStoreUnavailable)
	}

	ipfsPath := fmt.Sprintf("/ipfs/%s/%s.tar.gz", s.cid, name)
	reader, err := s.shell.Cat(ipfsPath)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to fetch template from IPFS: %w", err)
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "archdemo-template-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	if err := extractTarGz(reader, dir, false); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to extract template %s: %w", name, err)
	}

	s.log.Debug("Extracted template from IPFS",
		slog.String("path", ipfsPath),
		slog.String("dir", dir))

	s.extracted[name] = dir
	return os.DirFS(dir), nil
}

// Name returns a unique identifier for this template source.
func (s *IPFSSource) Name() string {
	return fmt.Sprintf("ipfs-%s", s.cid)
}

// LocationURI returns the URI that identifies this template source.
func (s *IPFSSource) LocationURI() string {
	return s.locationURI
}

// Close removes the extracted archives.
func (s *IPFSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, dir := range s.extracted {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		delete(s.extracted, name)
	}
	return firstErr
}
