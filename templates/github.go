package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubSource serves templates out of a repository tarball fetched through
// the GitHub API. The tarball is downloaded once, extracted to a temporary
// directory, and each template maps to a top-level directory of the
// repository.
type GitHubSource struct {
	owner       string
	repo        string
	ref         string
	apiBase     string
	client      *http.Client
	log         *slog.Logger
	locationURI string

	mu      sync.Mutex
	rootDir string
}

// NewGitHubSource creates a template source for github://owner/repo@ref.
func NewGitHubSource(owner, repo, ref string, log *slog.Logger) *GitHubSource {
	return &GitHubSource{
		owner:       owner,
		repo:        repo,
		ref:         ref,
		apiBase:     defaultGitHubAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: fmt.Sprintf("github://%s/%s@%s", owner, repo, ref),
	}
}

// Template returns the repository directory named name.
// Returns ErrTemplateNotFound when the repository has no such directory.
func (s *GitHubSource) Template(ctx context.Context, name string) (fs.FS, error) {
	root, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", interfaces.ErrTemplateNotFound, name, s.locationURI)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat extracted template: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", interfaces.ErrTemplateNotFound, name)
	}

	return os.DirFS(dir), nil
}

// fetch downloads and extracts the repository tarball on first use.
func (s *GitHubSource) fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootDir != "" {
		return s.rootDir, nil
	}

	url := fmt.Sprintf("%s/repos/%s/%s/tarball/%s", s.apiBase, s.owner, s.repo, s.ref)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch repository tarball: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return "", fmt.Errorf("%w: %s/%s@%s does not exist", interfaces.ErrTemplateNotFound, s.owner, s.repo, s.ref)
	}
	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	dir, err := os.MkdirTemp("", "archdemo-templates-*")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	// GitHub wraps the tree in a single owner-repo-sha directory.
	if err := extractTarGz(resp.Body, dir, true); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to extract repository tarball: %w", err)
	}

	s.log.Debug("Extracted repository tarball",
		slog.String("repo", s.locationURI),
		slog.String("dir", dir))

	s.rootDir = dir
	return dir, nil
}

// Name returns a unique identifier for this template source.
func (s *GitHubSource) Name() string {
	return fmt.Sprintf("github-%s-%s", s.owner, s.repo)
}

// LocationURI returns the URI that identifies this template source.
func (s *GitHubSource) LocationURI() string {
	return s.locationURI
}

// Close removes the extracted repository tree.
func (s *GitHubSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootDir == "" {
		return nil
	}
	dir := s.rootDir
	s.rootDir = ""
	return os.RemoveAll(dir)
}
