package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// DirSource serves templates from a local directory, one subdirectory per
// template.
type DirSource struct {
	root string
	log  *slog.Logger
}

// NewDirSource creates a template source reading from root.
func NewDirSource(root string, log *slog.Logger) *DirSource {
	return &DirSource{root: root, log: log}
}

// Template returns the directory tree for name.
// Returns ErrTemplateNotFound when root has no such subdirectory.
func (s *DirSource) Template(ctx context.Context, name string) (fs.FS, error) {
	dir := filepath.Join(s.root, name)

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", interfaces.ErrTemplateNotFound, name, s.root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", interfaces.ErrTemplateNotFound, dir)
	}

	return os.DirFS(dir), nil
}

// Name returns a unique identifier for this template source.
func (s *DirSource) Name() string {
	return fmt.Sprintf("dir-%s", filepath.Base(s.root))
}

// LocationURI returns the URI that identifies this template source.
func (s *DirSource) LocationURI() string {
	return "file://" + s.root
}

// Close is a no-op: the directory is not owned by the source.
func (s *DirSource) Close() error {
	return nil
}
