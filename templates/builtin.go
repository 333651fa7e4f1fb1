package templates

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

//go:embed all:files
var builtinFiles embed.FS

// BuiltinSource serves the demo templates compiled into the binary:
// common, program, bip322 and app.
type BuiltinSource struct {
	log *slog.Logger
}

// NewBuiltinSource creates a template source backed by the embedded trees.
func NewBuiltinSource(log *slog.Logger) *BuiltinSource {
	return &BuiltinSource{log: log}
}

// Template returns the embedded tree for name.
// Returns ErrTemplateNotFound when no such template is compiled in.
func (s *BuiltinSource) Template(ctx context.Context, name string) (fs.FS, error) {
	sub := path.Join("files", name)
	if _, err := fs.Stat(builtinFiles, sub); err != nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrTemplateNotFound, name)
	}
	return fs.Sub(builtinFiles, sub)
}

// Name returns a unique identifier for this template source.
func (s *BuiltinSource) Name() string {
	return "builtin"
}

// LocationURI returns the URI that identifies this template source.
func (s *BuiltinSource) LocationURI() string {
	return "builtin:"
}

// Close is a no-op: the embedded source holds no resources.
func (s *BuiltinSource) Close() error {
	return nil
}
