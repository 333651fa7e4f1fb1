package interfaces

import (
	"context"
	"errors"
	"io/fs"
)

// ErrTemplateNotFound is returned when a template source does not carry the
// requested template.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateSource provides named project templates as read-only file trees.
type TemplateSource interface {
	// Template returns the file tree of the named template.
	// Returns ErrTemplateNotFound if the source has no such template.
	Template(ctx context.Context, name string) (fs.FS, error)

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this source.
	LocationURI() string

	// Close releases resources held by the source, such as extracted
	// archives on disk.
	Close() error
}

// TemplateSourceFactory creates template sources from location URIs.
type TemplateSourceFactory interface {
	// SourceFor creates a source from a parsed location.
	// Supports builtin://, file://, github://, ipfs:// and s3://.
	SourceFor(location Location) (TemplateSource, error)
}
