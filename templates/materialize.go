// Package templates materializes project file trees from pluggable sources.
// The builtin source serves the demo templates compiled into the binary;
// the other sources fetch them from a local directory, a GitHub repository,
// IPFS or S3.
package templates

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Materialize copies the subtree of fsys rooted at root into dest,
// preserving relative paths and creating directories as needed. Existing
// files are overwritten; the copy is per-file idempotent, not transactional.
func Materialize(fsys fs.FS, root string, dest string) error {
	return fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk template tree: %w", err)
		}

		rel := p
		if root != "." {
			if p == root {
				rel = "."
			} else {
				rel = strings.TrimPrefix(p, root+"/")
			}
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		if d.IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", p, err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		return nil
	})
}
