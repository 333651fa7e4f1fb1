package templates

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeSnapshot maps relative file paths to contents for a directory tree.
func treeSnapshot(t *testing.T, dir string) map[string]string {
	t.Helper()

	snapshot := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		snapshot[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return snapshot
}

func TestMaterializeCopiesTree(t *testing.T) {
	fsys := fstest.MapFS{
		"Cargo.toml":       {Data: []byte("[package]\n")},
		"src/lib.rs":       {Data: []byte("pub mod constants;\n")},
		"src/constants.rs": {Data: []byte("pub const X: u8 = 1;\n")},
	}

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Materialize(fsys, ".", dest))

	assert.Equal(t, map[string]string{
		"Cargo.toml":       "[package]\n",
		"src/lib.rs":       "pub mod constants;\n",
		"src/constants.rs": "pub const X: u8 = 1;\n",
	}, treeSnapshot(t, dest))
}

func TestMaterializeSubtree(t *testing.T) {
	fsys := fstest.MapFS{
		"common/Cargo.toml": {Data: []byte("common\n")},
		"app/index.html":    {Data: []byte("<html></html>\n")},
	}

	dest := filepath.Join(t.TempDir(), "out")
	require.NoError(t, Materialize(fsys, "common", dest))

	assert.Equal(t, map[string]string{
		"Cargo.toml": "common\n",
	}, treeSnapshot(t, dest), "only the named subtree is copied, rooted at dest")
}

func TestMaterializeConverges(t *testing.T) {
	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("template\n")},
	}

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "a.txt"), []byte("hand-edited\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "extra.txt"), []byte("mine\n"), 0644))

	require.NoError(t, Materialize(fsys, ".", dest))

	assert.Equal(t, map[string]string{
		"a.txt":     "template\n",
		"extra.txt": "mine\n",
	}, treeSnapshot(t, dest), "template files are overwritten, foreign files survive")
}

func TestMaterializeMissingRoot(t *testing.T) {
	fsys := fstest.MapFS{
		"a.txt": {Data: []byte("x")},
	}

	err := Materialize(fsys, "missing", t.TempDir())
	require.Error(t, err)
}
