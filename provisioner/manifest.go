package provisioner

import (
	"fmt"
	"os"
	"path/filepath"
)

// demoManifest is the Cargo manifest of the generated demo project. The
// path dependencies point two levels up at the shared library trees.
const demoManifest = `[package]
name = "arch-demo-app"
version = "0.1.0"
edition = "2021"

[dependencies]
common = { path = "../../common" }
program = { path = "../../program" }
bip322 = { path = "../../bip322" }
`

// writeManifest writes the demo project's Cargo.toml.
func writeManifest(demoDir string) error {
	path := filepath.Join(demoDir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(demoManifest), 0644); err != nil {
		return fmt.Errorf("failed to write demo manifest: %w", err)
	}
	return nil
}
