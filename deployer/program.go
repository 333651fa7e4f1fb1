package deployer

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadProgramBinary loads the compiled program ELF from programDir, probing
// a prebuilt program.so first and the conventional cargo output location
// second. Returns the binary and the path it was read from.
func ReadProgramBinary(programDir string) ([]byte, string, error) {
	candidates := []string{
		filepath.Join(programDir, "program.so"),
		filepath.Join(programDir, "target", "deploy", "program.so"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read program binary %s: %w", path, err)
		}
	}

	return nil, "", fmt.Errorf("no program binary under %s: build the program first (expected program.so or target/deploy/program.so)", programDir)
}
