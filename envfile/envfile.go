// Package envfile reads and rewrites dotenv-style files while preserving
// their layout. Only KEY=VALUE lines are interpreted; comments, blank lines
// and anything else unrecognized pass through verbatim. Values flow one way:
// the provisioner writes them, the frontend build reads them.
package envfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// Keys the provisioner maintains in the frontend env file.
const (
	KeyProgramPubkey     = "VITE_PROGRAM_PUBKEY"
	KeyWallAccountPubkey = "VITE_WALL_ACCOUNT_PUBKEY"
	KeyNetwork           = "VITE_NETWORK"
	KeyRPCURL            = "VITE_RPC_URL"
)

// line is one physical line of the file. Entries carry a parsed key so they
// can be overwritten in place; raw lines are reproduced untouched.
type line struct {
	key   string
	value string
	raw   string
	entry bool
}

// File is a parsed env file bound to its path on disk.
type File struct {
	path  string
	lines []line
}

// Load parses the env file at path. A missing file is an error rather than
// an empty file: the caller decides whether absence means first-run or
// broken state.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	f := &File{path: path}
	for _, raw := range strings.Split(strings.TrimSuffix(string(data), "\n"), "\n") {
		f.lines = append(f.lines, parseLine(raw))
	}
	return f, nil
}

func parseLine(raw string) line {
	trimmed := strings.TrimSpace(raw)
	idx := strings.Index(raw, "=")
	if idx <= 0 || strings.HasPrefix(trimmed, "#") {
		return line{raw: raw}
	}
	return line{key: raw[:idx], value: raw[idx+1:], entry: true}
}

// Get returns the current value of key and whether the key is present.
func (f *File) Get(key string) (string, bool) {
	for _, l := range f.lines {
		if l.entry && strings.TrimSpace(l.key) == key {
			return l.value, true
		}
	}
	return "", false
}

// Set overwrites the value of key in place, keeping its line position, or
// appends a new KEY=VALUE line when the key is absent.
func (f *File) Set(key, value string) {
	for i, l := range f.lines {
		if l.entry && strings.TrimSpace(l.key) == key {
			f.lines[i] = line{key: key, value: value, entry: true}
			return
		}
	}
	f.lines = append(f.lines, line{key: key, value: value, entry: true})
}

// Save serializes the file back to its path, line order intact and with a
// trailing newline.
func (f *File) Save() error {
	var sb strings.Builder
	for _, l := range f.lines {
		if l.entry {
			sb.WriteString(l.key)
			sb.WriteString("=")
			sb.WriteString(l.value)
		} else {
			sb.WriteString(l.raw)
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(f.path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// Configure rewrites the frontend env file at path with the deployed
// program's coordinates. The RPC URL is only touched when one is provided,
// so a hand-edited endpoint survives reruns.
func Configure(path string, rpcURL string, programID, stateAccountID interfaces.Pubkey, network string) error {
	f, err := Load(path)
	if err != nil {
		return err
	}

	f.Set(KeyProgramPubkey, programID.String())
	f.Set(KeyWallAccountPubkey, stateAccountID.String())
	f.Set(KeyNetwork, network)
	if rpcURL != "" {
		f.Set(KeyRPCURL, rpcURL)
	}

	return f.Save()
}
