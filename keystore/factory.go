// Package keystore implements the key persistence backends behind the
// interfaces.KeyStore contract: in-process memory, plain JSON file,
// passphrase-sealed file and HashiCorp Vault.
package keystore

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// StoreFactory creates key stores from location URIs.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance. A nil logger falls back to
// slog.Default().
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreFactory{log: logger}
}

// StoreFor creates a key store from a parsed location.
//
// Supported schemes:
//   - mem:// - In-process map, for tests and throwaway runs
//   - file:///path/keys.json - Plain JSON file
//   - sealed:///path/keys.sealed?passphrase-env=VAR - Encrypted JSON file
//   - vault://host:port/mount/path?token=... - HashiCorp Vault KV v2
//
// Returns an error if the scheme is unsupported or required settings are missing.
func (sf *StoreFactory) StoreFor(location interfaces.Location) (interfaces.KeyStore, error) {
	switch location.Scheme {
	case "mem":
		return NewMemoryKeyStore(), nil
	case "file":
		return sf.createFileStore(location)
	case "sealed":
		return sf.createSealedStore(location)
	case "vault":
		return sf.createVaultStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported key store scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// createFileStore creates a plain file store.
// URI format: file:///absolute/path/keys.json
func (sf *StoreFactory) createFileStore(location interfaces.Location) (interfaces.KeyStore, error) {
	sf.log.Debug("Creating file key store", slog.String("uri", location.String()))

	path, err := filePathFromLocation(location)
	if err != nil {
		return nil, err
	}
	return NewFileKeyStore(path, sf.log), nil
}

// createSealedStore creates a passphrase-encrypted file store.
// URI format: sealed:///absolute/path/keys.sealed?passphrase-file=/path
// The passphrase comes from the file named by passphrase-file (trailing
// newline stripped), the environment variable named by passphrase-env, or
// directly from a passphrase parameter.
func (sf *StoreFactory) createSealedStore(location interfaces.Location) (interfaces.KeyStore, error) {
	sf.log.Debug("Creating sealed key store", slog.String("uri", location.String()))

	path, err := filePathFromLocation(location)
	if err != nil {
		return nil, err
	}

	passphrase := []byte(location.GetParam("passphrase"))
	if env := location.GetParam("passphrase-env"); env != "" {
		passphrase = []byte(os.Getenv(env))
	}
	if file := location.GetParam("passphrase-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase file: %w", err)
		}
		passphrase = []byte(strings.TrimRight(string(data), "\r\n"))
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: sealed store requires a passphrase, passphrase-env or passphrase-file parameter", interfaces.ErrInvalidLocationURI)
	}

	return NewSealedKeyStore(path, passphrase, sf.log), nil
}

// createVaultStore creates a HashiCorp Vault KV v2 store.
// URI format: vault://host:port/mount/path?token=...&insecure=true
// The first path segment is the KV mount, the rest is the path within it.
// Without a token parameter the client falls back to the VAULT_TOKEN
// environment variable.
func (sf *StoreFactory) createVaultStore(location interfaces.Location) (interfaces.KeyStore, error) {
	sf.log.Debug("Creating vault key store", slog.String("uri", location.String()))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: vault store requires a host", interfaces.ErrInvalidLocationURI)
	}

	address := "https://" + location.Host
	if location.GetParamBool("insecure") {
		address = "http://" + location.Host
	}

	mountPath := "secret"
	dataPath := "archdemo"
	segments := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if segments[0] != "" {
		mountPath = segments[0]
	}
	if len(segments) == 2 && segments[1] != "" {
		dataPath = segments[1]
	}

	return NewVaultKeyStore(address, location.GetParam("token"), mountPath, dataPath, sf.log)
}

// filePathFromLocation resolves the filesystem path of a file:// or sealed://
// location, tolerating the host form (file://relative/path).
func filePathFromLocation(location interfaces.Location) (string, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path in %s", interfaces.ErrInvalidLocationURI, location.String())
	}
	return path, nil
}
