package keystore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// storedKey is the on-disk JSON representation of one record. The public key
// is stored alongside the secret so the file can be inspected without
// deriving anything.
type storedKey struct {
	SecretKey string `json:"secret_key"`
	PublicKey string `json:"public_key"`
}

// FileKeyStore persists records as a JSON object mapping names to hex-encoded
// key material. The file is created on first Put with 0600 permissions and
// re-read on every operation, so a fresh process always sees the latest
// state. Only writers within the same process are serialized.
type FileKeyStore struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// NewFileKeyStore creates a file-backed key store at path. The file and its
// directory are created lazily on the first write.
func NewFileKeyStore(path string, log *slog.Logger) *FileKeyStore {
	return &FileKeyStore{path: path, log: log}
}

// Put stores a new record. Returns ErrKeyExists if the name is taken.
func (s *FileKeyStore) Put(_ context.Context, record *interfaces.KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := records[record.Name]; ok {
		return fmt.Errorf("%w: %s", interfaces.ErrKeyExists, record.Name)
	}

	records[record.Name] = storedKey{
		SecretKey: hex.EncodeToString(record.Keypair.SecretBytes()),
		PublicKey: record.Pubkey().String(),
	}
	if err := s.save(records); err != nil {
		return err
	}

	s.log.Debug("Stored key",
		slog.String("name", record.Name),
		slog.String("pubkey", record.Pubkey().String()),
		slog.String("path", s.path))
	return nil
}

// Get retrieves the record stored under name. The key pair is reconstructed
// from the secret; a mismatch against the stored public key means the file
// was edited by hand and is reported as corruption.
func (s *FileKeyStore) Get(_ context.Context, name string) (*interfaces.KeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	stored, ok := records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, name)
	}
	return decodeStoredKey(name, stored, s.path)
}

// Has reports whether a record exists under name.
func (s *FileKeyStore) Has(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}
	_, ok := records[name]
	return ok, nil
}

// HasPubkey reports whether any record holds the given pubkey.
func (s *FileKeyStore) HasPubkey(_ context.Context, pubkey interfaces.Pubkey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return false, err
	}

	want := pubkey.String()
	for _, stored := range records {
		if stored.PublicKey == want {
			return true, nil
		}
	}
	return false, nil
}

// NameByPubkey finds the name whose record holds the given pubkey.
func (s *FileKeyStore) NameByPubkey(_ context.Context, pubkey interfaces.Pubkey) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return "", err
	}

	want := pubkey.String()
	for name, stored := range records {
		if stored.PublicKey == want {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: pubkey %s", interfaces.ErrKeyNotFound, pubkey)
}

// List returns all stored names in lexical order.
func (s *FileKeyStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Name returns a unique identifier for this store.
func (s *FileKeyStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.path))
}

// LocationURI returns the URI that identifies this store.
func (s *FileKeyStore) LocationURI() string {
	return "file://" + s.path
}

// load reads the whole store. A missing file is an empty store.
func (s *FileKeyStore) load() (map[string]storedKey, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]storedKey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key store %s: %w", s.path, err)
	}

	var records map[string]storedKey
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse key store %s: %w", s.path, err)
	}
	if records == nil {
		records = map[string]storedKey{}
	}
	return records, nil
}

// save writes the whole store, creating the directory when needed.
func (s *FileKeyStore) save(records map[string]storedKey) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode key store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create key store directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write key store %s: %w", s.path, err)
	}
	return nil
}

// decodeStoredKey turns one stored entry back into a key record.
func decodeStoredKey(name string, stored storedKey, path string) (*interfaces.KeyRecord, error) {
	secret, err := hex.DecodeString(stored.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("corrupt key %s in %s: %w", name, path, err)
	}

	keypair, err := interfaces.KeyPairFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("corrupt key %s in %s: %w", name, path, err)
	}
	if stored.PublicKey != "" && keypair.Public().String() != stored.PublicKey {
		return nil, fmt.Errorf("corrupt key %s in %s: stored pubkey does not match secret", name, path)
	}

	return &interfaces.KeyRecord{Name: name, Keypair: keypair}, nil
}
