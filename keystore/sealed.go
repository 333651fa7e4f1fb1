package keystore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

const (
	sealedSaltSize  = 16
	sealedNonceSize = 12 // 12 bytes is standard for GCM
)

// SealedKeyStore persists records like FileKeyStore but encrypts the file
// with a key derived from a passphrase via Argon2id. The on-disk format is
// [salt (16 bytes)][nonce (12 bytes)][AES-256-GCM ciphertext]; a fresh salt
// and nonce are drawn on every write.
type SealedKeyStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	log        *slog.Logger
}

// NewSealedKeyStore creates a sealed key store at path, encrypted under
// passphrase. The file is created lazily on the first write.
func NewSealedKeyStore(path string, passphrase []byte, log *slog.Logger) *SealedKeyStore {
	return &SealedKeyStore{path: path, passphrase: passphrase, log: log}
}

// Put stores a new record. Returns ErrKeyExists if the name is taken.
func (s *SealedKeyStore) Put(_ context.Context, record *interfaces.KeyRecord) error {
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

	s.log.Debug("Stored sealed key",
		slog.String("name", record.Name),
		slog.String("pubkey", record.Pubkey().String()),
		slog.String("path", s.path))
	return nil
}

// Get retrieves the record stored under name.
func (s *SealedKeyStore) Get(_ context.Context, name string) (*interfaces.KeyRecord, error) {
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
func (s *SealedKeyStore) Has(_ context.Context, name string) (bool, error) {
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
func (s *SealedKeyStore) HasPubkey(_ context.Context, pubkey interfaces.Pubkey) (bool, error) {
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
func (s *SealedKeyStore) NameByPubkey(_ context.Context, pubkey interfaces.Pubkey) (string, error) {
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
func (s *SealedKeyStore) List(_ context.Context) ([]string, error) {
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
func (s *SealedKeyStore) Name() string {
	return fmt.Sprintf("sealed-%s", filepath.Base(s.path))
}

// LocationURI returns the URI that identifies this store.
func (s *SealedKeyStore) LocationURI() string {
	return "sealed://" + s.path
}

// load reads and decrypts the whole store. A missing file is an empty store.
func (s *SealedKeyStore) load() (map[string]storedKey, error) {
	sealed, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]storedKey{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key store %s: %w", s.path, err)
	}

	plaintext, err := s.unseal(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key store %s: %w", s.path, err)
	}

	var records map[string]storedKey
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("failed to parse key store %s: %w", s.path, err)
	}
	if records == nil {
		records = map[string]storedKey{}
	}
	return records, nil
}

// save encrypts and writes the whole store, creating the directory when needed.
func (s *SealedKeyStore) save(records map[string]storedKey) error {
	plaintext, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode key store: %w", err)
	}

	sealed, err := s.seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal key store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create key store directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write key store %s: %w", s.path, err)
	}
	return nil
}

// seal encrypts plaintext under a key derived from the passphrase.
func (s *SealedKeyStore) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, sealedSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, sealedNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := s.cipherForSalt(salt)
	if err != nil {
		return nil, err
	}

	ciphertext := aesGCM.Seal(nil, nonce, plaintext, nil)

	result := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	result = append(result, salt...)
	result = append(result, nonce...)
	result = append(result, ciphertext...)
	return result, nil
}

// unseal decrypts a sealed file body.
func (s *SealedKeyStore) unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < sealedSaltSize+sealedNonceSize {
		return nil, errors.New("sealed data too short")
	}

	salt := sealed[:sealedSaltSize]
	nonce := sealed[sealedSaltSize : sealedSaltSize+sealedNonceSize]
	ciphertext := sealed[sealedSaltSize+sealedNonceSize:]

	aesGCM, err := s.cipherForSalt(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// cipherForSalt derives the AES-256-GCM cipher for a given salt.
// Parameters: time=1, memory=64*1024, threads=4, keyLen=32.
func (s *SealedKeyStore) cipherForSalt(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, 1, 64*1024, 4, 32)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
