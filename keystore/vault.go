package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// VaultKeyStore persists records in HashiCorp Vault using the KV v2 engine.
// Each record lives at [mount]/data/[path]/[name] with secret_key and
// public_key fields, so one key can be rotated or inspected without touching
// the others.
type VaultKeyStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultKeyStore creates a Vault-backed key store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token; empty falls back to the VAULT_TOKEN environment variable
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "archdemo/keys")
//   - log: Structured logger
func NewVaultKeyStore(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultKeyStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	// Ensure paths are properly formatted
	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultKeyStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Put stores a new record. Returns ErrKeyExists if the name is taken.
func (s *VaultKeyStore) Put(ctx context.Context, record *interfaces.KeyRecord) error {
	exists, err := s.Has(ctx, record.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", interfaces.ErrKeyExists, record.Name)
	}

	path := s.recordPath(record.Name)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"secret_key": hex.EncodeToString(record.Keypair.SecretBytes()),
			"public_key": record.Pubkey().String(),
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		s.log.Error("Failed to write to Vault",
			slog.String("path", path),
			slog.String("name", record.Name),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored key in Vault",
		slog.String("name", record.Name),
		slog.String("pubkey", record.Pubkey().String()))
	return nil
}

// Get retrieves the record stored under name.
func (s *VaultKeyStore) Get(ctx context.Context, name string) (*interfaces.KeyRecord, error) {
	path := s.recordPath(name)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, name)
	}

	// KV v2 wraps the fields in a nested "data" map
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response for %s", name)
	}
	secretKey, _ := data["secret_key"].(string)
	publicKey, _ := data["public_key"].(string)
	if secretKey == "" {
		return nil, fmt.Errorf("secret_key field missing in Vault record %s", name)
	}

	return decodeStoredKey(name, storedKey{SecretKey: secretKey, PublicKey: publicKey}, s.locationURI)
}

// Has reports whether a record exists under name.
func (s *VaultKeyStore) Has(ctx context.Context, name string) (bool, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.recordPath(name))
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return secret != nil && secret.Data != nil, nil
}

// HasPubkey reports whether any record holds the given pubkey.
func (s *VaultKeyStore) HasPubkey(ctx context.Context, pubkey interfaces.Pubkey) (bool, error) {
	_, err := s.NameByPubkey(ctx, pubkey)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NameByPubkey finds the name whose record holds the given pubkey. Vault has
// no secondary indexes, so this lists and reads every record.
func (s *VaultKeyStore) NameByPubkey(ctx context.Context, pubkey interfaces.Pubkey) (string, error) {
	names, err := s.List(ctx)
	if err != nil {
		return "", err
	}

	for _, name := range names {
		record, err := s.Get(ctx, name)
		if err != nil {
			return "", err
		}
		if record.Pubkey().Equal(pubkey) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: pubkey %s", interfaces.ErrKeyNotFound, pubkey)
}

// List returns all stored names in lexical order.
func (s *VaultKeyStore) List(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("%s/metadata/%s", s.mountPath, s.dataPath)

	secret, err := s.client.Logical().ListWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to list Vault keys",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return []string{}, nil
	}

	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return []string{}, nil
	}

	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		if name, ok := entry.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Name returns a unique identifier for this store.
func (s *VaultKeyStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultKeyStore) LocationURI() string {
	return s.locationURI
}

// recordPath builds the KV v2 data path for a record name.
func (s *VaultKeyStore) recordPath(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, name)
}
