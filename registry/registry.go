// Package registry implements the named key registry backing account and
// program identities. It layers naming, lookup and on-chain account creation
// on top of a pluggable key store.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
	"github.com/ruteri/arch-demo-provisioner/keygen"
)

// KeyRegistry manages named keys: it generates them, persists them in a key
// store and creates the matching on-chain accounts.
type KeyRegistry struct {
	store     interfaces.KeyStore
	creator   interfaces.AccountCreator
	generator keygen.Generator
	log       *slog.Logger
}

// NewKeyRegistry creates a registry over the given store, account creator
// and key generator. A nil logger falls back to slog.Default().
func NewKeyRegistry(store interfaces.KeyStore, creator interfaces.AccountCreator, generator keygen.Generator, log *slog.Logger) *KeyRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &KeyRegistry{
		store:     store,
		creator:   creator,
		generator: generator,
		log:       log,
	}
}

// Exists reports whether a key is registered under name.
func (r *KeyRegistry) Exists(ctx context.Context, name string) (bool, error) {
	return r.store.Has(ctx, name)
}

// ExistsPubkey reports whether any registered key holds pubkey.
func (r *KeyRegistry) ExistsPubkey(ctx context.Context, pubkey interfaces.Pubkey) (bool, error) {
	return r.store.HasPubkey(ctx, pubkey)
}

// NameFor returns the name registered for pubkey.
// Returns ErrKeyNotFound if the pubkey is unknown.
func (r *KeyRegistry) NameFor(ctx context.Context, pubkey interfaces.Pubkey) (string, error) {
	return r.store.NameByPubkey(ctx, pubkey)
}

// PubkeyFor returns the pubkey registered under name.
// Returns ErrKeyNotFound if the name is unknown.
func (r *KeyRegistry) PubkeyFor(ctx context.Context, name string) (interfaces.Pubkey, error) {
	record, err := r.store.Get(ctx, name)
	if err != nil {
		return interfaces.Pubkey{}, err
	}
	return record.Pubkey(), nil
}

// KeypairFor returns the full key pair registered under name.
// Returns ErrKeyNotFound if the name is unknown.
func (r *KeyRegistry) KeypairFor(ctx context.Context, name string) (*interfaces.KeyPair, error) {
	record, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return record.Keypair, nil
}

// Create registers a new key under name and creates its on-chain account.
// A nil owner leaves the account owned by the system program.
//
// The record is persisted before the network call. A failed call leaves the
// key behind; re-runs pick a fresh name via UniqueName instead of reusing
// it, so a stored key never ends up bound to two different accounts. Create
// itself never retries, the deployment client owns retry.
func (r *KeyRegistry) Create(ctx context.Context, name string, owner *interfaces.Pubkey) (interfaces.Pubkey, error) {
	keypair, err := r.generator.Generate(name)
	if err != nil {
		return interfaces.Pubkey{}, fmt.Errorf("failed to generate key for %s: %w", name, err)
	}

	record := &interfaces.KeyRecord{Name: name, Keypair: keypair}
	if err := r.store.Put(ctx, record); err != nil {
		return interfaces.Pubkey{}, fmt.Errorf("failed to persist key %s: %w", name, err)
	}

	r.log.Info("Registered key",
		slog.String("name", name),
		slog.String("pubkey", keypair.Public().String()),
		slog.String("store", r.store.Name()))

	if err := r.creator.CreateAccount(ctx, keypair, owner); err != nil {
		return interfaces.Pubkey{}, fmt.Errorf("failed to create account for %s: %w", name, err)
	}

	return keypair.Public(), nil
}

// UniqueName returns the first unregistered name out of base, base_1,
// base_2 and so on.
func (r *KeyRegistry) UniqueName(ctx context.Context, base string) (string, error) {
	name := base
	for counter := 1; ; counter++ {
		exists, err := r.store.Has(ctx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s_%d", base, counter)
	}
}
