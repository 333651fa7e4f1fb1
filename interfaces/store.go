package interfaces

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when a key store backend is not accessible,
// due to network issues, authentication failures or service outages.
var ErrStoreUnavailable = errors.New("key store unavailable")

// KeyStore persists named key records. Implementations must be safe for
// concurrent use and must treat records as create-only: Put never replaces
// an existing record.
type KeyStore interface {
	// Put stores a new record. Returns ErrKeyExists if the name is taken.
	Put(ctx context.Context, record *KeyRecord) error

	// Get retrieves the record stored under name.
	// Returns ErrKeyNotFound if no such record exists.
	Get(ctx context.Context, name string) (*KeyRecord, error)

	// Has reports whether a record exists under name.
	Has(ctx context.Context, name string) (bool, error)

	// HasPubkey reports whether any record holds the given pubkey.
	HasPubkey(ctx context.Context, pubkey Pubkey) (bool, error)

	// NameByPubkey finds the name whose record holds the given pubkey.
	// Returns ErrKeyNotFound if no record matches.
	NameByPubkey(ctx context.Context, pubkey Pubkey) (string, error)

	// List returns all stored names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Name returns an identifier for logging.
	Name() string

	// LocationURI returns the URI identifying this store.
	LocationURI() string
}

// KeyStoreFactory creates key stores from location URIs.
type KeyStoreFactory interface {
	// StoreFor creates a store from a parsed location.
	// Supports mem://, file://, sealed:// and vault://.
	StoreFor(location Location) (KeyStore, error)
}
