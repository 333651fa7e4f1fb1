package keystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// MemoryKeyStore keeps records in process memory. Nothing survives a
// restart, which makes it suitable for tests and throwaway runs only.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	records map[string]*interfaces.KeyRecord
}

// NewMemoryKeyStore creates an empty in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		records: make(map[string]*interfaces.KeyRecord),
	}
}

// Put stores a new record. Returns ErrKeyExists if the name is taken.
func (s *MemoryKeyStore) Put(_ context.Context, record *interfaces.KeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.Name]; ok {
		return fmt.Errorf("%w: %s", interfaces.ErrKeyExists, record.Name)
	}
	s.records[record.Name] = record
	return nil
}

// Get retrieves the record stored under name.
func (s *MemoryKeyStore) Get(_ context.Context, name string) (*interfaces.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrKeyNotFound, name)
	}
	return record, nil
}

// Has reports whether a record exists under name.
func (s *MemoryKeyStore) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[name]
	return ok, nil
}

// HasPubkey reports whether any record holds the given pubkey.
func (s *MemoryKeyStore) HasPubkey(_ context.Context, pubkey interfaces.Pubkey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.Pubkey().Equal(pubkey) {
			return true, nil
		}
	}
	return false, nil
}

// NameByPubkey finds the name whose record holds the given pubkey.
func (s *MemoryKeyStore) NameByPubkey(_ context.Context, pubkey interfaces.Pubkey) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, record := range s.records {
		if record.Pubkey().Equal(pubkey) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: pubkey %s", interfaces.ErrKeyNotFound, pubkey)
}

// List returns all stored names in lexical order.
func (s *MemoryKeyStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Name returns a unique identifier for this store.
func (s *MemoryKeyStore) Name() string {
	return "mem"
}

// LocationURI returns the URI that identifies this store.
func (s *MemoryKeyStore) LocationURI() string {
	return "mem://"
}
