package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is an in-memory fingerprint set.
// FailWrites makes AddAll and Replace fail, for exercising save-failure paths.
type FingerprintStore struct {
	mu         sync.RWMutex
	set        map[string]struct{}
	FailWrites error
}

// NewFingerprintStore creates a set seeded with hashes.
func NewFingerprintStore(hashes ...string) *FingerprintStore {
	s := &FingerprintStore{set: make(map[string]struct{}, len(hashes))}
	for _, h := range hashes {
		s.set[h] = struct{}{}
	}
	return s
}

// Contains reports whether the hash is in the set.
func (s *FingerprintStore) Contains(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[hash]
	return ok, nil
}

// AddAll adds hashes to the set.
func (s *FingerprintStore) AddAll(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	for _, h := range hashes {
		s.set[h] = struct{}{}
	}
	return nil
}

// Replace swaps the whole set.
func (s *FingerprintStore) Replace(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites != nil {
		return s.FailWrites
	}
	s.set = make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		s.set[h] = struct{}{}
	}
	return nil
}

// Count returns the set size.
func (s *FingerprintStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set), nil
}
