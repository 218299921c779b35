package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// fingerprintFile is the on-disk JSON shape: a sorted array of hex hashes.
type fingerprintFile struct {
	Fingerprints []string `json:"fingerprints"`
}

// FingerprintStore keeps the set of indexed content hashes in a JSON file.
// The file is read lazily on first use and rewritten atomically on every change.
type FingerprintStore struct {
	path string

	mu     sync.RWMutex
	loaded bool
	set    map[string]struct{}
}

// NewFingerprintStore creates a store backed by the file at path.
func NewFingerprintStore(path string) *FingerprintStore {
	return &FingerprintStore{path: path}
}

// Path returns the backing file path.
func (s *FingerprintStore) Path() string {
	return s.path
}

// Contains reports whether the hash is in the set.
func (s *FingerprintStore) Contains(_ context.Context, hash string) (bool, error) {
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[hash]
	return ok, nil
}

// AddAll adds hashes and persists the set.
func (s *FingerprintStore) AddAll(_ context.Context, hashes []string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]struct{}, len(s.set)+len(hashes))
	for h := range s.set {
		next[h] = struct{}{}
	}
	for _, h := range hashes {
		next[h] = struct{}{}
	}
	return s.commit(next)
}

// Replace swaps the whole set and persists it.
func (s *FingerprintStore) Replace(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		next[h] = struct{}{}
	}
	if err := s.commit(next); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// Count returns the set size.
func (s *FingerprintStore) Count(_ context.Context) (int, error) {
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set), nil
}

// commit writes next to disk and swaps it in only if the write succeeded.
// Caller must hold the write lock.
func (s *FingerprintStore) commit(next map[string]struct{}) error {
	sorted := make([]string, 0, len(next))
	for h := range next {
		sorted = append(sorted, h)
	}
	slices.Sort(sorted)

	data, err := json.MarshalIndent(fingerprintFile{Fingerprints: sorted}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fingerprints: %w", err)
	}
	if err := WriteAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("save fingerprints: %w", err)
	}
	s.set = next
	return nil
}

func (s *FingerprintStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	s.set = make(map[string]struct{})
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read fingerprints: %w", err)
	}
	if len(data) == 0 {
		s.loaded = true
		return nil
	}

	var f fingerprintFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode fingerprints %s: %w", s.path, err)
	}
	for _, h := range f.Fingerprints {
		s.set[h] = struct{}{}
	}
	s.loaded = true
	return nil
}
