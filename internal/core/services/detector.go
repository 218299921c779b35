package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// ChangeDetector decides which content is new. Chunks are compared by
// content fingerprint against the persistent fingerprint store, so the same
// text reached through two sources is indexed once. Web pages are also
// compared against the hash seen on the previous fetch, which lets an
// unchanged page skip chunking and embedding entirely.
type ChangeDetector struct {
	store driven.FingerprintStore
	dedup bool

	mu       sync.Mutex
	urlCache map[string]string
}

// NewChangeDetector creates a detector over store.
// With dedup false every chunk is treated as new.
func NewChangeDetector(store driven.FingerprintStore, dedup bool) *ChangeDetector {
	return &ChangeDetector{
		store:    store,
		dedup:    dedup,
		urlCache: make(map[string]string),
	}
}

// DedupEnabled reports whether fingerprint deduplication is active.
func (d *ChangeDetector) DedupEnabled() bool {
	return d.dedup
}

// Fingerprint returns the content hash of text.
func (d *ChangeDetector) Fingerprint(text string) string {
	return domain.Fingerprint(text)
}

// IsNew reports whether hash is absent from the fingerprint store.
func (d *ChangeDetector) IsNew(ctx context.Context, hash string) (bool, error) {
	if !d.dedup || d.store == nil {
		return true, nil
	}
	seen, err := d.store.Contains(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return !seen, nil
}

// Filter returns the chunks whose fingerprint is neither stored nor repeated
// earlier in the batch, keeping their order, plus the number dropped.
// Chunks without a fingerprint are stamped first.
func (d *ChangeDetector) Filter(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, int, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	if !d.dedup {
		for _, c := range chunks {
			if c.Fingerprint == "" {
				c.Fingerprint = d.Fingerprint(c.Text)
			}
			kept = append(kept, c)
		}
		return kept, 0, nil
	}

	batch := make(map[string]struct{}, len(chunks))
	dropped := 0
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if c.Fingerprint == "" {
			c.Fingerprint = d.Fingerprint(c.Text)
		}
		if _, dup := batch[c.Fingerprint]; dup {
			dropped++
			continue
		}
		batch[c.Fingerprint] = struct{}{}

		isNew, err := d.IsNew(ctx, c.Fingerprint)
		if err != nil {
			return nil, 0, err
		}
		if !isNew {
			dropped++
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped, nil
}

// URLUnchanged reports whether url was last seen with the same content hash.
func (d *ChangeDetector) URLUnchanged(url, hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.urlCache[url]
	return ok && last == hash
}

// RememberURL records the hash of an ingested page.
func (d *ChangeDetector) RememberURL(url, hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlCache[url] = hash
}

// ForgetURLs clears the page cache, forcing the next fetch to be processed.
func (d *ChangeDetector) ForgetURLs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.urlCache)
}

// Commit persists the fingerprints of newly indexed chunks. With replace set
// the stored set becomes exactly hashes.
func (d *ChangeDetector) Commit(ctx context.Context, hashes []string, replace bool) error {
	if d.store == nil {
		return nil
	}
	if replace {
		if err := d.store.Replace(ctx, hashes); err != nil {
			return fmt.Errorf("replace fingerprints: %w", err)
		}
		return nil
	}
	if len(hashes) == 0 {
		return nil
	}
	if err := d.store.AddAll(ctx, hashes); err != nil {
		return fmt.Errorf("save fingerprints: %w", err)
	}
	return nil
}

// Count returns the number of stored fingerprints.
func (d *ChangeDetector) Count(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, nil
	}
	return d.store.Count(ctx)
}

// fingerprintSet is a FingerprintStore held in memory, used to deduplicate
// against an index other than the configured one.
type fingerprintSet struct {
	mu     sync.RWMutex
	hashes map[string]struct{}
}

func newFingerprintSet(hashes []string) *fingerprintSet {
	s := &fingerprintSet{hashes: make(map[string]struct{}, len(hashes))}
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return s
}

func (s *fingerprintSet) Contains(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[hash]
	return ok, nil
}

func (s *fingerprintSet) AddAll(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return nil
}

func (s *fingerprintSet) Replace(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return nil
}

func (s *fingerprintSet) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes), nil
}
