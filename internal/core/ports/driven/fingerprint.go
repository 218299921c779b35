package driven

import "context"

// FingerprintStore is the persistent set of content hashes already indexed.
type FingerprintStore interface {
	// Contains reports whether the hash is in the set.
	Contains(ctx context.Context, hash string) (bool, error)

	// AddAll adds hashes and persists the set.
	AddAll(ctx context.Context, hashes []string) error

	// Replace swaps the whole set for hashes and persists it.
	Replace(ctx context.Context, hashes []string) error

	// Count returns the set size.
	Count(ctx context.Context) (int, error)
}
