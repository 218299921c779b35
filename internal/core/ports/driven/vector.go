package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// VectorIndex is an in-memory similarity index mapping vectors to chunks.
// Entries are only ever appended.
type VectorIndex interface {
	// Add appends one entry per chunk. len(chunks) must equal len(vectors).
	Add(chunks []domain.Chunk, vectors [][]float32) error

	// Search returns the k nearest entries ordered by ascending distance.
	// Ties keep insertion order.
	Search(query []float32, k int) ([]domain.SearchHit, error)

	// Len returns the number of entries.
	Len() int

	// Dimensions returns the vector size, 0 for an empty index without a fixed size.
	Dimensions() int

	// Model returns the embedding model the index was built with.
	Model() string

	// Fingerprints returns the content hashes of the indexed chunks.
	Fingerprints() []string
}

// VectorIndexStore persists vector indexes.
type VectorIndexStore interface {
	// Create builds an empty index for vectors of the given size.
	Create(dimensions int, model string) VectorIndex

	// Load reads the index at path.
	// Returns domain.ErrIndexNotFound when nothing has been saved there.
	Load(ctx context.Context, path string) (VectorIndex, error)

	// Save atomically persists the index at path. A concurrent reader sees
	// either the previous or the new version, never a partial one.
	Save(ctx context.Context, index VectorIndex, path string) error

	// Version returns the id of the persisted version at path.
	// Returns domain.ErrIndexNotFound when nothing has been saved there.
	Version(path string) (string, error)

	// Stats summarises the persisted index at path.
	Stats(ctx context.Context, path string) (*domain.IndexStats, error)
}
