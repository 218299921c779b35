package flatfile

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory, append-only exact index using squared L2 distance.
// It is safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	model      string
	vectors    []float32 // row-major, len == len(chunks) * dimensions
	chunks     []domain.Chunk
}

// NewIndex creates an empty index. A dimensions value of 0 is fixed by the first Add.
func NewIndex(dimensions int, model string) *Index {
	return &Index{
		dimensions: dimensions,
		model:      model,
	}
}

// Add appends one entry per chunk. The batch is validated before any entry is stored.
func (idx *Index) Add(chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dims := idx.dimensions
	if dims == 0 {
		dims = len(vectors[0])
	}
	if dims == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("vector %d has %d values, want %d: %w", i, len(v), dims, domain.ErrDimensionMismatch)
		}
	}

	idx.dimensions = dims
	for i, v := range vectors {
		idx.vectors = append(idx.vectors, v...)
		idx.chunks = append(idx.chunks, chunks[i])
	}
	return nil
}

// Search returns the k nearest entries by squared L2 distance. Equal
// distances keep insertion order.
func (idx *Index) Search(query []float32, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.chunks)
	if n == 0 {
		return []domain.SearchHit{}, nil
	}
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query has %d values, want %d: %w", len(query), idx.dimensions, domain.ErrDimensionMismatch)
	}

	type scored struct {
		pos  int
		dist float64
	}
	scores := make([]scored, n)
	for i := range n {
		scores[i] = scored{pos: i, dist: squaredL2(query, idx.row(i))}
	}
	slices.SortStableFunc(scores, func(a, b scored) int {
		return cmp.Compare(a.dist, b.dist)
	})

	k = min(k, n)
	hits := make([]domain.SearchHit, k)
	for i := range k {
		hits[i] = domain.SearchHit{
			Chunk:    idx.chunks[scores[i].pos],
			Distance: scores[i].dist,
		}
	}
	return hits, nil
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Dimensions returns the vector size.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Model returns the embedding model name.
func (idx *Index) Model() string {
	return idx.model
}

// Chunks returns a copy of the stored chunk payloads in insertion order.
func (idx *Index) Chunks() []domain.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.chunks)
}

// Fingerprints returns the content hash of every entry in insertion order.
// Entries saved without a hash are fingerprinted from their text.
func (idx *Index) Fingerprints() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	hashes := make([]string, len(idx.chunks))
	for i, c := range idx.chunks {
		hashes[i] = c.Fingerprint
		if hashes[i] == "" {
			hashes[i] = domain.Fingerprint(c.Text)
		}
	}
	return hashes
}

func (idx *Index) row(i int) []float32 {
	return idx.vectors[i*idx.dimensions : (i+1)*idx.dimensions]
}

// snapshot returns the state needed to persist the index.
func (idx *Index) snapshot() (dims int, vectors []float32, chunks []domain.Chunk) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions, slices.Clone(idx.vectors), slices.Clone(idx.chunks)
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
