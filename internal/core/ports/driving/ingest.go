package driving

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Ingestor runs ingestion cycles against a vector index.
type Ingestor interface {
	// RunCycle loads, chunks, embeds and indexes the requested sources,
	// then persists the index and fingerprints. Only one cycle runs at a
	// time per ingestor.
	RunCycle(ctx context.Context, req domain.CycleRequest) (*domain.CycleResult, error)

	// Status returns the state of the ingestor.
	Status(ctx context.Context) (*IngestStatus, error)
}

// IngestStatus represents the state of the ingestor and its index.
type IngestStatus struct {
	// Running indicates if a cycle is currently in progress.
	Running bool

	// Fingerprints is the number of known chunk fingerprints.
	Fingerprints int

	// Sources is the number of sources tracked.
	Sources int

	// Index describes the persisted index. Nil if none exists.
	Index *domain.IndexStats

	// LastResult is the result of the most recent cycle in this process.
	LastResult *domain.CycleResult
}
