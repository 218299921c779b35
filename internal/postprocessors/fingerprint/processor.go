// Package fingerprint stamps each chunk with its content hash.
package fingerprint

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Processor sets Chunk.Fingerprint from the chunk text.
type Processor struct{}

// New creates a fingerprint processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "fingerprint"
}

// Process fingerprints every chunk.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Fingerprint = domain.Fingerprint(chunks[i].Text)
	}
	return chunks, nil
}
