// Package minwords drops chunks too short to be worth indexing.
package minwords

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// DefaultMinWords is the default minimum whitespace-delimited word count.
const DefaultMinWords = 20

// Processor removes chunks with fewer than the minimum number of words.
// A chunk with exactly the minimum is kept.
type Processor struct {
	minWords int
}

// New creates a filter. A negative minimum falls back to the default.
func New(minWords int) *Processor {
	if minWords < 0 {
		minWords = DefaultMinWords
	}
	return &Processor{minWords: minWords}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "minwords"
}

// MinWords returns the configured threshold.
func (p *Processor) MinWords() int {
	return p.minWords
}

// Process filters chunks in place, preserving order.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := chunks[:0]
	for _, c := range chunks {
		if c.WordCount() >= p.minWords {
			kept = append(kept, c)
		}
	}
	return kept, nil
}
