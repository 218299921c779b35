// Package postprocessors turns normalised documents into indexable chunks.
// A pipeline is an ordered list of processors built by name from a Registry;
// the default pipeline is chunker, minwords, fingerprint.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives nil chunks and should create them.
// Subsequent processors receive and may modify the chunks.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) (*driven.PipelineResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("process: %w: document is nil", domain.ErrInvalidInput)
	}

	result := &driven.PipelineResult{}

	for i, processor := range p.processors {
		var err error
		result.Chunks, err = processor.Process(ctx, doc, result.Chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		if i == 0 {
			result.Produced = len(result.Chunks)
		}
	}

	return result, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
