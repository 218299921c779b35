// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Metadata keys set on every chunk.
const (
	MetaChunkIndex = "chunk_index"
	MetaPage       = "page"
	MetaSnippet    = "rag_snippet"
)

// Processor splits document segments into overlapping character windows.
// Sizes count runes, not bytes. A window that would end mid-word is pulled
// back to the last whitespace in its second half, so the same input always
// yields the same boundaries.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits every segment of the document into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Chunk indexes run sequentially across the whole document.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	index := 0

	for _, seg := range doc.Segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, text := range p.Split(seg.Text) {
			chunks = append(chunks, p.newChunk(doc, seg.Page, index, text))
			index++
		}
	}

	return chunks, nil
}

// Split cuts text into trimmed, non-empty windows.
func (p *Processor) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < n {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = p.wordBoundary(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return out
}

// wordBoundary moves end back to just after the last whitespace rune in the
// second half of the window. It returns end unchanged when there is none.
func (p *Processor) wordBoundary(runes []rune, start, end int) int {
	if unicode.IsSpace(runes[end]) {
		return end
	}
	floor := start + p.chunkSize/2
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

func (p *Processor) newChunk(doc *domain.Document, page, index int, text string) domain.Chunk {
	metadata := make(map[string]any, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	metadata[MetaChunkIndex] = index
	metadata[MetaPage] = page
	metadata[MetaSnippet] = text

	return domain.Chunk{
		ID:         chunkID(doc.Source, index, text),
		DocumentID: doc.ID,
		Source:     doc.Source,
		Index:      index,
		Page:       page,
		Text:       text,
		Origin:     doc.Origin,
		Metadata:   metadata,
	}
}

// chunkID derives a stable id from the chunk's position and content, so an
// edited source never reuses the id of an entry it no longer matches.
func chunkID(source string, index int, text string) string {
	name := fmt.Sprintf("%s#%d#%s", source, index, domain.Fingerprint(text))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
