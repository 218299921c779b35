package domain

import (
	"strings"
	"time"
)

// Origin distinguishes interactively supplied content from content picked up
// by the background watcher. Only frontend content is eligible for the ranking boost.
type Origin string

const (
	// OriginBackend marks sources discovered by the watcher or a scheduled cycle.
	OriginBackend Origin = "backend"

	// OriginFrontend marks sources explicitly supplied by a user.
	OriginFrontend Origin = "frontend"
)

// IsValid returns true if the origin is recognised.
func (o Origin) IsValid() bool {
	return o == OriginBackend || o == OriginFrontend
}

// String returns the string representation.
func (o Origin) String() string {
	return string(o)
}

// Segment is one ordered piece of a document, such as a PDF page or a slide.
type Segment struct {
	// Page is the 1-based page or slide number.
	Page int

	// Text is the normalised text of the segment.
	Text string
}

// Document is the decoded content of one Source.
// It is produced by the content loader and is not modified afterwards.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the identity of the originating source (file path or URL).
	Source string

	// Title is the human-readable title.
	Title string

	// Origin tags the document as frontend or backend content.
	Origin Origin

	// Segments holds the text in reading order.
	Segments []Segment

	// Metadata contains arbitrary key-value pairs (format, mime_type, ...).
	Metadata map[string]any

	// LoadedAt is when the document was decoded.
	LoadedAt time.Time
}

// Content returns all segment text joined by blank lines.
func (d *Document) Content() string {
	parts := make([]string, 0, len(d.Segments))
	for _, seg := range d.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// IsEmpty reports whether the document carries no text at all.
func (d *Document) IsEmpty() bool {
	for _, seg := range d.Segments {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// Chunk is a bounded span of text derived from a Document.
// Chunks are the unit of deduplication and the unit stored in the index.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Source is the identity of the originating source.
	Source string

	// Index is the sequential position of the chunk within its document.
	Index int

	// Page is the page or slide the chunk was cut from.
	Page int

	// Text is the chunk content.
	Text string

	// Fingerprint is the content hash of the normalised text.
	Fingerprint string

	// Origin is inherited from the document.
	Origin Origin

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// WordCount returns the number of whitespace-delimited words in the chunk.
func (c *Chunk) WordCount() int {
	return len(strings.Fields(c.Text))
}
