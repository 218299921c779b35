// Package domain defines the core business entities for ragsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A watched file or URL with its last-seen fingerprint
//   - RawDocument: Opaque bytes read from a file or fetched from a URL
//   - Document: Decoded text segments (pages, slides) of one source
//   - Chunk: A bounded span of text, the unit of deduplication and indexing
//   - SearchHit: An indexed chunk returned by a similarity query
//   - CycleResult: The counted outcome of one ingestion cycle
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
