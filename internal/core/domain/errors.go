package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file extension or MIME type with no converter.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service could not be initialised.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrIndexNotFound indicates no persisted index exists at the given path.
	// Readers treat this as a degraded, non-fatal state.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrIndexSave indicates the index could not be persisted.
	// The previous version on disk remains the last known-good state.
	ErrIndexSave = errors.New("vector index save failed")

	// ErrIndexCorrupt indicates a persisted index could not be decoded.
	ErrIndexCorrupt = errors.New("vector index corrupt")

	// ErrDimensionMismatch indicates a vector whose size differs from the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// Ingestion Errors.

	// ErrNoDocuments indicates a rebuild was requested without any documents.
	ErrNoDocuments = errors.New("no documents to build index from")

	// ErrCycleInProgress indicates an ingestion cycle is already running.
	ErrCycleInProgress = errors.New("ingestion cycle in progress")

	// ErrFetchFailed indicates a URL could not be fetched.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrWatcherClosed indicates the filesystem watcher has been closed.
	ErrWatcherClosed = errors.New("watcher closed")
)
