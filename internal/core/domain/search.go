package domain

import "time"

// SearchHit is a raw nearest-neighbour match from the vector index.
type SearchHit struct {
	// Chunk is the matched chunk payload.
	Chunk Chunk

	// Distance is the squared L2 distance to the query (lower is closer).
	Distance float64
}

// SearchResult is a single similarity-search answer returned to callers.
type SearchResult struct {
	// Text is the chunk text.
	Text string `json:"text"`

	// Source is the file path or URL the chunk came from.
	Source string `json:"source"`

	// Page is the page or slide number, 0 when unknown.
	Page int `json:"page"`

	// Distance is the squared L2 distance to the query.
	Distance float64 `json:"distance"`
}

// IndexStats summarises a persisted vector index.
type IndexStats struct {
	// Version is the active on-disk version id.
	Version string `json:"version"`

	// Entries is the number of indexed chunks.
	Entries int `json:"entries"`

	// Dimensions is the vector size.
	Dimensions int `json:"dimensions"`

	// Model is the embedding model the index was built with.
	Model string `json:"model"`

	// SizeBytes is the on-disk size of the active version.
	SizeBytes int64 `json:"size_bytes"`
}

// QueryRecord is one entry of the append-only query log.
type QueryRecord struct {
	Timestamp time.Time
	Query     string
	Results   int
	TopSource string
}
