package domain

import "time"

// CycleRequest describes one ingestion cycle.
type CycleRequest struct {
	// Folder is the source root to scan. Empty means URLs only.
	Folder string

	// URLs are web pages to fetch.
	URLs []string

	// LoadPath is the index to extend. Defaults to SavePath.
	LoadPath string

	// SavePath is where the index is persisted.
	SavePath string

	// Origin tags every loaded document.
	Origin Origin

	// Rebuild wipes and recreates the index from the loaded documents.
	Rebuild bool

	// Benchmark logs the elapsed cycle time.
	Benchmark bool
}

// IndexPaths returns the load and save paths with defaults applied.
func (r CycleRequest) IndexPaths() (load, save string) {
	load, save = r.LoadPath, r.SavePath
	if save == "" {
		save = load
	}
	if load == "" {
		load = save
	}
	return load, save
}

// LoadStatus is the outcome of loading a single source.
type LoadStatus string

const (
	// LoadStatusLoaded means the source was decoded into a document.
	LoadStatusLoaded LoadStatus = "loaded"

	// LoadStatusUnchanged means the source fingerprint matched the last ingestion.
	LoadStatusUnchanged LoadStatus = "unchanged"

	// LoadStatusSkipped means the source was not attempted (unsupported, duplicate path).
	LoadStatusSkipped LoadStatus = "skipped"

	// LoadStatusFailed means reading, fetching or parsing failed.
	LoadStatusFailed LoadStatus = "failed"
)

// LoadOutcome is the per-source result of the content loader.
// Exactly one of Document or Err is meaningful depending on Status.
type LoadOutcome struct {
	// Source is the file path or URL.
	Source string

	// Status is the outcome class.
	Status LoadStatus

	// Document is set when Status is loaded.
	Document *Document

	// Fingerprint is the source-level content hash, when known.
	Fingerprint string

	// Reason is a short human-readable explanation for skipped or failed sources.
	Reason string

	// Err is the underlying failure for failed sources.
	Err error
}

// CycleResult is the counted outcome of one ingestion cycle.
type CycleResult struct {
	SourcesLoaded    int
	SourcesUnchanged int
	SourcesSkipped   int
	SourcesFailed    int

	ChunksProduced  int
	ChunksFiltered  int
	ChunksDuplicate int
	ChunksFailed    int
	ChunksIndexed   int

	// IndexEntries is the index size after the cycle (0 when untouched).
	IndexEntries int

	// NoOp is true when the index and fingerprint store were not touched.
	NoOp bool

	// Rebuilt is true when the index was recreated from scratch.
	Rebuilt bool

	StartedAt time.Time
	Duration  time.Duration
}

// Indexed returns the number of newly indexed chunks.
func (r *CycleResult) Indexed() int {
	return r.ChunksIndexed
}

// Skipped returns the number of sources and chunks deliberately not indexed.
func (r *CycleResult) Skipped() int {
	return r.SourcesUnchanged + r.SourcesSkipped + r.ChunksFiltered + r.ChunksDuplicate
}

// ChangeRecord is one row of the append-only change log.
type ChangeRecord struct {
	Timestamp time.Time
	Path      string
	Type      ChangeType
	Hash      string
}
