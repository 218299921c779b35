package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHash is the built-in deterministic feature-hashing embedder.
	EmbeddingProviderHash EmbeddingProvider = "hash"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or any compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHash, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHash:
		return "Feature hashing (offline, deterministic)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// FingerprintBackend selects where the set of indexed content hashes lives.
type FingerprintBackend string

// Available fingerprint backends.
const (
	// FingerprintBackendFile keeps the set in a JSON file next to the index.
	FingerprintBackendFile FingerprintBackend = "file"

	// FingerprintBackendSQLite keeps the set in the metadata database.
	FingerprintBackendSQLite FingerprintBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b FingerprintBackend) IsValid() bool {
	return b == FingerprintBackendFile || b == FingerprintBackendSQLite
}

// PathSettings holds the filesystem layout under the root directory.
type PathSettings struct {
	// Root is the base directory (default ~/.ragsync).
	Root string

	// Index is the vector index directory.
	Index string

	// Fingerprints is the fingerprint set file (file backend only).
	Fingerprints string

	// ChangeLog is the append-only CSV of observed file changes.
	ChangeLog string

	// QueryLog is the append-only CSV of similarity searches.
	QueryLog string

	// Data is the metadata database directory.
	Data string
}

// ChunkingSettings holds chunker configuration. Sizes are in characters.
type ChunkingSettings struct {
	Size     int
	Overlap  int
	MinWords int
}

// IngestSettings holds deduplication and ranking options.
type IngestSettings struct {
	// DedupEnabled skips chunks whose fingerprint is already indexed.
	// Disabling it is a debugging override.
	DedupEnabled bool

	// FingerprintBackend selects the fingerprint store.
	FingerprintBackend FingerprintBackend

	// BoostEnabled scales frontend vectors by BoostFactor.
	BoostEnabled bool

	// BoostFactor is the frontend vector scale (default 1.05).
	BoostFactor float64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the embedding vector size. Zero means the model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// FetchSettings holds URL loader configuration.
type FetchSettings struct {
	// Timeout bounds each request.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64
}

// WatchSettings holds watch scheduler configuration.
type WatchSettings struct {
	// Folder is the monitored document tree.
	Folder string

	// URLs are fetched on every cycle.
	URLs []string

	// SweepInterval is the periodic fallback rescan interval.
	SweepInterval time.Duration

	// PollInterval triggers a cycle unconditionally. Zero disables polling.
	PollInterval time.Duration

	// Debounce delays a trigger until events stop arriving.
	Debounce time.Duration

	// IgnoreSuffixes lists transient file suffixes that never trigger a cycle.
	IgnoreSuffixes []string

	// CreateMissing creates the folder when it does not exist.
	CreateMissing bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Paths     PathSettings
	Chunking  ChunkingSettings
	Ingest    IngestSettings
	Embedding EmbeddingSettings
	Fetch     FetchSettings
	Watch     WatchSettings
}

// DefaultIgnoreSuffixes are partial-download and editor temp file suffixes.
func DefaultIgnoreSuffixes() []string {
	return []string{".crdownload", ".part", ".partial", ".download", ".tmp", "~"}
}

// DefaultAppSettings returns settings with sensible defaults rooted at root.
func DefaultAppSettings(root string) AppSettings {
	return AppSettings{
		Paths: PathSettings{
			Root:         root,
			Index:        filepath.Join(root, "index"),
			Fingerprints: filepath.Join(root, "fingerprints.json"),
			ChangeLog:    filepath.Join(root, "logs", "file_change_log.csv"),
			QueryLog:     filepath.Join(root, "logs", "query_logs.csv"),
			Data:         filepath.Join(root, "data"),
		},
		Chunking: ChunkingSettings{
			Size:     500,
			Overlap:  50,
			MinWords: 20,
		},
		Ingest: IngestSettings{
			DedupEnabled:       true,
			FingerprintBackend: FingerprintBackendFile,
			BoostEnabled:       false,
			BoostFactor:        1.05,
		},
		Embedding: EmbeddingSettings{
			Provider: EmbeddingProviderHash,
			Model:    DefaultEmbeddingModels()[EmbeddingProviderHash],
		},
		Fetch: FetchSettings{
			Timeout:   10 * time.Second,
			RateLimit: 2,
		},
		Watch: WatchSettings{
			Folder:         filepath.Join(root, "documents"),
			SweepInterval:  12 * time.Hour,
			Debounce:       500 * time.Millisecond,
			IgnoreSuffixes: DefaultIgnoreSuffixes(),
		},
	}
}

// Validate checks the settings for values the pipeline cannot run with.
func (s *AppSettings) Validate() error {
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, size)", ErrInvalidInput)
	}
	if s.Chunking.MinWords < 0 {
		return fmt.Errorf("%w: minimum words must not be negative", ErrInvalidInput)
	}
	if !s.Ingest.FingerprintBackend.IsValid() {
		return fmt.Errorf("%w: unknown fingerprint backend %q", ErrInvalidInput, s.Ingest.FingerprintBackend)
	}
	if s.Ingest.BoostFactor <= 0 {
		return fmt.Errorf("%w: boost factor must be positive", ErrInvalidInput)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Paths.Index == "" {
		return fmt.Errorf("%w: index path is required", ErrInvalidInput)
	}
	return nil
}

// AllEmbeddingProviders returns all supported embedding providers.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderHash,
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderHash:   "feature-hash-384",
		EmbeddingProviderOllama: "nomic-embed-text",
		EmbeddingProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"feature-hash-384": 384,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the chunking pipeline for the given settings:
// split into windows, drop short chunks, stamp fingerprints.
func PipelineConfigFor(c ChunkingSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker", "minwords", "fingerprint"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": c.Size,
				"overlap":    c.Overlap,
			},
			"minwords": {
				"min_words": c.MinWords,
			},
		},
	}
}
