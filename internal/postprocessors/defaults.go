package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragsync/internal/postprocessors/fingerprint"
	"github.com/custodia-labs/ragsync/internal/postprocessors/minwords"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("minwords", buildMinWords)
	r.Register("fingerprint", buildFingerprint)
}

// BuildPipeline constructs the pipeline described by cfg, in order.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("build pipeline: %w: no processors", domain.ErrInvalidInput)
	}

	pipeline := NewPipeline()
	for _, name := range cfg.Processors {
		processor, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		pipeline.Add(processor)
	}
	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 500)
//   - overlap (int): Overlapping characters between chunks (default: 50)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "chunk_size"); ok {
		if size <= 0 {
			return nil, fmt.Errorf("chunker: %w: chunk_size must be positive", domain.ErrInvalidInput)
		}
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// buildMinWords creates the short chunk filter.
// Supported config keys:
//   - min_words (int): Minimum word count (default: 20)
func buildMinWords(cfg map[string]any) (driven.PostProcessor, error) {
	limit := minwords.DefaultMinWords
	if v, ok := getIntFromConfig(cfg, "min_words"); ok {
		limit = v
	}
	return minwords.New(limit), nil
}

func buildFingerprint(_ map[string]any) (driven.PostProcessor, error) {
	return fingerprint.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
// The second return value is false when the key is absent or not numeric.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
