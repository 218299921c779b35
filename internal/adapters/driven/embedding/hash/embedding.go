// Package hash provides a deterministic, offline embedding service based on
// feature hashing. Tokens are lowercased letter or digit runs; each token is
// hashed into a fixed number of buckets with a signed weight and the resulting
// vector is L2-normalised. Identical text always produces identical vectors.
package hash

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultDimensions = 384
	DefaultModel      = "feature-hash-384"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

// Config holds configuration for the feature-hashing embedder.
type Config struct {
	// Dimensions is the number of hash buckets (default: 384).
	Dimensions int

	// Model is the reported model name (default: feature-hash-384).
	Model string
}

// EmbeddingService embeds text by hashing tokens and bigrams into buckets.
type EmbeddingService struct {
	dimensions int
	model      string

	mu     sync.RWMutex
	closed bool
}

// NewEmbeddingService creates a new feature-hashing embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
		if cfg.Dimensions != DefaultDimensions {
			cfg.Model = fmt.Sprintf("feature-hash-%d", cfg.Dimensions)
		}
	}
	return &EmbeddingService{
		dimensions: cfg.Dimensions,
		model:      cfg.Model,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.vector(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		vectors[i] = s.vector(text)
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the reported model name.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds unless the service has been closed.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Close marks the service as closed.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *EmbeddingService) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("hash: %w: service closed", domain.ErrEmbeddingUnavailable)
	}
	return nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tokens := Tokenize(text)

	for i, tok := range tokens {
		s.add(acc, tok, 1.0)
		if i > 0 {
			// Bigrams keep some word-order signal.
			s.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out
	}
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

func (s *EmbeddingService) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// Tokenize lowercases text and splits it into letter and digit runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
