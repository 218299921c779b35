// Package embedding selects and constructs the embedding service adapter
// named by the application settings.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// New creates the embedding service for the configured provider.
func New(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	switch settings.Provider {
	case domain.EmbeddingProviderHash:
		return hash.NewEmbeddingService(hash.Config{
			Dimensions: dimensions,
			Model:      settings.Model,
		}), nil

	case domain.EmbeddingProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.EmbeddingProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// NewValidated creates the embedding service and checks it is reachable.
// The returned error wraps domain.ErrEmbeddingUnavailable.
func NewValidated(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: %s at %s: %w. Check the embedding settings with 'ragsync config list'",
			domain.ErrEmbeddingUnavailable, settings.Provider, settings.BaseURL, err)
	}
	return svc, nil
}
