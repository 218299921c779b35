package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure LazyEmbedder implements the interface.
var _ driven.EmbeddingService = (*LazyEmbedder)(nil)

// EmbedderFactory builds the underlying embedding service.
type EmbedderFactory func(ctx context.Context) (driven.EmbeddingService, error)

// LazyEmbedder defers construction of an embedding service until first use
// and then shares the one instance between all callers. Concurrent first
// callers block until a single initialisation finishes. A failed
// initialisation is returned to every waiting caller and retried on the
// next call.
type LazyEmbedder struct {
	factory EmbedderFactory

	ready atomic.Pointer[embedderHolder]
	mu    sync.Mutex
	inits atomic.Int32
}

type embedderHolder struct {
	svc driven.EmbeddingService
}

// NewLazyEmbedder creates a lazy embedder around factory.
func NewLazyEmbedder(factory EmbedderFactory) *LazyEmbedder {
	return &LazyEmbedder{factory: factory}
}

// Get returns the shared service, initialising it if needed.
func (e *LazyEmbedder) Get(ctx context.Context) (driven.EmbeddingService, error) {
	if h := e.ready.Load(); h != nil {
		return h.svc, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if h := e.ready.Load(); h != nil {
		return h.svc, nil
	}
	if e.factory == nil {
		return nil, fmt.Errorf("initialise embedder: %w: no factory", domain.ErrEmbeddingUnavailable)
	}

	started := time.Now()
	svc, err := e.factory(ctx)
	e.inits.Add(1)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return nil, fmt.Errorf("initialise embedder: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("initialise embedder: %w: factory returned nil", domain.ErrEmbeddingUnavailable)
	}

	logger.Debug("Embedding model %s ready (%d dims) in %v", svc.ModelName(), svc.Dimensions(), time.Since(started))
	e.ready.Store(&embedderHolder{svc: svc})
	return svc, nil
}

// Initialised reports whether the service has been built.
func (e *LazyEmbedder) Initialised() bool {
	return e.ready.Load() != nil
}

// Embed generates a vector embedding for the given text.
func (e *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	svc, err := e.Get(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (e *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	svc, err := e.Get(ctx)
	if err != nil {
		return nil, err
	}
	return svc.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding vector size.
// Returns 0 when the service cannot be initialised.
func (e *LazyEmbedder) Dimensions() int {
	svc, err := e.Get(context.Background())
	if err != nil {
		return 0
	}
	return svc.Dimensions()
}

// ModelName returns the name of the embedding model.
// Returns an empty string when the service cannot be initialised.
func (e *LazyEmbedder) ModelName() string {
	svc, err := e.Get(context.Background())
	if err != nil {
		return ""
	}
	return svc.ModelName()
}

// Ping initialises the service if needed and checks it is reachable.
func (e *LazyEmbedder) Ping(ctx context.Context) error {
	svc, err := e.Get(ctx)
	if err != nil {
		return err
	}
	return svc.Ping(ctx)
}

// Close releases the underlying service if it was built.
// A later call initialises a fresh one.
func (e *LazyEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.ready.Swap(nil)
	if h == nil {
		return nil
	}
	return h.svc.Close()
}
