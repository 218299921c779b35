package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

func TestLazyEmbedder_InitialisesOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	svc := newMockEmbeddingService(4)

	lazy := NewLazyEmbedder(func(_ context.Context) (driven.EmbeddingService, error) {
		calls.Add(1)
		<-release
		return svc, nil
	})
	assert.False(t, lazy.Initialised())

	const callers = 16
	got := make([]driven.EmbeddingService, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := lazy.Get(context.Background())
			assert.NoError(t, err)
			got[i] = s
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, s := range got {
		assert.Same(t, svc, s)
	}
	assert.True(t, lazy.Initialised())
}

func TestLazyEmbedder_RetriesAfterFailure(t *testing.T) {
	attempts := 0
	lazy := NewLazyEmbedder(func(_ context.Context) (driven.EmbeddingService, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model server down")
		}
		return newMockEmbeddingService(4), nil
	})

	_, err := lazy.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "model server down")
	assert.False(t, lazy.Initialised())

	vec, err := lazy.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 2, attempts)
}

func TestLazyEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		factory EmbedderFactory
	}{
		{"nil factory", nil},
		{"nil service", func(context.Context) (driven.EmbeddingService, error) { return nil, nil }},
		{"factory error", func(context.Context) (driven.EmbeddingService, error) {
			return nil, domain.ErrEmbeddingUnavailable
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lazy := NewLazyEmbedder(tt.factory)

			_, err := lazy.EmbedBatch(context.Background(), []string{"a"})
			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
			assert.ErrorIs(t, lazy.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
			assert.Zero(t, lazy.Dimensions())
			assert.Empty(t, lazy.ModelName())
			assert.NoError(t, lazy.Close())
		})
	}
}

func TestLazyEmbedder_Delegates(t *testing.T) {
	svc := newMockEmbeddingService(3)
	lazy := NewLazyEmbedder(func(context.Context) (driven.EmbeddingService, error) { return svc, nil })

	assert.Equal(t, 3, lazy.Dimensions())
	assert.Equal(t, "mock-embed", lazy.ModelName())
	require.NoError(t, lazy.Ping(context.Background()))

	vecs, err := lazy.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)

	require.NoError(t, lazy.Close())
	assert.True(t, svc.closed.Load())
	assert.False(t, lazy.Initialised())
}
