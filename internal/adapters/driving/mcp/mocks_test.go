package mcp

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results  []domain.SearchResult
	stats    *domain.IndexStats
	err      error
	statsErr error

	lastQuery string
	lastK     int
}

func (m *mockSearchService) Search(_ context.Context, query string, k int) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastK = k
	return m.results, m.err
}

func (m *mockSearchService) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.statsErr
}

// mockIngestor is a mock implementation of driving.Ingestor.
type mockIngestor struct {
	status *driving.IngestStatus
	err    error
}

func (m *mockIngestor) RunCycle(_ context.Context, _ domain.CycleRequest) (*domain.CycleResult, error) {
	return &domain.CycleResult{}, m.err
}

func (m *mockIngestor) Status(_ context.Context) (*driving.IngestStatus, error) {
	return m.status, m.err
}
