package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit is used when a caller asks for zero or fewer results.
const DefaultSearchLimit = 5

// SearchService answers similarity queries from a read-only snapshot of the
// persisted index. It never writes the index and never waits for a cycle:
// the snapshot is reloaded when the on-disk version changes.
type SearchService struct {
	indexes   driven.VectorIndexStore
	embedder  driven.EmbeddingService
	indexPath string
	queryLog  driven.QueryLog

	mu       sync.Mutex
	snapshot driven.VectorIndex
	version  string
}

// SearchOption configures the search service.
type SearchOption func(*SearchService)

// WithQueryLog records every search.
func WithQueryLog(queryLog driven.QueryLog) SearchOption {
	return func(s *SearchService) {
		s.queryLog = queryLog
	}
}

// NewSearchService creates a search service over the index at indexPath.
// The embedder must produce vectors compatible with the index, usually the
// same lazy embedder the ingestor uses.
func NewSearchService(
	indexes driven.VectorIndexStore,
	embedder driven.EmbeddingService,
	indexPath string,
	opts ...SearchOption,
) *SearchService {
	s := &SearchService{
		indexes:   indexes,
		embedder:  embedder,
		indexPath: indexPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds query and returns the k nearest chunks, closest first.
// Returns domain.ErrIndexNotFound when no index has been saved yet.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: %w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultSearchLimit
	}
	logger.Debug("Query: %q (k=%d)", query, k)

	index, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dims := index.Dimensions(); dims > 0 && len(vector) != dims {
		return nil, fmt.Errorf("search: %w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(vector), dims)
	}

	hits, err := index.Search(vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domain.SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = domain.SearchResult{
			Text:     hit.Chunk.Text,
			Source:   hit.Chunk.Source,
			Page:     hit.Chunk.Page,
			Distance: hit.Distance,
		}
	}
	logger.Debug("Search returned %d results", len(results))

	s.logQuery(ctx, query, results)
	return results, nil
}

// Stats summarises the persisted index.
func (s *SearchService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	return s.indexes.Stats(ctx, s.indexPath)
}

// current returns the loaded snapshot, reloading it when a cycle has saved
// a newer version since the last call. Two saves in quick succession can
// prune the version resolved just before them, so an undecodable version is
// resolved once more before giving up.
func (s *SearchService) current(ctx context.Context) (driven.VectorIndex, error) {
	index, err := s.reload(ctx)
	if errors.Is(err, domain.ErrIndexCorrupt) {
		logger.Debug("Index version vanished while loading, retrying: %v", err)
		index, err = s.reload(ctx)
	}
	return index, err
}

func (s *SearchService) reload(ctx context.Context) (driven.VectorIndex, error) {
	version, err := s.indexes.Version(s.indexPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil && s.version == version {
		return s.snapshot, nil
	}

	index, err := s.indexes.Load(ctx, s.indexPath)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if s.snapshot != nil {
		logger.Info("Index changed, loaded version %s (%d entries)", version, index.Len())
	}
	s.snapshot = index
	s.version = version
	return index, nil
}

func (s *SearchService) logQuery(ctx context.Context, query string, results []domain.SearchResult) {
	if s.queryLog == nil {
		return
	}
	record := domain.QueryRecord{Timestamp: time.Now(), Query: query, Results: len(results)}
	if len(results) > 0 {
		record.TopSource = results[0].Source
	}
	if err := s.queryLog.Append(ctx, record); err != nil {
		logger.Warn("Failed to write query log: %v", err)
	}
}
