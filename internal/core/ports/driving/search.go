package driving

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// SearchService answers similarity queries over the persisted index.
type SearchService interface {
	// Search embeds the query and returns the k nearest chunks.
	// Returns domain.ErrIndexNotFound when no index has been saved.
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)

	// Stats summarises the persisted index.
	Stats(ctx context.Context) (*domain.IndexStats, error)
}
