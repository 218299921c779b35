package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// SourceStore persists the last-seen fingerprint of each source.
type SourceStore interface {
	// Get retrieves a source by path or URL.
	// Returns domain.ErrNotFound if the source has never been ingested.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Save stores or updates a source.
	Save(ctx context.Context, source domain.Source) error

	// List returns all sources ordered by ID.
	List(ctx context.Context) ([]domain.Source, error)
}
