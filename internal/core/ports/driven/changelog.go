package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// ChangeLog is an append-only record of observed file changes.
// It is written for operators and never read back by the pipeline.
type ChangeLog interface {
	Append(ctx context.Context, record domain.ChangeRecord) error
}

// QueryLog is an append-only record of similarity searches.
type QueryLog interface {
	Append(ctx context.Context, record domain.QueryRecord) error
}
