package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// FileScanner discovers candidate source files.
type FileScanner interface {
	// Scan returns regular, non-hidden files under root in a stable order.
	// Returns an error wrapping fs.ErrNotExist when root does not exist.
	Scan(ctx context.Context, root string) ([]string, error)

	// Read returns the file contents, retrying while the file is locked.
	Read(ctx context.Context, path string) ([]byte, error)
}

// URLFetcher retrieves web pages.
type URLFetcher interface {
	// Fetch downloads url and returns the response body as a raw document
	// typed by its Content-Type. Markup is stripped by the HTML normaliser.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}

// FileWatcher streams filesystem changes under a root.
type FileWatcher interface {
	// Watch starts watching root recursively. The channel is closed when
	// ctx is cancelled or the watcher is closed.
	Watch(ctx context.Context, root string) (<-chan domain.FileChange, error)

	// Close stops the watcher.
	Close() error
}
