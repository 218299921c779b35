package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// DefaultLoadConcurrency is the number of sources decoded in parallel.
const DefaultLoadConcurrency = 4

// MIMEResolver maps a file path to the MIME type of its format.
// The second return value is false for unsupported extensions.
type MIMEResolver func(path string) (string, bool)

// LoadOptions control one loader call.
type LoadOptions struct {
	// Origin tags every loaded document.
	Origin domain.Origin

	// Force loads sources even when their fingerprint is unchanged.
	Force bool
}

// ContentLoader turns files and URLs into documents. Every source yields
// exactly one LoadOutcome; a failing source never aborts the batch.
type ContentLoader struct {
	scanner     driven.FileScanner
	fetcher     driven.URLFetcher
	registry    driven.NormaliserRegistry
	sources     driven.SourceStore
	detector    *ChangeDetector
	resolve     MIMEResolver
	concurrency int
}

// LoaderOption configures a ContentLoader.
type LoaderOption func(*ContentLoader)

// WithLoadConcurrency sets how many sources are decoded at once.
func WithLoadConcurrency(n int) LoaderOption {
	return func(l *ContentLoader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithSourceStore enables source-level change detection for files.
func WithSourceStore(sources driven.SourceStore) LoaderOption {
	return func(l *ContentLoader) {
		l.sources = sources
	}
}

// WithURLFetcher enables URL loading.
func WithURLFetcher(fetcher driven.URLFetcher) LoaderOption {
	return func(l *ContentLoader) {
		l.fetcher = fetcher
	}
}

// NewContentLoader creates a loader. The detector supplies the page cache
// used to skip unchanged URLs and may be nil.
func NewContentLoader(
	scanner driven.FileScanner,
	registry driven.NormaliserRegistry,
	resolve MIMEResolver,
	detector *ChangeDetector,
	opts ...LoaderOption,
) *ContentLoader {
	l := &ContentLoader{
		scanner:     scanner,
		registry:    registry,
		resolve:     resolve,
		detector:    detector,
		concurrency: DefaultLoadConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover returns the candidate files under folder in scan order.
func (l *ContentLoader) Discover(ctx context.Context, folder string) ([]string, error) {
	paths, err := l.scanner.Scan(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	return paths, nil
}

// LoadFiles loads paths in order. A path listed twice is loaded once.
func (l *ContentLoader) LoadFiles(ctx context.Context, paths []string, opts LoadOptions) []domain.LoadOutcome {
	return l.loadAll(ctx, paths, func(p string) string { return filepath.Clean(p) }, func(ctx context.Context, p string) domain.LoadOutcome {
		return l.loadFile(ctx, p, opts)
	})
}

// LoadURLs fetches urls in order. A URL listed twice is fetched once.
func (l *ContentLoader) LoadURLs(ctx context.Context, urls []string, opts LoadOptions) []domain.LoadOutcome {
	return l.loadAll(ctx, urls, func(u string) string { return u }, func(ctx context.Context, u string) domain.LoadOutcome {
		return l.loadURL(ctx, u, opts)
	})
}

// loadAll runs load for each unique key with bounded parallelism and
// returns the outcomes in input order.
func (l *ContentLoader) loadAll(
	ctx context.Context,
	ids []string,
	key func(string) string,
	load func(context.Context, string) domain.LoadOutcome,
) []domain.LoadOutcome {
	outcomes := make([]domain.LoadOutcome, len(ids))
	seen := make(map[string]struct{}, len(ids))

	var g errgroup.Group
	g.SetLimit(l.concurrency)

	for i, id := range ids {
		k := key(id)
		if _, dup := seen[k]; dup {
			logger.Debug("Skipping %s: already loaded this cycle", id)
			outcomes[i] = domain.LoadOutcome{Source: id, Status: domain.LoadStatusSkipped, Reason: "duplicate source"}
			continue
		}
		seen[k] = struct{}{}

		g.Go(func() error {
			outcomes[i] = load(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (l *ContentLoader) loadFile(ctx context.Context, path string, opts LoadOptions) domain.LoadOutcome {
	if err := ctx.Err(); err != nil {
		return failed(path, "cancelled", err)
	}

	mimeType, ok := l.resolve(path)
	if !ok {
		logger.Warn("Skipping %s: unsupported file type %q", path, filepath.Ext(path))
		return domain.LoadOutcome{Source: path, Status: domain.LoadStatusSkipped, Reason: "unsupported file type"}
	}

	content, err := l.scanner.Read(ctx, path)
	if err != nil {
		logger.Warn("Failed to read %s: %v", path, err)
		return failed(path, "read failed", err)
	}

	hash := domain.FingerprintBytes(content)
	if !opts.Force && l.sourceUnchanged(ctx, path, hash) {
		logger.Debug("Unchanged: %s", path)
		return domain.LoadOutcome{Source: path, Status: domain.LoadStatusUnchanged, Fingerprint: hash}
	}

	raw := &domain.RawDocument{
		Source:   path,
		MIMEType: mimeType,
		Content:  content,
		Origin:   opts.Origin,
		Metadata: map[string]any{"source": path},
	}
	outcome := l.normalise(ctx, raw)
	outcome.Fingerprint = hash
	return outcome
}

func (l *ContentLoader) loadURL(ctx context.Context, url string, opts LoadOptions) domain.LoadOutcome {
	if l.fetcher == nil {
		return failed(url, "URL loading disabled", fmt.Errorf("load %s: %w: no fetcher", url, domain.ErrFetchFailed))
	}

	raw, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		logger.Warn("Failed to load URL %s: %v", url, err)
		return failed(url, "fetch failed", err)
	}
	raw.Source = url
	raw.Origin = opts.Origin

	outcome := l.normalise(ctx, raw)
	if outcome.Status != domain.LoadStatusLoaded {
		return outcome
	}

	// Pages are compared by extracted text so markup churn does not count as a change.
	hash := domain.Fingerprint(outcome.Document.Content())
	outcome.Fingerprint = hash
	if !opts.Force && l.detector != nil && l.detector.URLUnchanged(url, hash) {
		logger.Debug("Unchanged page: %s", url)
		return domain.LoadOutcome{Source: url, Status: domain.LoadStatusUnchanged, Fingerprint: hash}
	}
	return outcome
}

// normalise decodes raw into a document outcome.
func (l *ContentLoader) normalise(ctx context.Context, raw *domain.RawDocument) domain.LoadOutcome {
	result, err := l.registry.Normalise(ctx, raw)
	if errors.Is(err, domain.ErrUnsupportedType) {
		logger.Warn("Skipping %s: no converter for %s", raw.Source, raw.MIMEType)
		return domain.LoadOutcome{Source: raw.Source, Status: domain.LoadStatusSkipped, Reason: "unsupported format"}
	}
	if err != nil {
		logger.Warn("Failed to parse %s: %v", raw.Source, err)
		return failed(raw.Source, "parse failed", err)
	}

	doc := result.Document
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.Source = raw.Source
	doc.Origin = raw.Origin
	if !doc.Origin.IsValid() {
		doc.Origin = domain.OriginBackend
	}
	if doc.LoadedAt.IsZero() {
		doc.LoadedAt = time.Now()
	}

	if doc.IsEmpty() {
		logger.Warn("Skipping %s: no text extracted", raw.Source)
		return domain.LoadOutcome{Source: raw.Source, Status: domain.LoadStatusSkipped, Reason: "no text"}
	}

	return domain.LoadOutcome{Source: raw.Source, Status: domain.LoadStatusLoaded, Document: &doc}
}

// sourceUnchanged reports whether the stored fingerprint of id equals hash.
func (l *ContentLoader) sourceUnchanged(ctx context.Context, id, hash string) bool {
	if l.sources == nil {
		return false
	}
	src, err := l.sources.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Source lookup for %s failed: %v", id, err)
		}
		return false
	}
	return src.Fingerprint == hash
}

func failed(source, reason string, err error) domain.LoadOutcome {
	return domain.LoadOutcome{Source: source, Status: domain.LoadStatusFailed, Reason: reason, Err: err}
}
