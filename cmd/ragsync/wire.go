package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/metrics/prometheus"
	storagefile "github.com/custodia-labs/ragsync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/vectorindex/flatfile"
	"github.com/custodia-labs/ragsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragsync/internal/connectors/filesystem"
	"github.com/custodia-labs/ragsync/internal/connectors/web"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/services"
	"github.com/custodia-labs/ragsync/internal/normalisers"
	csvnorm "github.com/custodia-labs/ragsync/internal/normalisers/csv"
	"github.com/custodia-labs/ragsync/internal/normalisers/docx"
	"github.com/custodia-labs/ragsync/internal/normalisers/html"
	"github.com/custodia-labs/ragsync/internal/normalisers/markdown"
	"github.com/custodia-labs/ragsync/internal/normalisers/pdf"
	"github.com/custodia-labs/ragsync/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragsync/internal/normalisers/pptx"
	"github.com/custodia-labs/ragsync/internal/postprocessors"
)

// defaultConfigDir is created under the home directory.
const defaultConfigDir = ".ragsync"

// openSettings opens config.toml in configDir. The config directory is
// also the default root for the index, logs and metadata.
func openSettings(configDir string) (cli.SettingsManager, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, defaultConfigDir)
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store, configDir), nil
}

// buildServices assembles the pipeline for one invocation.
func buildServices(_ context.Context, opts cli.BuildOptions) (*cli.Services, error) {
	s := opts.Settings

	db, err := sqlite.NewStore(s.Paths.Data)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	closers := []func() error{db.Close}

	var fingerprints driven.FingerprintStore
	switch s.Ingest.FingerprintBackend {
	case domain.FingerprintBackendSQLite:
		fingerprints = db.FingerprintStore()
	default:
		fingerprints = storagefile.NewFingerprintStore(s.Paths.Fingerprints)
	}
	sources := db.SourceStore()

	// Content loading
	detector := services.NewChangeDetector(fingerprints, s.Ingest.DedupEnabled)
	registry := normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		csvnorm.New(),
		html.New(),
		pdf.New(),
		docx.New(),
		pptx.New(),
	)
	scanner := filesystem.NewScanner()
	fetcher := web.New(web.Config{
		Timeout:   s.Fetch.Timeout,
		RateLimit: s.Fetch.RateLimit,
	})
	loader := services.NewContentLoader(scanner, registry, normalisers.MIMETypeForPath, detector,
		services.WithSourceStore(sources),
		services.WithURLFetcher(fetcher),
	)

	// Chunking
	processors := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(processors)
	pipeline, err := postprocessors.BuildPipeline(processors, domain.PipelineConfigFor(s.Chunking))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Embedding is connected on first use so commands that never embed
	// work without a reachable provider.
	embeddingSettings := s.Embedding
	embedder := services.NewLazyEmbedder(func(ctx context.Context) (driven.EmbeddingService, error) {
		return embedding.NewValidated(ctx, embeddingSettings)
	})
	closers = append(closers, embedder.Close)

	indexes := flatfile.NewStore()
	metrics := prometheus.New()

	ingestOpts := []services.IngestorOption{
		services.WithObserver(metrics),
		services.WithIngestSourceStore(sources),
	}
	if opts.Progress != nil {
		ingestOpts = append(ingestOpts, services.WithProgress(opts.Progress))
	}
	ingestor := services.NewIngestor(services.IngestConfig{
		IndexPath:     s.Paths.Index,
		BoostEnabled:  s.Ingest.BoostEnabled,
		BoostFactor:   s.Ingest.BoostFactor,
		CreateMissing: s.Watch.CreateMissing,
	}, loader, pipeline, detector, embedder, indexes, ingestOpts...)

	watcher := filesystem.NewWatcher(s.Watch.IgnoreSuffixes)
	closers = append(closers, watcher.Close)

	scheduler := services.NewScheduler(opts.Scheduler, services.WatchConfig{
		Folder:        s.Watch.Folder,
		URLs:          s.Watch.URLs,
		IndexPath:     s.Paths.Index,
		Debounce:      s.Watch.Debounce,
		CreateMissing: s.Watch.CreateMissing,
	}, db.SchedulerStore(), ingestor,
		services.WithWatcher(watcher),
		services.WithSweep(scanner, sources, normalisers.MIMETypeForPath),
		services.WithChangeLog(storagefile.NewChangeLog(s.Paths.ChangeLog)),
		services.WithSchedulerObserver(metrics),
	)

	search := services.NewSearchService(indexes, embedder, s.Paths.Index,
		services.WithQueryLog(storagefile.NewQueryLog(s.Paths.QueryLog)),
	)

	return &cli.Services{
		Ingestor:  ingestor,
		Scheduler: scheduler,
		Search:    search,
		Tasks:     db.SchedulerStore(),
		Metrics:   metrics,
		Close: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}
