package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// DefaultEmbedBatchSize is the number of chunks sent per embedding call.
const DefaultEmbedBatchSize = 64

// IngestConfig holds orchestrator options.
type IngestConfig struct {
	// IndexPath is the default index location, used by Status and by
	// requests without explicit paths.
	IndexPath string

	// BoostEnabled scales frontend vectors by BoostFactor.
	BoostEnabled bool

	// BoostFactor is the frontend vector scale.
	BoostFactor float64

	// EmbedBatchSize is the number of chunks per embedding call.
	EmbedBatchSize int

	// CreateMissing creates a missing source folder instead of only warning.
	CreateMissing bool
}

// ProgressFunc reports embedding progress as chunks done out of total.
type ProgressFunc func(done, total int)

// Ingestor runs ingestion cycles: discover, load, chunk, deduplicate, embed,
// merge into the vector index and persist. It exclusively owns the index and
// fingerprint store while a cycle runs; a second concurrent cycle is refused.
type Ingestor struct {
	loader   *ContentLoader
	pipeline driven.PostProcessorPipeline
	detector *ChangeDetector
	embedder driven.EmbeddingService
	indexes  driven.VectorIndexStore
	sources  driven.SourceStore
	observer driven.CycleObserver
	progress ProgressFunc
	config   IngestConfig

	cycleMu sync.Mutex

	// Status tracking
	mu         sync.RWMutex
	running    bool
	lastResult *domain.CycleResult
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithObserver sets the metrics sink.
func WithObserver(observer driven.CycleObserver) IngestorOption {
	return func(o *Ingestor) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithProgress sets a callback invoked after every embedding batch.
func WithProgress(fn ProgressFunc) IngestorOption {
	return func(o *Ingestor) {
		o.progress = fn
	}
}

// WithIngestSourceStore records the fingerprint of every successfully
// ingested source so unchanged files are skipped next time.
func WithIngestSourceStore(sources driven.SourceStore) IngestorOption {
	return func(o *Ingestor) {
		o.sources = sources
	}
}

// NewIngestor creates an orchestrator.
func NewIngestor(
	config IngestConfig,
	loader *ContentLoader,
	pipeline driven.PostProcessorPipeline,
	detector *ChangeDetector,
	embedder driven.EmbeddingService,
	indexes driven.VectorIndexStore,
	opts ...IngestorOption,
) *Ingestor {
	if config.EmbedBatchSize <= 0 {
		config.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if config.BoostFactor <= 0 {
		config.BoostFactor = 1
	}

	o := &Ingestor{
		loader:   loader,
		pipeline: pipeline,
		detector: detector,
		embedder: embedder,
		indexes:  indexes,
		observer: nopObserver{},
		config:   config,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunCycle runs one ingestion cycle. It returns domain.ErrCycleInProgress
// when another cycle holds the ingestor. A failed index save is returned
// wrapped in domain.ErrIndexSave together with the counts so far.
func (o *Ingestor) RunCycle(ctx context.Context, req domain.CycleRequest) (*domain.CycleResult, error) {
	if !o.cycleMu.TryLock() {
		return nil, domain.ErrCycleInProgress
	}
	defer o.cycleMu.Unlock()

	o.setRunning(true)
	result, err := o.runCycle(ctx, req)
	o.finish(result)

	o.observer.ObserveCycle(result, err)
	if result != nil && req.Benchmark {
		logger.Info("Cycle finished in %v", result.Duration.Round(time.Millisecond))
	}
	return result, err
}

// Status returns the state of the ingestor and its default index.
func (o *Ingestor) Status(ctx context.Context) (*driving.IngestStatus, error) {
	o.mu.RLock()
	status := &driving.IngestStatus{Running: o.running}
	if o.lastResult != nil {
		last := *o.lastResult
		status.LastResult = &last
	}
	o.mu.RUnlock()

	count, err := o.detector.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count fingerprints: %w", err)
	}
	status.Fingerprints = count

	if o.sources != nil {
		sources, err := o.sources.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		status.Sources = len(sources)
	}

	if o.config.IndexPath != "" {
		stats, err := o.indexes.Stats(ctx, o.config.IndexPath)
		switch {
		case err == nil:
			status.Index = stats
		case errors.Is(err, domain.ErrIndexNotFound):
		default:
			return nil, fmt.Errorf("index stats: %w", err)
		}
	}

	return status, nil
}

// cycleState carries per-cycle bookkeeping between steps.
type cycleState struct {
	result *domain.CycleResult
	loaded []domain.LoadOutcome
	failed map[string]bool
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *Ingestor) runCycle(ctx context.Context, req domain.CycleRequest) (*domain.CycleResult, error) {
	st := &cycleState{
		result: &domain.CycleResult{StartedAt: time.Now()},
		failed: make(map[string]bool),
	}
	result := st.result
	defer func() { result.Duration = time.Since(result.StartedAt) }()

	loadPath, savePath := req.IndexPaths()
	if savePath == "" {
		loadPath, savePath = o.config.IndexPath, o.config.IndexPath
	}
	if savePath == "" {
		return result, fmt.Errorf("run cycle: %w: no index path", domain.ErrInvalidInput)
	}
	origin := req.Origin
	if !origin.IsValid() {
		origin = domain.OriginBackend
	}

	// The fingerprint set and source records describe the configured index.
	// A cycle against any other index rereads every source and deduplicates
	// against that index's own entries.
	bound := o.boundTo(loadPath, savePath)
	if !bound {
		logger.Info("Index %s is not the configured index, deduplicating against its own entries", savePath)
	}

	logger.Section("Ingestion Cycle")
	logger.Debug("Folder=%q URLs=%d index=%s rebuild=%v", req.Folder, len(req.URLs), savePath, req.Rebuild)

	// 1. Resolve the source folder
	var paths []string
	if req.Folder != "" {
		exists, err := o.resolveFolder(req.Folder)
		if err != nil {
			return result, err
		}
		if !exists {
			logger.Warn("Source folder %s does not exist, nothing to ingest", req.Folder)
			result.NoOp = true
			return result, nil
		}
		paths, err = o.loader.Discover(ctx, req.Folder)
		if err != nil {
			return result, err
		}
		logger.Debug("Discovered %d files in %s", len(paths), req.Folder)
	}

	// 2. Load documents
	opts := LoadOptions{Origin: origin, Force: req.Rebuild || !bound}
	outcomes := o.loader.LoadFiles(ctx, paths, opts)
	outcomes = append(outcomes, o.loader.LoadURLs(ctx, req.URLs, opts)...)
	docs := o.tally(st, outcomes)

	if req.Rebuild && len(docs) == 0 {
		return result, fmt.Errorf("rebuild index: %w", domain.ErrNoDocuments)
	}

	// 3. Chunk documents
	var chunks []domain.Chunk
	for _, doc := range docs {
		processed, err := o.pipeline.Process(ctx, doc)
		if err != nil {
			logger.Warn("Failed to chunk %s: %v", doc.Source, err)
			st.failed[doc.Source] = true
			result.SourcesLoaded--
			result.SourcesFailed++
			continue
		}
		result.ChunksProduced += processed.Produced
		result.ChunksFiltered += processed.Dropped()
		chunks = append(chunks, processed.Chunks...)
	}
	logger.Debug("Chunked %d documents into %d chunks (%d below minimum length)",
		len(docs), len(chunks), result.ChunksFiltered)

	// 4. Drop chunks that are already indexed
	detector := o.detector
	if req.Rebuild {
		detector = NewChangeDetector(nil, o.detector.DedupEnabled())
	} else if !bound {
		seeded, err := o.detectorFor(ctx, loadPath)
		if err != nil {
			return result, err
		}
		detector = seeded
	}
	fresh, duplicates, err := detector.Filter(ctx, chunks)
	if err != nil {
		return result, fmt.Errorf("deduplicate chunks: %w", err)
	}
	result.ChunksDuplicate = duplicates

	// 5. Stop when there is nothing new
	if len(fresh) == 0 {
		result.NoOp = true
		if bound {
			o.recordSources(ctx, st)
		}
		o.logSummary(result)
		return result, nil
	}

	// 6. Embed
	embedded, vectors := o.embed(ctx, st, fresh)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embedded) == 0 {
		logger.Error("Every chunk failed to embed; the index was not changed")
		result.NoOp = true
		o.logSummary(result)
		return result, nil
	}

	// 7. Merge into the vector index and save
	index, err := o.openIndex(ctx, loadPath, req.Rebuild, len(vectors[0]))
	if err != nil {
		return result, err
	}
	if err := index.Add(embedded, vectors); err != nil {
		return result, fmt.Errorf("add to index: %w", err)
	}
	if err := o.indexes.Save(ctx, index, savePath); err != nil {
		if !errors.Is(err, domain.ErrIndexSave) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexSave, err)
		}
		logger.Error("Index save failed, the previous version remains active: %v", err)
		return result, err
	}
	result.ChunksIndexed = len(embedded)
	result.IndexEntries = index.Len()
	result.Rebuilt = req.Rebuild
	o.observer.ObserveIndexSize(index.Len())

	// 8. Record fingerprints, only after the index is durable
	if !bound {
		o.logSummary(result)
		return result, nil
	}
	hashes := make([]string, len(embedded))
	for i, c := range embedded {
		hashes[i] = c.Fingerprint
	}
	if err := o.detector.Commit(ctx, hashes, req.Rebuild); err != nil {
		logger.Warn("Index saved but fingerprints were not: %v (the chunks will be re-indexed next cycle)", err)
	} else {
		o.recordSources(ctx, st)
	}

	o.logSummary(result)
	return result, nil
}

// boundTo reports whether a cycle reading loadPath and writing savePath
// works on the configured index.
func (o *Ingestor) boundTo(loadPath, savePath string) bool {
	if o.config.IndexPath == "" {
		return true
	}
	return samePath(loadPath, o.config.IndexPath) && samePath(savePath, o.config.IndexPath)
}

// detectorFor returns a detector seeded with the fingerprints of the index
// at path, empty when no index exists there yet.
func (o *Ingestor) detectorFor(ctx context.Context, path string) (*ChangeDetector, error) {
	var hashes []string
	index, err := o.indexes.Load(ctx, path)
	switch {
	case err == nil:
		hashes = index.Fingerprints()
	case errors.Is(err, domain.ErrIndexNotFound):
	default:
		return nil, fmt.Errorf("load index: %w", err)
	}
	logger.Debug("Seeded %d fingerprints from %s", len(hashes), path)
	return NewChangeDetector(newFingerprintSet(hashes), o.detector.DedupEnabled()), nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// resolveFolder reports whether folder exists, creating it when configured.
func (o *Ingestor) resolveFolder(folder string) (bool, error) {
	info, err := os.Stat(folder)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("resolve folder %s: %w: not a directory", folder, domain.ErrInvalidInput)
		}
		return true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("resolve folder %s: %w", folder, err)
	}
	if o.config.CreateMissing {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			logger.Warn("Could not create source folder %s: %v", folder, err)
		} else {
			logger.Info("Created missing source folder %s", folder)
		}
	}
	return false, nil
}

// tally counts load outcomes and returns the loaded documents in order.
func (o *Ingestor) tally(st *cycleState, outcomes []domain.LoadOutcome) []*domain.Document {
	var docs []*domain.Document
	for _, out := range outcomes {
		switch out.Status {
		case domain.LoadStatusLoaded:
			st.result.SourcesLoaded++
			st.loaded = append(st.loaded, out)
			docs = append(docs, out.Document)
		case domain.LoadStatusUnchanged:
			st.result.SourcesUnchanged++
		case domain.LoadStatusSkipped:
			st.result.SourcesSkipped++
		case domain.LoadStatusFailed:
			st.result.SourcesFailed++
		}
	}
	logger.Debug("Loaded %d sources (%d unchanged, %d skipped, %d failed)",
		st.result.SourcesLoaded, st.result.SourcesUnchanged, st.result.SourcesSkipped, st.result.SourcesFailed)
	return docs
}

// embed vectorises chunks in batches. A failed batch is retried chunk by
// chunk so one bad chunk only fails itself. Returned chunks and vectors are
// aligned and keep the input order.
func (o *Ingestor) embed(ctx context.Context, st *cycleState, chunks []domain.Chunk) ([]domain.Chunk, [][]float32) {
	kept := make([]domain.Chunk, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	total := len(chunks)

	for start := 0; start < total; start += o.config.EmbedBatchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+o.config.EmbedBatchSize, total)
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		began := time.Now()
		vecs, err := o.embedder.EmbedBatch(ctx, texts)
		o.observer.ObserveEmbedding(len(batch), time.Since(began))
		if err == nil && len(vecs) != len(batch) {
			err = fmt.Errorf("got %d vectors for %d texts", len(vecs), len(batch))
		}

		if err == nil {
			for i, c := range batch {
				kept = append(kept, c)
				vectors = append(vectors, o.boost(c, vecs[i]))
			}
		} else {
			logger.Warn("Batch embedding failed, embedding %d chunks one by one: %v", len(batch), err)
			for _, c := range batch {
				vec, err := o.embedder.Embed(ctx, c.Text)
				if err != nil {
					logger.Warn("Failed to embed chunk %d of %s: %v", c.Index, c.Source, err)
					st.failed[c.Source] = true
					st.result.ChunksFailed++
					continue
				}
				kept = append(kept, c)
				vectors = append(vectors, o.boost(c, vec))
			}
		}

		if o.progress != nil {
			o.progress(end, total)
		}
	}

	return kept, vectors
}

// boost scales frontend vectors when the ranking boost is enabled.
func (o *Ingestor) boost(c domain.Chunk, vec []float32) []float32 {
	if !o.config.BoostEnabled || c.Origin != domain.OriginFrontend || o.config.BoostFactor == 1 {
		return vec
	}
	factor := float32(o.config.BoostFactor)
	scaled := make([]float32, len(vec))
	for i, v := range vec {
		scaled[i] = v * factor
	}
	return scaled
}

// openIndex loads the index at path, or creates one when none exists or a
// rebuild was requested.
func (o *Ingestor) openIndex(ctx context.Context, path string, rebuild bool, dims int) (driven.VectorIndex, error) {
	model := o.embedder.ModelName()
	if rebuild {
		logger.Info("Rebuilding index from scratch")
		return o.indexes.Create(dims, model), nil
	}

	index, err := o.indexes.Load(ctx, path)
	if errors.Is(err, domain.ErrIndexNotFound) {
		logger.Info("No index at %s, creating a new one", path)
		return o.indexes.Create(dims, model), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	if index.Dimensions() != 0 && index.Dimensions() != dims {
		return nil, fmt.Errorf("load index: %w: index has %d dimensions, embedder produces %d (rebuild the index after changing the embedding model)",
			domain.ErrDimensionMismatch, index.Dimensions(), dims)
	}
	if index.Model() != "" && index.Model() != model {
		logger.Warn("Index was built with %s but the embedder is %s", index.Model(), model)
	}
	return index, nil
}

// recordSources stores the fingerprint of every loaded source none of whose
// chunks failed, and remembers ingested pages.
func (o *Ingestor) recordSources(ctx context.Context, st *cycleState) {
	now := time.Now()
	for _, out := range st.loaded {
		if st.failed[out.Source] {
			continue
		}
		if domain.KindOf(out.Source) == domain.SourceKindURL {
			o.detector.RememberURL(out.Source, out.Fingerprint)
		}
		if o.sources == nil {
			continue
		}
		src := domain.Source{ID: out.Source, Fingerprint: out.Fingerprint, LastProcessed: now}
		if err := o.sources.Save(ctx, src); err != nil {
			logger.Warn("Failed to record source %s: %v", out.Source, err)
		}
	}
}

func (o *Ingestor) logSummary(r *domain.CycleResult) {
	logger.Info("Sources: %d loaded, %d unchanged, %d skipped, %d failed",
		r.SourcesLoaded, r.SourcesUnchanged, r.SourcesSkipped, r.SourcesFailed)
	logger.Info("Chunks: %d indexed, %d duplicate, %d too short, %d failed",
		r.ChunksIndexed, r.ChunksDuplicate, r.ChunksFiltered, r.ChunksFailed)
	if r.NoOp {
		logger.Info("No new content, index unchanged")
	}
}

func (o *Ingestor) setRunning(running bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = running
}

func (o *Ingestor) finish(result *domain.CycleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	if result != nil {
		last := *result
		o.lastResult = &last
	}
}
