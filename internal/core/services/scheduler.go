package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// WatchConfig describes what the scheduler ingests.
type WatchConfig struct {
	// Folder is the monitored document tree.
	Folder string

	// URLs are fetched on every cycle.
	URLs []string

	// IndexPath is where cycles persist the index.
	IndexPath string

	// Debounce delays a file-event trigger until events stop arriving.
	Debounce time.Duration

	// CreateMissing creates the folder when it does not exist.
	CreateMissing bool
}

// Scheduler runs ingestion cycles in the background. A filesystem watcher
// triggers a cycle shortly after files are created or modified, and
// persisted tasks sweep the folder for missed changes or poll on a timer.
// All triggers pass through one gate: at most one cycle runs at a time and
// triggers that arrive meanwhile collapse into a single follow-up cycle.
type Scheduler struct {
	config   domain.SchedulerConfig
	watch    WatchConfig
	store    driven.SchedulerStore
	ingestor driving.Ingestor

	watcher   driven.FileWatcher
	scanner   driven.FileScanner
	sources   driven.SourceStore
	resolve   MIMEResolver
	changeLog driven.ChangeLog
	observer  driven.CycleObserver

	mu       sync.Mutex
	running  bool
	stopped  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	cycleCtx context.Context

	// Cycle gate, guarded by mu.
	cycleRunning bool
	pending      bool

	timerMu  sync.Mutex
	debounce *time.Timer

	retryWatch chan struct{}
}

// SchedulerOption configures optional scheduler collaborators.
type SchedulerOption func(*Scheduler)

// WithWatcher enables event-driven triggers.
func WithWatcher(watcher driven.FileWatcher) SchedulerOption {
	return func(s *Scheduler) {
		s.watcher = watcher
	}
}

// WithSweep enables change detection by the sweep task. Only files the
// resolver accepts are compared against the source store.
func WithSweep(scanner driven.FileScanner, sources driven.SourceStore, resolve MIMEResolver) SchedulerOption {
	return func(s *Scheduler) {
		s.scanner = scanner
		s.sources = sources
		s.resolve = resolve
	}
}

// WithChangeLog records every observed change.
func WithChangeLog(changeLog driven.ChangeLog) SchedulerOption {
	return func(s *Scheduler) {
		s.changeLog = changeLog
	}
}

// WithSchedulerObserver sets the metrics sink.
func WithSchedulerObserver(observer driven.CycleObserver) SchedulerOption {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	watch WatchConfig,
	store driven.SchedulerStore,
	ingestor driving.Ingestor,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		config:     config,
		watch:      watch,
		store:      store,
		ingestor:   ingestor,
		observer:   nopObserver{},
		cycleCtx:   context.Background(),
		retryWatch: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the watcher and task loops. This method blocks until Stop
// is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	// Cycles are not interrupted by shutdown; a killed cycle is repeated
	// safely on the next run anyway.
	s.cycleCtx = context.WithoutCancel(ctx)
	stopCh := s.stopCh
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialise tasks in store
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("Scheduler: failed to initialise tasks: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-stopCh:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error { return s.runTasks(gctx) })
	g.Go(func() error { return s.runEvents(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the scheduler and waits for an in-flight
// cycle to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.timerMu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.timerMu.Unlock()

	// Wait for running tasks and cycles to complete
	s.wg.Wait()

	return nil
}

// Trigger requests a cycle. While a cycle runs, any number of triggers
// schedule exactly one follow-up cycle.
func (s *Scheduler) Trigger(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.cycleRunning {
		s.pending = true
		s.observer.ObserveTrigger(reason, true)
		logger.Debug("Cycle already running, queued follow-up (%s)", reason)
		return
	}

	s.cycleRunning = true
	s.observer.ObserveTrigger(reason, false)
	s.wg.Add(1)
	go s.runCycles(s.cycleCtx, reason)
}

// runCycles runs a cycle, then one more for as long as triggers arrived
// while the previous one was running.
func (s *Scheduler) runCycles(ctx context.Context, reason string) {
	defer s.wg.Done()

	for {
		s.runCycle(ctx, reason)

		s.mu.Lock()
		if !s.pending || s.stopped {
			s.cycleRunning = false
			s.pending = false
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
		reason = "follow-up"
	}
}

func (s *Scheduler) runCycle(ctx context.Context, reason string) {
	logger.Info("Starting ingestion cycle (%s)", reason)

	result, err := s.ingestor.RunCycle(ctx, domain.CycleRequest{
		Folder:   s.watch.Folder,
		URLs:     s.watch.URLs,
		SavePath: s.watch.IndexPath,
		Origin:   domain.OriginBackend,
	})
	switch {
	case errors.Is(err, domain.ErrCycleInProgress):
		logger.Warn("Another cycle holds the index, skipping (%s)", reason)
	case err != nil:
		logger.Error("Ingestion cycle failed: %v", err)
	default:
		logger.Info("Cycle complete: %d indexed, %d skipped", result.Indexed(), result.Skipped())
	}
}

// runEvents consumes watcher events until ctx is cancelled. When the folder
// is missing or the watcher stops, it waits for the next sweep to retry.
func (s *Scheduler) runEvents(ctx context.Context) error {
	if s.watcher == nil {
		<-ctx.Done()
		return nil
	}

	for {
		events, err := s.startWatcher(ctx)
		if errors.Is(err, domain.ErrWatcherClosed) {
			<-ctx.Done()
			return nil
		}
		if err != nil {
			logger.Warn("Not watching %s: %v (retrying on the next sweep)", s.watch.Folder, err)
		} else {
			logger.Info("Watching %s", s.watch.Folder)
			s.consume(ctx, events)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.retryWatch:
		}
	}
}

func (s *Scheduler) startWatcher(ctx context.Context) (<-chan domain.FileChange, error) {
	if s.watch.Folder == "" {
		return nil, fmt.Errorf("watch: %w: no folder configured", domain.ErrInvalidInput)
	}
	if _, err := os.Stat(s.watch.Folder); errors.Is(err, os.ErrNotExist) && s.watch.CreateMissing {
		if err := os.MkdirAll(s.watch.Folder, 0o755); err != nil {
			return nil, fmt.Errorf("create folder: %w", err)
		}
		logger.Info("Created missing folder %s", s.watch.Folder)
	}
	return s.watcher.Watch(ctx, s.watch.Folder)
}

func (s *Scheduler) consume(ctx context.Context, events <-chan domain.FileChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					logger.Warn("Watcher for %s stopped", s.watch.Folder)
				}
				return
			}
			s.handleChange(ctx, change)
		}
	}
}

// handleChange logs a change and arms the debounced trigger for creations
// and modifications of supported files.
func (s *Scheduler) handleChange(ctx context.Context, change domain.FileChange) {
	s.observer.ObserveChange(change.Type)
	logger.Info("%s: %s", change.Type, change.Path)

	hash := ""
	if change.Type != domain.ChangeDeleted && s.scanner != nil {
		if content, err := s.scanner.Read(ctx, change.Path); err == nil {
			hash = domain.FingerprintBytes(content)
		} else {
			logger.Debug("Could not hash %s: %v", change.Path, err)
		}
	}
	s.logChange(ctx, change, hash)

	if !change.Type.TriggersIngestion() {
		return
	}
	if s.resolve != nil {
		if _, ok := s.resolve(change.Path); !ok {
			logger.Debug("Ignoring unsupported file %s", change.Path)
			return
		}
	}
	s.debounced("file " + string(change.Type))
}

func (s *Scheduler) logChange(ctx context.Context, change domain.FileChange, hash string) {
	if s.changeLog == nil {
		return
	}
	record := domain.ChangeRecord{Timestamp: time.Now(), Path: change.Path, Type: change.Type, Hash: hash}
	if err := s.changeLog.Append(ctx, record); err != nil {
		logger.Warn("Failed to write change log: %v", err)
	}
}

// debounced fires Trigger once no event has arrived for the debounce window.
func (s *Scheduler) debounced(reason string) {
	if s.watch.Debounce <= 0 {
		s.Trigger(reason)
		return
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.watch.Debounce, func() { s.Trigger(reason) })
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	tasks := []struct {
		id, name string
	}{
		{domain.TaskIDSweep, "Folder Sweep"},
		{domain.TaskIDPoll, "Poll"},
	}
	for _, t := range tasks {
		if err := s.ensureTask(ctx, t.id, t.name, s.config.GetTaskConfig(t.id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store. Disabled tasks are
// only written when they already exist, to switch them off.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		if !cfg.Enabled || cfg.Interval <= 0 {
			return nil
		}
		// Create new task
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		// Update interval if changed
		if cfg.Interval > 0 && task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled && task.Interval > 0
	}

	return s.store.SaveTask(ctx, task)
}

// runTasks is the task loop.
func (s *Scheduler) runTasks(ctx context.Context) error {
	if !s.config.Enabled {
		<-ctx.Done()
		return nil
	}

	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	interval := s.config.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("Scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task and records its result.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDSweep:
			result.ItemsProcessed, err = s.runSweep(ctx)
		case domain.TaskIDPoll:
			s.Trigger("poll")
		default:
			logger.Warn("Scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		// The loop context may already be cancelled; state is still recorded.
		storeCtx := context.WithoutCancel(ctx)
		if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
			logger.Warn("Scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		// Record result for history
		if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
			logger.Warn("Scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(storeCtx, domain.MaxTaskHistory); pruneErr != nil {
			logger.Warn("Scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runSweep compares every supported file with its last ingested
// fingerprint, logs the differences and triggers a cycle when there are
// any. Configured URLs always trigger, since only a fetch can tell whether
// a page changed. It also asks the event loop to retry a failed watcher.
func (s *Scheduler) runSweep(ctx context.Context) (int, error) {
	select {
	case s.retryWatch <- struct{}{}:
	default:
	}

	changed, err := s.detectChanges(ctx)
	if err != nil {
		return 0, err
	}

	for _, path := range changed {
		change := domain.FileChange{Type: domain.ChangeCronDetected, Path: path.path}
		s.observer.ObserveChange(change.Type)
		s.logChange(ctx, change, path.hash)
	}
	if len(changed) > 0 {
		logger.Info("Sweep found %d changed files", len(changed))
	}

	if len(changed) > 0 || len(s.watch.URLs) > 0 {
		s.Trigger("sweep")
	}
	return len(changed), nil
}

type sweptFile struct {
	path string
	hash string
}

func (s *Scheduler) detectChanges(ctx context.Context) ([]sweptFile, error) {
	if s.scanner == nil || s.watch.Folder == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.watch.Folder); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Sweep: folder %s does not exist", s.watch.Folder)
		return nil, nil
	}

	paths, err := s.scanner.Scan(ctx, s.watch.Folder)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	var changed []sweptFile
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.resolve != nil {
			if _, ok := s.resolve(path); !ok {
				continue
			}
		}
		content, err := s.scanner.Read(ctx, path)
		if err != nil {
			logger.Debug("Sweep: could not read %s: %v", path, err)
			continue
		}
		hash := domain.FingerprintBytes(content)
		if s.knownFingerprint(ctx, path) != hash {
			changed = append(changed, sweptFile{path: path, hash: hash})
		}
	}
	return changed, nil
}

func (s *Scheduler) knownFingerprint(ctx context.Context, path string) string {
	if s.sources == nil {
		return ""
	}
	src, err := s.sources.Get(ctx, path)
	if err != nil {
		return ""
	}
	return src.Fingerprint
}
