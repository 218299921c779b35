package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/core/services"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// mockIngestor is a mock implementation of driving.Ingestor.
type mockIngestor struct {
	mu     sync.Mutex
	reqs   []domain.CycleRequest
	result *domain.CycleResult
	err    error
	status *driving.IngestStatus
}

func (m *mockIngestor) RunCycle(_ context.Context, req domain.CycleRequest) (*domain.CycleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return m.result, m.err
}

func (m *mockIngestor) Status(_ context.Context) (*driving.IngestStatus, error) {
	if m.status == nil {
		return &driving.IngestStatus{}, m.err
	}
	return m.status, m.err
}

func (m *mockIngestor) requests() []domain.CycleRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CycleRequest(nil), m.reqs...)
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	stats   *domain.IndexStats

	lastQuery string
	lastK     int
}

func (m *mockSearchService) Search(_ context.Context, query string, k int) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastK = k
	return m.results, m.err
}

func (m *mockSearchService) Stats(_ context.Context) (*domain.IndexStats, error) {
	if m.stats == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.stats, nil
}

// mockScheduler blocks in Start until its context is cancelled.
type mockScheduler struct {
	started  chan struct{}
	stopped  bool
	mu       sync.Mutex
	startErr error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{started: make(chan struct{})}
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	if m.startErr != nil {
		return m.startErr
	}
	<-ctx.Done()
	return nil
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) Trigger(string) {}

func (m *mockScheduler) wasStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// testEnv holds the services injected into the command tree.
type testEnv struct {
	root      string
	settings  *services.SettingsService
	config    *memory.ConfigStore
	ingestor  *mockIngestor
	search    *mockSearchService
	scheduler *mockScheduler
	tasks     *memory.SchedulerStore
	built     []BuildOptions
	closed    int
	buildErr  error
}

// setupTestServices swaps the package-level services for mocks and
// restores everything when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		root:      t.TempDir(),
		config:    memory.NewConfigStore(nil),
		ingestor:  &mockIngestor{result: &domain.CycleResult{}},
		search:    &mockSearchService{},
		scheduler: newMockScheduler(),
		tasks:     memory.NewSchedulerStore(),
	}
	env.settings = services.NewSettingsService(env.config, env.root)

	origOpen, origBuild, origSettings := openSettings, buildServices, settingsService
	openSettings = nil
	settingsService = env.settings
	buildServices = func(_ context.Context, opts BuildOptions) (*Services, error) {
		if env.buildErr != nil {
			return nil, env.buildErr
		}
		env.built = append(env.built, opts)
		return &Services{
			Ingestor:  env.ingestor,
			Scheduler: env.scheduler,
			Search:    env.search,
			Tasks:     env.tasks,
			Close: func() error {
				env.closed++
				return nil
			},
		}, nil
	}

	logger.SetOutput(new(bytes.Buffer))

	t.Cleanup(func() {
		openSettings, buildServices, settingsService = origOpen, origBuild, origSettings
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		logger.SetVerbose(false)
		logger.SetQuiet(false)
		logger.SetOutput(os.Stderr)
	})

	return env
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, args...)
}

func executeContext(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
