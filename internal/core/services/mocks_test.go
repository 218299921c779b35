package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors count runes by code point modulo the dimension count, so equal
// texts get equal vectors and similar texts land close together.
type mockEmbeddingService struct {
	dims     int
	batchErr error
	failOn   map[string]error

	mu       sync.Mutex
	embedded []string

	batchCalls atomic.Int32
	closed     atomic.Bool
}

func newMockEmbeddingService(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{dims: dims, failOn: map[string]error{}}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	for _, r := range text {
		vec[int(r)%m.dims]++
	}
	return vec
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if err, ok := m.failOn[text]; ok {
		return nil, err
	}
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	m.closed.Store(true)
	return nil
}

func (m *mockEmbeddingService) embeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.embedded...)
}

// mockObserver records observer callbacks.
type mockObserver struct {
	mu       sync.Mutex
	cycles   []*domain.CycleResult
	errs     []error
	changes  []domain.ChangeType
	triggers []string
	sizes    []int
	batches  int
}

func (m *mockObserver) ObserveCycle(result *domain.CycleResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, result)
	m.errs = append(m.errs, err)
}

func (m *mockObserver) ObserveChange(change domain.ChangeType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
}

func (m *mockObserver) ObserveTrigger(reason string, coalesced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if coalesced {
		reason += " (coalesced)"
	}
	m.triggers = append(m.triggers, reason)
}

func (m *mockObserver) ObserveIndexSize(entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes = append(m.sizes, entries)
}

func (m *mockObserver) ObserveEmbedding(_ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *mockObserver) triggerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

// mockScanner implements driven.FileScanner over an in-memory file map.
type mockScanner struct {
	mu      sync.Mutex
	files   map[string][]byte
	order   []string
	missing bool
	readErr map[string]error
	reads   map[string]int
}

func newMockScanner() *mockScanner {
	return &mockScanner{
		files:   map[string][]byte{},
		readErr: map[string]error{},
		reads:   map[string]int{},
	}
}

func (m *mockScanner) put(path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		m.order = append(m.order, path)
	}
	m.files[path] = []byte(content)
}

func (m *mockScanner) Scan(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing {
		return nil, errors.New("scan: no such file or directory")
	}
	return append([]string(nil), m.order...), nil
}

func (m *mockScanner) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[path]++
	if err, ok := m.readErr[path]; ok {
		return nil, err
	}
	content, ok := m.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return content, nil
}

func (m *mockScanner) readCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[path]
}

// mockFetcher implements driven.URLFetcher.
type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.RawDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	page, ok := m.pages[url]
	if !ok {
		return nil, domain.ErrFetchFailed
	}
	return &domain.RawDocument{
		Source:   url,
		MIMEType: "text/plain",
		Content:  []byte(page),
		Metadata: map[string]any{"source": url},
	}, nil
}

// mockNormaliser turns text/plain bytes into a document with one segment
// per form-feed separated page.
type mockNormaliser struct {
	err error
}

func (m *mockNormaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/markdown"}
}

func (m *mockNormaliser) Priority() int {
	return 50
}

func (m *mockNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	pages := strings.Split(string(raw.Content), "\f")
	segments := make([]domain.Segment, len(pages))
	for i, text := range pages {
		segments[i] = domain.Segment{Page: i + 1, Text: text}
	}
	return &driven.NormaliseResult{Document: domain.Document{
		ID:       "doc-" + raw.Source,
		Source:   raw.Source,
		Title:    raw.Source,
		Segments: segments,
		Metadata: map[string]any{"mime_type": raw.MIMEType},
	}}, nil
}

// mockRegistry implements driven.NormaliserRegistry with a single normaliser.
type mockRegistry struct {
	normaliser *mockNormaliser
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{normaliser: &mockNormaliser{}}
}

func (m *mockRegistry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	for _, mt := range m.normaliser.SupportedMIMETypes() {
		if mt == raw.MIMEType {
			return m.normaliser.Normalise(ctx, raw)
		}
	}
	return nil, domain.ErrUnsupportedType
}

func (m *mockRegistry) Register(_ driven.Normaliser) {}

func (m *mockRegistry) SupportedMIMETypes() []string {
	return m.normaliser.SupportedMIMETypes()
}

// testMIMEResolver maps .txt and .md, and .pdf to a type no normaliser handles.
func testMIMEResolver(path string) (string, bool) {
	switch filepath.Ext(path) {
	case ".txt":
		return "text/plain", true
	case ".md":
		return "text/markdown", true
	case ".pdf":
		return "application/pdf", true
	default:
		return "", false
	}
}

// Ensure mocks implement interfaces.
var (
	_ driven.EmbeddingService   = (*mockEmbeddingService)(nil)
	_ driven.CycleObserver      = (*mockObserver)(nil)
	_ driven.FileScanner        = (*mockScanner)(nil)
	_ driven.URLFetcher         = (*mockFetcher)(nil)
	_ driven.NormaliserRegistry = (*mockRegistry)(nil)
)
