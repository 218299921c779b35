package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

const testRoot = "/home/test/.ragsync"

// failingConfigStore rejects every write.
type failingConfigStore struct {
	*memory.ConfigStore
	err error
}

func (s *failingConfigStore) Set(_ string, _ any) error {
	return s.err
}

var _ driven.ConfigStore = (*failingConfigStore)(nil)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, testRoot)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil), testRoot)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, domain.DefaultAppSettings(testRoot), *settings)
	assert.Equal(t, "/home/test/.ragsync/index", settings.Paths.Index)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"chunking.size":        int64(800),
		"chunking.overlap":     int64(100),
		"boost.enabled":        true,
		"boost.factor":         1.2,
		"dedup.enabled":        false,
		"embedding.provider":   "openai",
		"embedding.model":      "text-embedding-3-large",
		"watch.urls":           []any{"https://example.com/a", "https://example.com/b"},
		"watch.debounce":       "2s",
		"watch.poll_interval":  "5m",
		"watch.create_missing": true,
		"fingerprints.backend": "sqlite",
	})
	service := NewSettingsService(store, testRoot)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 800, settings.Chunking.Size)
	assert.Equal(t, 100, settings.Chunking.Overlap)
	assert.True(t, settings.Ingest.BoostEnabled)
	assert.InDelta(t, 1.2, settings.Ingest.BoostFactor, 1e-9)
	assert.False(t, settings.Ingest.DedupEnabled)
	assert.Equal(t, domain.EmbeddingProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, settings.Watch.URLs)
	assert.Equal(t, 2*time.Second, settings.Watch.Debounce)
	assert.Equal(t, 5*time.Minute, settings.Watch.PollInterval)
	assert.True(t, settings.Watch.CreateMissing)
	assert.Equal(t, domain.FingerprintBackendSQLite, settings.Ingest.FingerprintBackend)
}

func TestSettingsService_Get_RootMovesDerivedPaths(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"paths.root":      "/srv/rag",
		"querylog.path":   "/var/log/queries.csv",
		"chunking.size":   int64(500),
		"embedding.model": "feature-hash-384",
	})
	service := NewSettingsService(store, testRoot)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "/srv/rag", settings.Paths.Root)
	assert.Equal(t, "/srv/rag/index", settings.Paths.Index)
	assert.Equal(t, "/srv/rag/documents", settings.Watch.Folder)
	assert.Equal(t, "/var/log/queries.csv", settings.Paths.QueryLog)
}

func TestSettingsService_Get_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"string for int", "chunking.size", "large"},
		{"int for bool", "dedup.enabled", int64(1)},
		{"bad duration", "watch.debounce", "soon"},
		{"unknown provider", "embedding.provider", "anthropic"},
		{"mixed list", "watch.urls", []any{"https://example.com", int64(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore(map[string]any{tt.key: tt.value})
			_, err := NewSettingsService(store, testRoot).Get()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, testRoot)

	settings := domain.DefaultAppSettings(testRoot)
	settings.Chunking.Size = 1000
	settings.Watch.Debounce = time.Second
	settings.Watch.URLs = []string{"https://example.com"}
	settings.Embedding.Provider = domain.EmbeddingProviderOllama

	require.NoError(t, service.Save(&settings))

	// Only changed values are written
	assert.ElementsMatch(t, []string{"chunking.size", "watch.debounce", "watch.urls", "embedding.provider"}, store.Keys())
	assert.Equal(t, 1000, store.GetInt("chunking.size"))
	assert.Equal(t, "1s", store.GetString("watch.debounce"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))

	// Round trip
	loaded, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *loaded)
}

func TestSettingsService_Save_OverwritesExistingDefaults(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"chunking.size": int64(900)})
	service := NewSettingsService(store, testRoot)

	settings := domain.DefaultAppSettings(testRoot)
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, 500, store.GetInt("chunking.size"))
}

func TestSettingsService_Save_EmptyAPIKey(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.api_key": "sk-existing"})
	service := NewSettingsService(store, testRoot)

	settings, err := service.Get()
	require.NoError(t, err)
	settings.Embedding.APIKey = ""

	require.NoError(t, service.Save(settings))

	// An empty key never overwrites a stored one
	assert.Equal(t, "sk-existing", store.GetString("embedding.api_key"))
}

func TestSettingsService_Save_Errors(t *testing.T) {
	store := &failingConfigStore{ConfigStore: memory.NewConfigStore(nil), err: errors.New("disk full")}
	service := NewSettingsService(store, testRoot)

	settings := domain.DefaultAppSettings(testRoot)
	settings.Chunking.Size = 800

	err := service.Save(&settings)
	assert.ErrorContains(t, err, "save chunking.size")
	assert.ErrorContains(t, err, "disk full")

	assert.ErrorIs(t, service.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name        string
		provider    domain.EmbeddingProvider
		model       string
		apiKey      string
		wantModel   string
		wantBaseURL string
		wantDims    int
	}{
		{"ollama default model", domain.EmbeddingProviderOllama, "", "", "nomic-embed-text", "http://localhost:11434", 768},
		{"ollama custom model", domain.EmbeddingProviderOllama, "mxbai-embed-large", "", "mxbai-embed-large", "http://localhost:11434", 1024},
		{"openai", domain.EmbeddingProviderOpenAI, "", "sk-test", "text-embedding-3-small", "", 1536},
		{"hash", domain.EmbeddingProviderHash, "", "", "feature-hash-384", "", 384},
		{"unknown model dimensions", domain.EmbeddingProviderOllama, "custom-embed", "", "custom-embed", "http://localhost:11434", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(nil), testRoot)

			require.NoError(t, service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey))

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantBaseURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.apiKey, settings.Embedding.APIKey)
			assert.Equal(t, tt.wantDims, settings.Embedding.Dimensions)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_PreservesExistingBaseURL(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.base_url": "http://gpu-box:11434"})
	service := NewSettingsService(store, testRoot)

	require.NoError(t, service.SetEmbeddingProvider(domain.EmbeddingProviderOllama, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
}

func TestSettingsService_SetEmbeddingProvider_Errors(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil), testRoot)

	err := service.SetEmbeddingProvider(domain.EmbeddingProvider("anthropic"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = service.SetEmbeddingProvider(domain.EmbeddingProviderOpenAI, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorContains(t, err, "API key required")
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"defaults", nil, false},
		{"overlap too large", map[string]any{"chunking.overlap": int64(600)}, true},
		{"openai without key", map[string]any{"embedding.provider": "openai"}, true},
		{"openai with key", map[string]any{"embedding.provider": "openai", "embedding.api_key": "sk"}, false},
		{"zero boost", map[string]any{"boost.factor": 0.0}, true},
		{"wrong type", map[string]any{"chunking.size": "big"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(tt.values), testRoot)
			err := service.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil), testRoot)

	assert.Equal(t, domain.DefaultAppSettings(testRoot), service.GetDefaults())
}

func TestSettingsService_ValueAndList(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"watch.urls":     []string{"https://a.example", "https://b.example"},
		"watch.debounce": "750ms",
	})
	service := NewSettingsService(store, testRoot)

	tests := []struct {
		key  string
		want string
	}{
		{"chunking.size", "500"},
		{"boost.factor", "1.05"},
		{"dedup.enabled", "true"},
		{"watch.urls", "https://a.example,https://b.example"},
		{"watch.debounce", "750ms"},
		{"watch.sweep_interval", "12h0m0s"},
		{"embedding.provider", "hash"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := service.Value(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := service.Value("search.mode")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	entries, err := service.List()
	require.NoError(t, err)
	require.Len(t, entries, len(service.Keys()))
	assert.Equal(t, "paths.root", entries[0].Key)
	assert.Equal(t, testRoot, entries[0].Value)
	assert.False(t, entries[0].Configured)

	configured := map[string]bool{}
	for _, e := range entries {
		if e.Configured {
			configured[e.Key] = true
		}
	}
	assert.Equal(t, map[string]bool{"watch.urls": true, "watch.debounce": true}, configured)
}

func TestSettingsService_SetValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		raw     string
		want    any
		wantErr error
	}{
		{"int", "chunking.size", "750", 750, nil},
		{"bool", "boost.enabled", "true", true, nil},
		{"float", "boost.factor", "1.5", 1.5, nil},
		{"duration", "watch.debounce", "2s", "2s", nil},
		{"list", "watch.urls", " https://a.example , ,https://b.example", []string{"https://a.example", "https://b.example"}, nil},
		{"provider", "embedding.provider", "ollama", "ollama", nil},
		{"backend", "fingerprints.backend", "sqlite", "sqlite", nil},
		{"unknown key", "llm.provider", "openai", nil, domain.ErrInvalidInput},
		{"bad int", "chunking.size", "many", nil, domain.ErrInvalidInput},
		{"bad provider", "embedding.provider", "anthropic", nil, domain.ErrInvalidInput},
		{"fails validation", "chunking.overlap", "500", nil, domain.ErrInvalidInput},
		{"provider needs key", "embedding.provider", "openai", nil, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore(nil)
			service := NewSettingsService(store, testRoot)

			err := service.SetValue(tt.key, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, store.Keys())
				return
			}
			require.NoError(t, err)
			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"chunking.size":      int64(300),
		"chunking.overlap":   int64(30),
		"chunking.min_words": int64(5),
	})
	service := NewSettingsService(store, testRoot)

	cfg, err := service.GetPipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"chunker", "minwords", "fingerprint"}, cfg.Processors)
	assert.Equal(t, 300, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Equal(t, 30, cfg.GetProcessorConfig("chunker")["overlap"])
	assert.Equal(t, 5, cfg.GetProcessorConfig("minwords")["min_words"])
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	tests := []struct {
		name      string
		values    map[string]any
		wantOn    bool
		wantCheck time.Duration
		wantSweep domain.TaskConfig
		wantPoll  domain.TaskConfig
		wantErr   bool
	}{
		{
			name:      "defaults",
			wantOn:    true,
			wantCheck: time.Minute,
			wantSweep: domain.TaskConfig{Enabled: true, Interval: 12 * time.Hour},
			wantPoll:  domain.TaskConfig{},
		},
		{
			name: "poll and custom sweep",
			values: map[string]any{
				"watch.sweep_interval":     "1h",
				"watch.poll_interval":      "30s",
				"scheduler.check_interval": "10s",
			},
			wantOn:    true,
			wantCheck: 10 * time.Second,
			wantSweep: domain.TaskConfig{Enabled: true, Interval: time.Hour},
			wantPoll:  domain.TaskConfig{Enabled: true, Interval: 30 * time.Second},
		},
		{
			name:      "disabled",
			values:    map[string]any{"scheduler.enabled": false, "watch.sweep_interval": "0s"},
			wantOn:    false,
			wantCheck: time.Minute,
			wantSweep: domain.TaskConfig{},
			wantPoll:  domain.TaskConfig{},
		},
		{
			name:    "bad check interval",
			values:  map[string]any{"scheduler.check_interval": "often"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(tt.values), testRoot)

			cfg, err := service.GetSchedulerConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOn, cfg.Enabled)
			assert.Equal(t, tt.wantCheck, cfg.CheckInterval)
			assert.Equal(t, tt.wantSweep, cfg.GetTaskConfig(domain.TaskIDSweep))
			assert.Equal(t, tt.wantPoll, cfg.GetTaskConfig(domain.TaskIDPoll))
		})
	}
}
