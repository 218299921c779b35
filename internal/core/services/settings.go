package services

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRoot              = "paths.root"
	keyIndexPath         = "index.path"
	keyFingerprintsPath  = "fingerprints.path"
	keyFingerprintsStore = "fingerprints.backend"
	keyChangeLogPath     = "changelog.path"
	keyQueryLogPath      = "querylog.path"
	keyDataPath          = "data.path"
	keyChunkSize         = "chunking.size"
	keyChunkOverlap      = "chunking.overlap"
	keyChunkMinWords     = "chunking.min_words"
	keyDedupEnabled      = "dedup.enabled"
	keyBoostEnabled      = "boost.enabled"
	keyBoostFactor       = "boost.factor"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDims         = "embedding.dimensions"
	keyFetchTimeout      = "fetch.timeout"
	keyFetchRateLimit    = "fetch.rate_limit"
	keyWatchFolder       = "watch.folder"
	keyWatchURLs         = "watch.urls"
	keyWatchSweep        = "watch.sweep_interval"
	keyWatchPoll         = "watch.poll_interval"
	keyWatchDebounce     = "watch.debounce"
	keyWatchIgnore       = "watch.ignore_suffixes"
	keyWatchCreate       = "watch.create_missing"
	keySchedulerEnabled  = "scheduler.enabled"
	keySchedulerCheck    = "scheduler.check_interval"
)

// settingField binds a config key to the AppSettings field it populates.
// field returns a pointer into the given settings.
type settingField struct {
	key   string
	field func(*domain.AppSettings) any
}

// settingFields lists every persisted setting in display order. paths.root
// comes first since every default path is derived from it.
var settingFields = []settingField{
	{keyRoot, func(s *domain.AppSettings) any { return &s.Paths.Root }},
	{keyIndexPath, func(s *domain.AppSettings) any { return &s.Paths.Index }},
	{keyFingerprintsPath, func(s *domain.AppSettings) any { return &s.Paths.Fingerprints }},
	{keyFingerprintsStore, func(s *domain.AppSettings) any { return &s.Ingest.FingerprintBackend }},
	{keyChangeLogPath, func(s *domain.AppSettings) any { return &s.Paths.ChangeLog }},
	{keyQueryLogPath, func(s *domain.AppSettings) any { return &s.Paths.QueryLog }},
	{keyDataPath, func(s *domain.AppSettings) any { return &s.Paths.Data }},
	{keyChunkSize, func(s *domain.AppSettings) any { return &s.Chunking.Size }},
	{keyChunkOverlap, func(s *domain.AppSettings) any { return &s.Chunking.Overlap }},
	{keyChunkMinWords, func(s *domain.AppSettings) any { return &s.Chunking.MinWords }},
	{keyDedupEnabled, func(s *domain.AppSettings) any { return &s.Ingest.DedupEnabled }},
	{keyBoostEnabled, func(s *domain.AppSettings) any { return &s.Ingest.BoostEnabled }},
	{keyBoostFactor, func(s *domain.AppSettings) any { return &s.Ingest.BoostFactor }},
	{keyEmbedProvider, func(s *domain.AppSettings) any { return &s.Embedding.Provider }},
	{keyEmbedModel, func(s *domain.AppSettings) any { return &s.Embedding.Model }},
	{keyEmbedBaseURL, func(s *domain.AppSettings) any { return &s.Embedding.BaseURL }},
	{keyEmbedAPIKey, func(s *domain.AppSettings) any { return &s.Embedding.APIKey }},
	{keyEmbedDims, func(s *domain.AppSettings) any { return &s.Embedding.Dimensions }},
	{keyFetchTimeout, func(s *domain.AppSettings) any { return &s.Fetch.Timeout }},
	{keyFetchRateLimit, func(s *domain.AppSettings) any { return &s.Fetch.RateLimit }},
	{keyWatchFolder, func(s *domain.AppSettings) any { return &s.Watch.Folder }},
	{keyWatchURLs, func(s *domain.AppSettings) any { return &s.Watch.URLs }},
	{keyWatchSweep, func(s *domain.AppSettings) any { return &s.Watch.SweepInterval }},
	{keyWatchPoll, func(s *domain.AppSettings) any { return &s.Watch.PollInterval }},
	{keyWatchDebounce, func(s *domain.AppSettings) any { return &s.Watch.Debounce }},
	{keyWatchIgnore, func(s *domain.AppSettings) any { return &s.Watch.IgnoreSuffixes }},
	{keyWatchCreate, func(s *domain.AppSettings) any { return &s.Watch.CreateMissing }},
}

// SettingEntry is one effective setting for display.
type SettingEntry struct {
	Key   string
	Value string

	// Configured is true when the value comes from the config file rather
	// than a default.
	Configured bool
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	defaultRoot string
}

// NewSettingsService creates a new settings service. defaultRoot is used
// when the config file does not set paths.root.
func NewSettingsService(configStore driven.ConfigStore, defaultRoot string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		defaultRoot: defaultRoot,
	}
}

// Get retrieves current application settings. Keys missing from the config
// file keep their defaults; a value of the wrong type is an error.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.defaultsFor(s.root())

	for _, f := range settingFields {
		val, ok := s.configStore.Get(f.key)
		if !ok {
			continue
		}
		if err := assign(f.field(&settings), val); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.key, err)
		}
	}

	return &settings, nil
}

// Save persists application settings. Values equal to their default are
// only written when the key is already present in the file, so the file
// stays small and derived paths follow paths.root.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("save settings: %w", domain.ErrInvalidInput)
	}
	defaults := s.defaultsFor(settings.Paths.Root)

	for _, f := range settingFields {
		value := reflect.ValueOf(f.field(settings)).Elem().Interface()
		def := reflect.ValueOf(f.field(&defaults)).Elem().Interface()
		if _, exists := s.configStore.Get(f.key); !exists && reflect.DeepEqual(value, def) {
			continue
		}
		if f.key == keyEmbedAPIKey && settings.Embedding.APIKey == "" {
			continue
		}
		if err := s.configStore.Set(f.key, storable(value)); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	switch provider {
	case domain.EmbeddingProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	default:
		// The hash embedder needs none and OpenAI uses its public endpoint.
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// Validate checks if current settings are valid.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return s.defaultsFor(s.defaultRoot)
}

// Keys returns every supported config key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingFields))
	for i, f := range settingFields {
		keys[i] = f.key
	}
	return keys
}

// Value returns the effective value of key formatted for display.
func (s *SettingsService) Value(key string) (string, error) {
	f, err := lookupField(key)
	if err != nil {
		return "", err
	}
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	return format(f.field(settings)), nil
}

// List returns every effective setting.
func (s *SettingsService) List() ([]SettingEntry, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	entries := make([]SettingEntry, len(settingFields))
	for i, f := range settingFields {
		_, configured := s.configStore.Get(f.key)
		entries[i] = SettingEntry{
			Key:        f.key,
			Value:      format(f.field(settings)),
			Configured: configured,
		}
	}
	return entries, nil
}

// SetValue parses raw for key, validates the resulting settings and
// persists the value. Lists are comma separated.
func (s *SettingsService) SetValue(key, raw string) error {
	f, err := lookupField(key)
	if err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	ptr := f.field(settings)
	if err := parseInto(ptr, raw); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	return s.configStore.Set(key, storable(reflect.ValueOf(ptr).Elem().Interface()))
}

// GetPipelineConfig returns the post-processor pipeline configuration for
// the current chunking settings.
func (s *SettingsService) GetPipelineConfig() (domain.PipelineConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PipelineConfig{}, err
	}
	return domain.PipelineConfigFor(settings.Chunking), nil
}

// GetSchedulerConfig returns the scheduler configuration. The sweep and
// poll tasks follow watch.sweep_interval and watch.poll_interval; a zero
// interval disables the task.
func (s *SettingsService) GetSchedulerConfig() (domain.SchedulerConfig, error) {
	config := domain.DefaultSchedulerConfig()

	settings, err := s.Get()
	if err != nil {
		return config, err
	}

	// Master switch
	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		config.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}
	if interval := s.configStore.GetString(keySchedulerCheck); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return config, fmt.Errorf("read %s: %w", keySchedulerCheck, err)
		}
		config.CheckInterval = d
	}

	config.TaskConfigs[domain.TaskIDSweep] = domain.TaskConfig{
		Enabled:  settings.Watch.SweepInterval > 0,
		Interval: settings.Watch.SweepInterval,
	}
	config.TaskConfigs[domain.TaskIDPoll] = domain.TaskConfig{
		Enabled:  settings.Watch.PollInterval > 0,
		Interval: settings.Watch.PollInterval,
	}

	return config, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) root() string {
	if root := s.configStore.GetString(keyRoot); root != "" {
		return root
	}
	return s.defaultRoot
}

func (s *SettingsService) defaultsFor(root string) domain.AppSettings {
	return domain.DefaultAppSettings(root)
}

func lookupField(key string) (settingField, error) {
	for _, f := range settingFields {
		if f.key == key {
			return f, nil
		}
	}
	return settingField{}, fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
}

// assign stores a decoded config value into the field ptr points at.
func assign(ptr, val any) error {
	switch p := ptr.(type) {
	case *string:
		v, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		*p = v
	case *int:
		v, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("expected integer, got %T", val)
		}
		*p = int(v)
	case *float64:
		v, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
		*p = v
	case *bool:
		v, ok := val.(bool)
		if !ok {
			return fmt.Errorf("expected boolean, got %T", val)
		}
		*p = v
	case *[]string:
		v, ok := toStrings(val)
		if !ok {
			return fmt.Errorf("expected list of strings, got %T", val)
		}
		*p = v
	default:
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		return parseInto(ptr, str)
	}
	return nil
}

// parseInto parses a command-line value into the field ptr points at.
func parseInto(ptr any, raw string) error {
	raw = strings.TrimSpace(raw)
	switch p := ptr.(type) {
	case *string:
		*p = raw
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*p = v
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*p = v
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*p = v
	case *time.Duration:
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*p = v
	case *[]string:
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*p = items
	case *domain.EmbeddingProvider:
		v := domain.EmbeddingProvider(raw)
		if !v.IsValid() {
			return fmt.Errorf("unknown embedding provider %q", raw)
		}
		*p = v
	case *domain.FingerprintBackend:
		v := domain.FingerprintBackend(raw)
		if !v.IsValid() {
			return fmt.Errorf("unknown fingerprint backend %q", raw)
		}
		*p = v
	default:
		return fmt.Errorf("unsupported setting type %T", ptr)
	}
	return nil
}

// storable converts a field value into a TOML-friendly value.
func storable(value any) any {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case domain.EmbeddingProvider:
		return v.String()
	case domain.FingerprintBackend:
		return string(v)
	case []string:
		if v == nil {
			return []string{}
		}
		return v
	default:
		return v
	}
}

func format(ptr any) string {
	switch v := reflect.ValueOf(ptr).Elem().Interface().(type) {
	case []string:
		return strings.Join(v, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toStrings(val any) ([]string, bool) {
	switch v := val.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
