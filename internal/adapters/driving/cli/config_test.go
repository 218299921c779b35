package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range configCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"list", "get", "set", "embedding"} {
		assert.True(t, names[want], "missing config %s", want)
	}
}

func TestConfigCmd_List(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.settings.SetValue("chunking.size", "800"))

	out, err := execute(t, "config", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "chunking.size = 800\n")
	assert.Contains(t, out, "chunking.overlap = 50 (default)")
	assert.Contains(t, out, "watch.sweep_interval = 12h0m0s (default)")
	assert.NotContains(t, out, "Warning")
}

func TestConfigCmd_GetAndSet(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "config", "set", "watch.debounce", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "watch.debounce set to 2s")

	resetFlags(rootCmd)
	out, err = execute(t, "config", "get", "watch.debounce")
	require.NoError(t, err)
	assert.Equal(t, "2s\n", out)

	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "2s", settings.Watch.Debounce.String())
}

func TestConfigCmd_SetErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "nope.key", "1"}},
		{"not a number", []string{"config", "set", "chunking.size", "large"}},
		{"fails validation", []string{"config", "set", "chunking.overlap", "900"}},
		{"missing value", []string{"config", "set", "chunking.size"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServices(t)

			_, err := execute(t, tt.args...)

			assert.Error(t, err)
			assert.Empty(t, env.config.Keys())
		})
	}
}

func TestConfigCmd_GetUnknownKey(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "config", "get", "nope.key")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_MasksAPIKey(t *testing.T) {
	env := setupTestServices(t)
	require.NoError(t, env.settings.SetEmbeddingProvider(domain.EmbeddingProviderOpenAI, "", "sk-abcdefghijklmnop"))

	out, err := execute(t, "config", "get", "embedding.api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-a...mnop\n", out)

	resetFlags(rootCmd)
	out, err = execute(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "embedding.api_key = sk-a...mnop")
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
}

func TestConfigCmd_Embedding(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantModel string
		wantURL   string
		wantKey   string
	}{
		{
			name:      "ollama defaults",
			args:      []string{"config", "embedding", "ollama"},
			wantModel: domain.DefaultEmbeddingModels()[domain.EmbeddingProviderOllama],
			wantURL:   "http://localhost:11434",
		},
		{
			name:      "explicit model",
			args:      []string{"config", "embedding", "ollama", "--model", "mxbai-embed-large"},
			wantModel: "mxbai-embed-large",
			wantURL:   "http://localhost:11434",
		},
		{
			name:      "openai with key",
			args:      []string{"config", "embedding", "OpenAI", "--api-key", "sk-test-key-123456"},
			wantModel: domain.DefaultEmbeddingModels()[domain.EmbeddingProviderOpenAI],
			wantKey:   "sk-test-key-123456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServices(t)

			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, "Embedding provider configured")

			settings, err := env.settings.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.wantKey, settings.Embedding.APIKey)
		})
	}
}

func TestConfigCmd_EmbeddingUnknownProvider(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "config", "embedding", "word2vec")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_EmbeddingCheck(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "config", "embedding", "hash", "--check")

	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	settings, err := env.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderHash, settings.Embedding.Provider)
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"short", "****"},
		{"12345678", "****"},
		{"sk-1234567890", "sk-1...7890"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, maskAPIKey(tt.key))
		})
	}
}
