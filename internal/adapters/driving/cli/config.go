package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding"
	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// apiKeySetting is masked whenever it is printed.
//
//nolint:gosec // G101: config key name, not a credential.
const apiKeySetting = "embedding.api_key"

var (
	embeddingModel  string
	embeddingAPIKey string
	embeddingCheck  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit the configuration file (~/.ragsync/config.toml).

Keys use dot notation, for example chunking.size or watch.folder. Values not
in the file fall back to their defaults. Lists are comma separated.`,
	RunE: runConfigList,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every setting and its value",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Changes a setting and saves the configuration file. The new value is
validated first; an invalid value leaves the file unchanged.

Examples:
  ragsync config set chunking.size 800
  ragsync config set watch.urls https://example.com/a,https://example.com/b
  ragsync config set watch.sweep_interval 6h`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure the embedding provider",
	Long: `Selects the embedding provider and resets the model, endpoint and
dimensions to its defaults.

Available providers:
  hash   - Deterministic hashed vectors (offline, no setup)
  ollama - Local Ollama server
  openai - OpenAI API (requires an API key)

Changing provider or model makes the existing index incompatible; run
'ragsync ingest --rebuild' afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigEmbedding,
}

func init() {
	configEmbeddingCmd.Flags().StringVar(&embeddingModel, "model", "", "embedding model (default depends on provider)")
	configEmbeddingCmd.Flags().StringVar(&embeddingAPIKey, "api-key", "", "API key (prompted when required and omitted)")
	configEmbeddingCmd.Flags().BoolVar(&embeddingCheck, "check", false, "verify the provider is reachable")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	entries, err := settingsService.List()
	if err != nil {
		return fmt.Errorf("failed to list settings: %w", err)
	}

	st := stylesFor(cmd.OutOrStdout())
	for _, e := range entries {
		line := fmt.Sprintf("%s = %s", e.Key, displayValue(e.Key, e.Value))
		if !e.Configured {
			line = st.Muted(line + " (default)")
		}
		cmd.Println(line)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println()
		cmd.Println(st.Warning(fmt.Sprintf("Warning: %v", err)))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	value, err := settingsService.Value(args[0])
	if err != nil {
		return err
	}
	cmd.Println(displayValue(args[0], value))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.SetValue(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s set to %s\n", key, displayValue(key, value))
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.EmbeddingProvider(strings.ToLower(args[0]))
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, args[0])
	}

	apiKey := embeddingAPIKey
	if provider.RequiresAPIKey() && apiKey == "" {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(provider, embeddingModel, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if embeddingCheck {
		cmd.Print("Validating configuration... ")
		svc, err := embedding.NewValidated(cmd.Context(), settings.Embedding)
		if err != nil {
			cmd.Println("FAILED")
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		_ = svc.Close()
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	return nil
}

// displayValue masks secrets.
func displayValue(key, value string) string {
	if key == apiKeySetting && value != "" {
		return maskAPIKey(value)
	}
	return value
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
