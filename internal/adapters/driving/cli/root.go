// Package cli implements the ragsync command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/core/services"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verboseFlag bool
	quietFlag   bool
	configDir   string
)

// SettingsManager reads and edits the persisted configuration.
type SettingsManager interface {
	driving.SettingsService
	Keys() []string
	Value(key string) (string, error)
	List() ([]services.SettingEntry, error)
	SetValue(key, raw string) error
	GetSchedulerConfig() (domain.SchedulerConfig, error)
}

// BuildOptions are the resolved settings for one invocation.
type BuildOptions struct {
	Settings  domain.AppSettings
	Scheduler domain.SchedulerConfig

	// Progress, when set, receives embedding progress during ingestion.
	Progress func(done, total int)
}

// Services are the application services a command drives.
type Services struct {
	// Settings are the resolved settings the services were built from.
	Settings domain.AppSettings

	Ingestor  driving.Ingestor
	Scheduler driving.Scheduler
	Search    driving.SearchService

	// Tasks holds scheduled task state and history.
	Tasks driven.SchedulerStore

	// Metrics is served by watch --metrics-addr. May be nil.
	Metrics *prometheus.Metrics

	// Close releases stores and connections.
	Close func() error
}

// Builder constructs services from resolved settings.
type Builder func(ctx context.Context, opts BuildOptions) (*Services, error)

// SettingsOpener opens the settings in a config directory. An empty
// directory means the default location.
type SettingsOpener func(configDir string) (SettingsManager, error)

// Wired by Configure (or by tests).
var (
	openSettings    SettingsOpener
	buildServices   Builder
	settingsService SettingsManager
)

var rootCmd = &cobra.Command{
	Use:   "ragsync",
	Short: "Incremental document ingestion for retrieval",
	Long: `ragsync keeps a local vector index in step with a folder of documents
and a list of web pages. Only new or changed content is chunked and
embedded; everything else is skipped by fingerprint.

The index is read by 'ragsync search' and by the MCP server, which
reload it whenever a cycle saves a new version.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "trace every pipeline step")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only print errors")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ragsync)")
}

// Configure wires the command tree to the application.
func Configure(v string, opener SettingsOpener, builder Builder) {
	if v != "" {
		version = v
	}
	openSettings = opener
	buildServices = builder
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	if verboseFlag && quietFlag {
		return fmt.Errorf("%w: --verbose and --quiet are mutually exclusive", domain.ErrInvalidInput)
	}
	logger.SetVerbose(verboseFlag)
	logger.SetQuiet(quietFlag)

	if openSettings == nil {
		return nil
	}
	settings, err := openSettings(configDir)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	settingsService = settings
	return nil
}

// loadServices resolves settings, applies per-invocation overrides and
// builds the services. Callers must Close the result.
func loadServices(
	ctx context.Context,
	override func(*domain.AppSettings),
	progress func(done, total int),
) (*Services, error) {
	if settingsService == nil {
		return nil, errors.New("settings not configured")
	}
	if buildServices == nil {
		return nil, errors.New("services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if override != nil {
		override(settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	scheduler, err := settingsService.GetSchedulerConfig()
	if err != nil {
		return nil, fmt.Errorf("load scheduler settings: %w", err)
	}

	svc, err := buildServices(ctx, BuildOptions{
		Settings:  *settings,
		Scheduler: scheduler,
		Progress:  progress,
	})
	if err != nil {
		return nil, err
	}
	svc.Settings = *settings
	if svc.Close == nil {
		svc.Close = func() error { return nil }
	}
	return svc, nil
}

func closeServices(svc *Services) {
	if err := svc.Close(); err != nil {
		logger.Warn("Failed to close services: %v", err)
	}
}
