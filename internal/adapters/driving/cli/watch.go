package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// metricsShutdownTimeout bounds in-flight scrapes on exit.
const metricsShutdownTimeout = 5 * time.Second

var (
	watchFolder      string
	watchURLs        []string
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in step with the source folder",
	Long: `Watches the source folder and runs an ingestion cycle shortly after
files are created or modified. A periodic sweep catches anything the
watcher missed and refetches the configured URLs.

Runs until interrupted (Ctrl+C or SIGTERM). An in-flight cycle is allowed
to finish before exit.

Examples:
  ragsync watch
  ragsync watch --folder ~/papers --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFolder, "folder", "", "source folder to watch (default watch.folder)")
	watchCmd.Flags().StringSliceVar(&watchURLs, "urls", nil, "web pages to refetch on every sweep (default watch.urls)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context(), func(s *domain.AppSettings) {
		if watchFolder != "" {
			s.Watch.Folder = watchFolder
		}
		if len(watchURLs) > 0 {
			s.Watch.URLs = watchURLs
		}
	}, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Scheduler.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down, waiting for any running cycle")
		return svc.Scheduler.Stop()
	})

	if watchMetricsAddr != "" && svc.Metrics != nil {
		srv := prometheus.NewServer(watchMetricsAddr, svc.Metrics)
		g.Go(func() error {
			logger.Info("Metrics available at http://%s/metrics", watchMetricsAddr)
			return srv.ListenAndServe()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("Watching %s", svc.Settings.Watch.Folder)
	return g.Wait()
}
