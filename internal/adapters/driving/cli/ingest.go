package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

var (
	ingestFolder    string
	ingestURLs      []string
	ingestRebuild   bool
	ingestSavePath  string
	ingestLoadPath  string
	ingestBenchmark bool
	ingestFrontend  bool
	ingestNoDedup   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion cycle",
	Long: `Loads the source folder and URLs, chunks new or changed content, embeds
it and merges it into the vector index.

Without --folder or --urls the configured watch folder and URLs are used.
Exits non-zero only when the index could not be saved or the flags are
invalid; a cycle with nothing new to index is a success.

Examples:
  ragsync ingest
  ragsync ingest --folder ~/papers --urls https://example.com/faq
  ragsync ingest --rebuild --benchmark`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFolder, "folder", "", "source folder to scan")
	ingestCmd.Flags().StringSliceVar(&ingestURLs, "urls", nil, "web pages to fetch (comma separated or repeated)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "discard the index and rebuild it from the sources")
	ingestCmd.Flags().StringVar(&ingestSavePath, "save-path", "", "where to save the index (default index.path)")
	ingestCmd.Flags().StringVar(&ingestLoadPath, "load-path", "", "index to extend (default the save path)")
	ingestCmd.Flags().BoolVar(&ingestBenchmark, "benchmark", false, "log the elapsed cycle time")
	ingestCmd.Flags().BoolVar(&ingestFrontend, "frontend", false, "tag documents as user uploads")
	ingestCmd.Flags().BoolVar(&ingestNoDedup, "no-dedup", false, "index every chunk even when already indexed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	var bar *ingestProgress
	var progress func(done, total int)
	if isTerminal(os.Stderr) && !quietFlag {
		bar = &ingestProgress{w: os.Stderr}
		progress = bar.update
	}

	svc, err := loadServices(cmd.Context(), func(s *domain.AppSettings) {
		if ingestNoDedup {
			s.Ingest.DedupEnabled = false
		}
	}, progress)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	settings := svc.Settings
	req := domain.CycleRequest{
		Folder:    ingestFolder,
		URLs:      ingestURLs,
		LoadPath:  ingestLoadPath,
		SavePath:  ingestSavePath,
		Origin:    domain.OriginBackend,
		Rebuild:   ingestRebuild,
		Benchmark: ingestBenchmark,
	}
	if req.Folder == "" && len(req.URLs) == 0 {
		req.Folder = settings.Watch.Folder
		req.URLs = settings.Watch.URLs
	}
	if req.SavePath == "" {
		req.SavePath = settings.Paths.Index
	}
	if ingestFrontend {
		req.Origin = domain.OriginFrontend
	}

	result, err := svc.Ingestor.RunCycle(cmd.Context(), req)
	bar.finish()
	if result != nil {
		printCycleResult(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// printCycleResult writes the cycle summary.
func printCycleResult(w io.Writer, r *domain.CycleResult) {
	st := stylesFor(w)

	headline := st.Success("Index updated")
	switch {
	case r.NoOp:
		headline = st.Muted("Nothing new to index")
	case r.Rebuilt:
		headline = st.Success("Index rebuilt")
	}
	fmt.Fprintln(w, headline)

	fmt.Fprintf(w, "  %s %d loaded, %d unchanged, %d skipped, %d failed\n",
		st.Label("Sources:"), r.SourcesLoaded, r.SourcesUnchanged, r.SourcesSkipped, r.SourcesFailed)
	fmt.Fprintf(w, "  %s %d produced, %d too short, %d duplicate, %d failed\n",
		st.Label("Chunks: "), r.ChunksProduced, r.ChunksFiltered, r.ChunksDuplicate, r.ChunksFailed)
	fmt.Fprintf(w, "  %s %d indexed, %d skipped\n", st.Label("Result: "), r.Indexed(), r.Skipped())
	if r.IndexEntries > 0 {
		fmt.Fprintf(w, "  %s %d entries\n", st.Label("Index:  "), r.IndexEntries)
	}
	if r.SourcesFailed > 0 || r.ChunksFailed > 0 {
		fmt.Fprintln(w, st.Warning("  Some sources or chunks failed; run with --verbose for details."))
	}
}

// ingestProgress draws an embedding progress bar, created on the first
// update once the total is known.
type ingestProgress struct {
	w   io.Writer
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *ingestProgress) update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("Embedding"),
			progressbar.OptionSetItsString("chunks"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(done)
}

func (p *ingestProgress) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.w)
	}
}
