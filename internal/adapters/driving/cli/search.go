package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/services"
)

// snippetLength is the number of characters of chunk text shown per result.
const snippetLength = 200

var (
	searchK    int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query and returns the indexed passages closest in meaning,
nearest first. Distances are squared Euclidean; lower is closer.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", services.DefaultSearchLimit, "number of passages to return")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context(), nil, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)

	results, err := svc.Search.Search(cmd.Context(), args[0], searchK)
	if errors.Is(err, domain.ErrIndexNotFound) {
		st := stylesFor(cmd.OutOrStdout())
		cmd.Println(st.Warning("No index yet. Run 'ragsync ingest' first."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd.OutOrStdout(), results)
	}

	outputSearchTable(cmd.OutOrStdout(), results)
	return nil
}

func outputSearchJSON(w io.Writer, results []domain.SearchResult) error {
	if results == nil {
		results = []domain.SearchResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputSearchTable(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	st := stylesFor(w)
	fmt.Fprintln(w, st.Title("Results:"))
	fmt.Fprintln(w)
	for i := range results {
		// Format: [N] Source (page P) - distance
		location := results[i].Source
		if results[i].Page > 0 {
			location = fmt.Sprintf("%s (page %d)", location, results[i].Page)
		}
		fmt.Fprintf(w, "  [%d] %s %s\n", i+1, st.Label(location),
			st.Muted(fmt.Sprintf("%.4f", results[i].Distance)))
		fmt.Fprintf(w, "      %s\n", snippet(results[i].Text, snippetLength))
		fmt.Fprintln(w)
	}
}

// snippet collapses whitespace and truncates text to at most n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
