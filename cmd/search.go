package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Find files by meaning, not just name",
	Long: `Searches the semantic index with a natural-language query. Results are
ranked by relevance and can be narrowed by type, date range, and tags.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("type", "", "comma-separated extensions (e.g. pdf,docx)")
	searchCmd.Flags().String("after", "", "only files modified after this date (YYYY-MM-DD)")
	searchCmd.Flags().String("before", "", "only files modified before this date (YYYY-MM-DD)")
	searchCmd.Flags().StringArray("tag", nil, "required tag (repeatable; any match)")
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("compact", false, "one line per result")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")

	filters, err := parseSearchFilters(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")
	compact, _ := cmd.Flags().GetBool("compact")

	engine, err := newSearchEngine(cfg, logger)
	if err != nil {
		return err
	}

	if engine.IndexedCount() == 0 {
		fmt.Println("The index is empty. Run `filebutler index PATH` first.")
		return nil
	}

	results := engine.Search(context.Background(), query, filters, limit)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(searchResultsJSON(results))
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		if compact {
			fmt.Printf("%5.1f%%  %s\n", r.RelevanceScore*100, r.FilePath)
			continue
		}
		fmt.Printf("%d. %s  [%.1f%%]\n", i+1, r.Filename, r.RelevanceScore*100)
		fmt.Printf("   %s\n", r.FilePath)
		info := []string{}
		if r.Extension != "" {
			info = append(info, "Type: "+r.Extension)
		}
		if r.SizeBytes > 0 {
			info = append(info, "Size: "+formatSize(r.SizeBytes))
		}
		if !r.ModifiedAt.IsZero() {
			info = append(info, "Modified: "+r.ModifiedAt.Format("2006-01-02"))
		}
		if len(info) > 0 {
			fmt.Printf("   %s\n", strings.Join(info, " | "))
		}
		if len(r.Tags) > 0 {
			fmt.Printf("   Tags: %s\n", strings.Join(r.Tags, ", "))
		}
		if r.ContentSnippet != "" {
			fmt.Printf("   %s\n", r.ContentSnippet)
		}
		fmt.Println()
	}
	return nil
}

func parseSearchFilters(cmd *cobra.Command) (search.Filters, error) {
	var filters search.Filters

	if typeFlag, _ := cmd.Flags().GetString("type"); typeFlag != "" {
		for _, ext := range strings.Split(typeFlag, ",") {
			if trimmed := strings.TrimSpace(ext); trimmed != "" {
				filters.Extensions = append(filters.Extensions, trimmed)
			}
		}
	}

	if after, _ := cmd.Flags().GetString("after"); after != "" {
		t, err := time.Parse("2006-01-02", after)
		if err != nil {
			return filters, fmt.Errorf("invalid --after date %q: use YYYY-MM-DD", after)
		}
		filters.After = t
	}
	if before, _ := cmd.Flags().GetString("before"); before != "" {
		t, err := time.Parse("2006-01-02", before)
		if err != nil {
			return filters, fmt.Errorf("invalid --before date %q: use YYYY-MM-DD", before)
		}
		filters.Before = t
	}

	filters.Tags, _ = cmd.Flags().GetStringArray("tag")
	return filters, nil
}

type searchResultJSON struct {
	Rank       int      `json:"rank"`
	Relevance  float64  `json:"relevance"`
	FilePath   string   `json:"file_path"`
	Filename   string   `json:"filename"`
	Extension  string   `json:"extension,omitempty"`
	SizeBytes  int64    `json:"size_bytes,omitempty"`
	ModifiedAt string   `json:"modified_at,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
}

func searchResultsJSON(results []search.Result) []searchResultJSON {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		row := searchResultJSON{
			Rank:      i + 1,
			Relevance: r.RelevanceScore,
			FilePath:  r.FilePath,
			Filename:  r.Filename,
			Extension: r.Extension,
			SizeBytes: r.SizeBytes,
			Tags:      r.Tags,
			Snippet:   r.ContentSnippet,
		}
		if !r.ModifiedAt.IsZero() {
			row.ModifiedAt = r.ModifiedAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	return out
}
