// Package search turns natural-language queries into ranked file results
// by combining vector retrieval with metadata post-filtering.
package search

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/filebutler-io/filebutler/internal/embeddings"
	"github.com/filebutler-io/filebutler/internal/vectorindex"
)

// Snippet and normalization parameters.
const (
	snippetLength = 200
	maxDistance   = 2.0
	maxFetch      = 100
)

// Filters narrow a search. Extensions and FileType are applied inside the
// vector store; After, Before, and Tags are applied post-retrieval.
type Filters struct {
	Extensions []string
	FileType   string
	After      time.Time
	Before     time.Time
	Tags       []string
}

// Result is one ranked search hit.
type Result struct {
	FilePath       string
	Filename       string
	RelevanceScore float64
	ContentSnippet string
	Tags           []string
	FileType       string
	ModifiedAt     time.Time
	SizeBytes      int64
	Extension      string
}

// Engine executes semantic searches over the vector index.
type Engine struct {
	store     vectorindex.Store
	generator *embeddings.Generator
	logger    *slog.Logger
}

// NewEngine creates a search engine.
func NewEngine(store vectorindex.Store, generator *embeddings.Generator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, generator: generator, logger: logger}
}

// IndexedCount returns the number of files in the index.
func (e *Engine) IndexedCount() int {
	return e.store.Count()
}

// Search embeds the query, retrieves candidates from the store, applies
// post-filters, and returns up to limit results in store order (ascending
// distance). Queries shorter than two non-whitespace characters, an empty
// index, or an embedding failure yield an empty result set.
func (e *Engine) Search(ctx context.Context, query string, filters Filters, limit int) []Result {
	query = strings.TrimSpace(query)
	if len([]rune(strings.Join(strings.Fields(query), ""))) < 2 {
		e.logger.Warn("query too short", slog.String("query", query))
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	if e.store.Count() == 0 {
		e.logger.Info("search attempted on empty index")
		return nil
	}

	embedded := e.generator.Generate(ctx, query)
	if !embedded.Success {
		e.logger.Error("query embedding failed", slog.String("error", embedded.ErrorMessage))
		return nil
	}

	storeFilter := vectorindex.Filter{
		Extensions: normalizeExtensions(filters.Extensions),
		FileType:   filters.FileType,
	}

	fetch := limit * 2
	if fetch > maxFetch {
		fetch = maxFetch
	}

	hits, err := e.store.Search(ctx, embedded.Embedding, fetch, storeFilter)
	if err != nil {
		e.logger.Error("vector search failed", slog.Any("error", err))
		return nil
	}

	var results []Result
	for _, hit := range hits {
		if !passesPostFilters(hit.Metadata, filters) {
			continue
		}
		results = append(results, fromHit(hit))
		if len(results) == limit {
			break
		}
	}

	e.logger.Info("search complete",
		slog.String("query", query),
		slog.Int("results", len(results)),
	)
	return results
}

// normalizeExtensions lowercases extensions and ensures a leading dot.
func normalizeExtensions(exts []string) []string {
	var out []string
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// passesPostFilters applies the filters the store cannot index: date range
// (both bounds inclusive, missing mtime always passes) and tag intersection
// (case-insensitive, any match).
func passesPostFilters(meta vectorindex.IndexedFileMetadata, filters Filters) bool {
	if !filters.After.IsZero() && !meta.ModifiedAt.IsZero() && meta.ModifiedAt.Before(filters.After) {
		return false
	}
	if !filters.Before.IsZero() && !meta.ModifiedAt.IsZero() && meta.ModifiedAt.After(filters.Before) {
		return false
	}

	if len(filters.Tags) > 0 {
		fileTags := make(map[string]bool, len(meta.Tags))
		for _, t := range meta.Tags {
			fileTags[strings.ToLower(t)] = true
		}
		matched := false
		for _, t := range filters.Tags {
			if fileTags[strings.ToLower(t)] {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// fromHit converts a store hit into a Result with normalized relevance and
// a word-boundary snippet.
func fromHit(hit vectorindex.Hit) Result {
	return Result{
		FilePath:       hit.Metadata.FilePath,
		Filename:       hit.Metadata.Filename,
		RelevanceScore: relevance(hit.Distance),
		ContentSnippet: Snippet(hit.Document, snippetLength),
		Tags:           hit.Metadata.Tags,
		FileType:       hit.Metadata.FileType,
		ModifiedAt:     hit.Metadata.ModifiedAt,
		SizeBytes:      hit.Metadata.SizeBytes,
		Extension:      hit.Metadata.Extension,
	}
}

// relevance maps a distance in [0, maxDistance] to a score in [0, 1],
// rounded to three decimals.
func relevance(distance float64) float64 {
	score := 1 - distance/maxDistance
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return math.Round(score*1000) / 1000
}

// Snippet truncates document text near n characters, breaking at a word
// boundary when one is close enough, with a trailing ellipsis.
func Snippet(document string, n int) string {
	trimmed := strings.TrimSpace(document)
	runes := []rune(trimmed)
	if len(runes) <= n {
		return trimmed
	}

	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, " "); idx > n*3/4 {
		cut = cut[:idx]
	}
	return cut + "..."
}
