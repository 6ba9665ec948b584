// Package indexer walks directories, decides per file whether re-indexing
// is needed, and drives extraction, embedding, and vector-index upserts.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/filebutler-io/filebutler/internal/db"
	"github.com/filebutler-io/filebutler/internal/embeddings"
	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/vectorindex"
)

// summaryLength is the content summary stored with each index entry.
const summaryLength = 500

// Options control one indexing run.
type Options struct {
	Recursive    bool
	Force        bool
	MaxFileSize  int64    // bytes; 0 means no limit
	ExcludeGlobs []string // doublestar patterns matched against the path relative to root
}

// FileError pairs a failed path with its cause.
type FileError struct {
	Path string
	Err  error
}

// Stats summarize an indexing run. Indexed + AlreadyIndexed + Skipped +
// len(Errors) always equals Total.
type Stats struct {
	Total          int
	Indexed        int
	AlreadyIndexed int
	Skipped        int
	Errors         []FileError
	Duration       time.Duration
}

// ProgressFunc is invoked after each candidate file is handled.
type ProgressFunc func(done, total int, path string)

// Driver is the single-threaded batch indexing job.
type Driver struct {
	registry   *extract.Registry
	generator  *embeddings.Generator
	store      vectorindex.Store
	records    *db.DB
	logger     *slog.Logger
	onProgress ProgressFunc
}

// New creates a driver. records may be nil to skip file-record creation.
func New(registry *extract.Registry, generator *embeddings.Generator, store vectorindex.Store, records *db.DB, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		registry:  registry,
		generator: generator,
		store:     store,
		records:   records,
		logger:    logger,
	}
}

// SetProgressFunc sets the progress callback.
func (d *Driver) SetProgressFunc(fn ProgressFunc) {
	d.onProgress = fn
}

// FileID derives the stable vector-index id for a canonical absolute
// path: a 32-bit FNV-1a hash rendered in hex. The same path always yields
// the same id within a host.
func FileID(path string) string {
	h := fnv.New32a()
	h.Write([]byte(path))
	return fmt.Sprintf("file_%08x", h.Sum32())
}

// Collect enumerates the candidate files under root, applying the hidden-
// component, extension, size, and exclude-glob filters. The result is
// sorted.
func (d *Driver) Collect(root string, opts Options) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("index root: %w", err)
	}

	indexable := d.registry.SupportedExtensions()
	var files []string

	walk := func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if entry.IsDir() {
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if hasHiddenComponent(root, path) {
			return nil
		}
		if !indexable[extract.NormalizeExtension(path)] {
			return nil
		}
		if matchesExclude(root, path, opts.ExcludeGlobs) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			return nil
		}

		files = append(files, path)
		return nil
	}

	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Run indexes everything under root according to opts.
func (d *Driver) Run(ctx context.Context, root string, opts Options) (Stats, error) {
	start := time.Now()

	files, err := d.Collect(root, opts)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(files)}
	for i, path := range files {
		d.indexOne(ctx, path, opts.Force, &stats)
		if d.onProgress != nil {
			d.onProgress(i+1, len(files), path)
		}
	}

	stats.Duration = time.Since(start)
	d.logger.Info("indexing run complete",
		slog.String("root", root),
		slog.Int("total", stats.Total),
		slog.Int("indexed", stats.Indexed),
		slog.Int("already_indexed", stats.AlreadyIndexed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("errors", len(stats.Errors)),
	)
	return stats, nil
}

// indexOne handles a single candidate, charging exactly one of the stats
// buckets.
func (d *Driver) indexOne(ctx context.Context, path string, force bool, stats *Stats) {
	canonical := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		canonical = resolved
	}
	fileID := FileID(canonical)

	text, err := d.extractText(path)
	if err != nil {
		stats.Errors = append(stats.Errors, FileError{Path: path, Err: err})
		return
	}
	if strings.TrimSpace(text) == "" {
		stats.Skipped++
		return
	}

	contentHash := vectorindex.ComputeContentHash(text)
	if !force && d.store.IsIndexed(ctx, fileID, contentHash) {
		stats.AlreadyIndexed++
		return
	}

	embedded := d.generator.Generate(ctx, text)
	if !embedded.Success {
		stats.Errors = append(stats.Errors, FileError{Path: path, Err: errors.New(embedded.ErrorMessage)})
		return
	}

	meta := d.buildMetadata(canonical, text, contentHash)
	if err := d.store.Upsert(ctx, fileID, embedded.Embedding, text, meta); err != nil {
		stats.Errors = append(stats.Errors, FileError{Path: path, Err: err})
		return
	}

	if err := d.ensureFileRecord(canonical, meta, fileID); err != nil {
		d.logger.Warn("could not persist file record",
			slog.String("path", canonical),
			slog.Any("error", err),
		)
	}

	stats.Indexed++
}

// extractText uses the registry strategy for the extension, falling back
// to plain-text decoding for text-like files no strategy owns.
func (d *Driver) extractText(path string) (string, error) {
	if strategy := d.registry.Get(path); strategy != nil {
		return strategy.Extract(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return extract.DecodeText(path, data)
}

func (d *Driver) buildMetadata(path, text, contentHash string) vectorindex.IndexedFileMetadata {
	meta := vectorindex.IndexedFileMetadata{
		FileID:         FileID(path),
		FilePath:       path,
		Filename:       filepath.Base(path),
		Extension:      extract.NormalizeExtension(path),
		FileType:       "document",
		ContentSummary: extract.Preview(text, summaryLength),
		ContentHash:    contentHash,
		IndexedAt:      time.Now(),
		SourceFolder:   filepath.Base(filepath.Dir(path)),
	}
	if info, err := os.Stat(path); err == nil {
		meta.SizeBytes = info.Size()
		meta.ModifiedAt = info.ModTime()
		meta.CreatedAt = info.ModTime()
	}
	return meta
}

// ensureFileRecord creates the persistence row for newly indexed paths.
func (d *Driver) ensureFileRecord(path string, meta vectorindex.IndexedFileMetadata, fileID string) error {
	if d.records == nil {
		return nil
	}

	existing, err := d.records.GetFileByPath(path)
	if err == nil {
		if existing.EmbeddingRef != fileID {
			return d.records.SetEmbeddingRef(existing.ID, fileID)
		}
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return err
	}

	_, err = d.records.CreateFile(db.FileRecord{
		Path:         path,
		Filename:     meta.Filename,
		Extension:    meta.Extension,
		SizeBytes:    meta.SizeBytes,
		Status:       db.StatusProcessed,
		Summary:      meta.ContentSummary,
		EmbeddingRef: fileID,
	})
	return err
}

// hasHiddenComponent reports whether any path component below root starts
// with a dot.
func hasHiddenComponent(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// matchesExclude checks the path (relative to root) against the exclude
// globs, including bare-filename matches.
func matchesExclude(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	normalized := filepath.ToSlash(rel)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(normalized)); err == nil && matched {
			return true
		}
	}
	return false
}
