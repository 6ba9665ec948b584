package extract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PreviewLength is the number of characters included in a content preview.
const PreviewLength = 500

// FileMetadata holds the filesystem-level facts about a file, computed
// before extraction.
type FileMetadata struct {
	Path       string
	Filename   string
	Extension  string
	SizeBytes  int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	HashMD5    string
}

// AnalysisResult is the outcome of analyzing one file. On failure, Success
// is false and ErrorMessage explains why; content fields are empty.
type AnalysisResult struct {
	Path           string
	Metadata       FileMetadata
	Content        string
	ContentPreview string
	WordCount      int
	LineCount      int
	Success        bool
	ErrorMessage   string
}

// HasContent reports whether extraction produced non-blank text.
func (r AnalysisResult) HasContent() bool {
	return strings.TrimSpace(r.Content) != ""
}

// Analyzer wraps the extractor registry with metadata collection, a size
// cap, and preview generation.
type Analyzer struct {
	registry *Registry
	maxBytes int64
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer. Files larger than maxBytes are rejected
// without invoking any extraction strategy.
func NewAnalyzer(registry *Registry, maxBytes int64, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{registry: registry, maxBytes: maxBytes, logger: logger}
}

// SupportedExtensions exposes the registry's extension set.
func (a *Analyzer) SupportedExtensions() map[string]bool {
	return a.registry.SupportedExtensions()
}

// CanAnalyze reports whether path points at a regular file with a
// supported extension.
func (a *Analyzer) CanAnalyze(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return a.registry.Get(path) != nil
}

// Analyze extracts metadata and content from one file. Extraction failures
// are reported in the result, not returned as errors.
func (a *Analyzer) Analyze(path string) AnalysisResult {
	abs, err := filepath.Abs(path)
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
			abs = resolved
		}
		path = abs
	}

	result := AnalysisResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("file not found: %s", path)
		return result
	}
	if !info.Mode().IsRegular() {
		result.ErrorMessage = fmt.Sprintf("not a regular file: %s", path)
		return result
	}

	result.Metadata = FileMetadata{
		Path:       path,
		Filename:   filepath.Base(path),
		Extension:  NormalizeExtension(path),
		SizeBytes:  info.Size(),
		CreatedAt:  createdTime(info),
		ModifiedAt: info.ModTime(),
		HashMD5:    computeMD5(path, a.logger),
	}

	if a.maxBytes > 0 && info.Size() > a.maxBytes {
		result.ErrorMessage = fmt.Sprintf(
			"file too large: %.1fMB exceeds limit of %.0fMB",
			float64(info.Size())/1024/1024, float64(a.maxBytes)/1024/1024,
		)
		return result
	}

	strategy := a.registry.Get(path)
	if strategy == nil {
		result.ErrorMessage = fmt.Sprintf("no extractor available for extension: %s", result.Metadata.Extension)
		return result
	}

	content, err := strategy.Extract(path)
	if err != nil {
		a.logger.Error("extraction failed", slog.String("path", path), slog.Any("error", err))
		result.ErrorMessage = err.Error()
		return result
	}

	result.Content = content
	result.ContentPreview = Preview(content, PreviewLength)
	result.WordCount = len(strings.Fields(content))
	if content != "" {
		result.LineCount = strings.Count(content, "\n") + 1
	}
	result.Success = true

	a.logger.Debug("analyzed file",
		slog.String("path", path),
		slog.Int("words", result.WordCount),
		slog.Int64("bytes", result.Metadata.SizeBytes),
	)

	return result
}

// Preview returns the leading n characters of content, suffixed with "..."
// when truncated.
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}

func computeMD5(path string, logger *slog.Logger) string {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("could not hash file", slog.String("path", path), slog.Any("error", err))
		return ""
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		logger.Warn("could not hash file", slog.String("path", path), slog.Any("error", err))
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
