// Package extract chooses a text-extraction strategy per file extension
// and turns documents into plain text for classification and indexing.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy extracts plain text from one family of file formats.
type Strategy interface {
	// SupportedExtensions returns the lowercased extensions (with leading
	// dot) this strategy handles.
	SupportedExtensions() []string

	// Extract returns the text content of the file at path. Extraction is
	// idempotent and never mutates the file.
	Extract(path string) (string, error)
}

// ExtractionError wraps the underlying I/O or parse failure of a strategy.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Registry is an ordered sequence of strategies; the first strategy
// claiming an extension wins.
type Registry struct {
	strategies []Strategy
}

// NewRegistry returns a registry with the built-in strategies registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(&PlainTextStrategy{})
	r.Register(&PDFStrategy{})
	r.Register(&DocxStrategy{})
	return r
}

// Register appends a strategy to the registry.
func (r *Registry) Register(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// Get returns the strategy for the given path's extension, or nil if no
// strategy supports it.
func (r *Registry) Get(path string) Strategy {
	ext := NormalizeExtension(path)
	for _, s := range r.strategies {
		for _, supported := range s.SupportedExtensions() {
			if supported == ext {
				return s
			}
		}
	}
	return nil
}

// SupportedExtensions returns the union of all registered strategies'
// extensions.
func (r *Registry) SupportedExtensions() map[string]bool {
	out := make(map[string]bool)
	for _, s := range r.strategies {
		for _, ext := range s.SupportedExtensions() {
			out[ext] = true
		}
	}
	return out
}

// NormalizeExtension returns the lowercased extension of a path including
// the leading dot, or the empty string when there is none.
func NormalizeExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
