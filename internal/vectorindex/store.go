// Package vectorindex is a thin façade over a persistent embedded vector
// store. A single collection holds one entry per file, keyed by file id,
// with a document snippet and structured metadata for filtering.
package vectorindex

import "context"

// Filter narrows search results inside the store. Extensions is an
// in-of-list match; FileType is an equality match; both combine with AND.
type Filter struct {
	Extensions []string
	FileType   string
}

// Hit is one search result: metadata, distance (lower is more similar),
// and the stored document snippet.
type Hit struct {
	Metadata IndexedFileMetadata
	Distance float64
	Document string
}

// Store is the persistent vector index consumed by the search engine and
// the indexing driver.
type Store interface {
	// Upsert adds or replaces the entry for fileID. Idempotent: the last
	// upsert wins. The document snippet is truncated to MaxSnippetChars.
	Upsert(ctx context.Context, fileID string, embedding []float32, document string, meta IndexedFileMetadata) error

	// Delete removes an entry; no-op if absent.
	Delete(ctx context.Context, fileID string) error

	// Count returns the number of entries.
	Count() int

	// Get returns an entry's metadata and document snippet, or ok=false.
	Get(ctx context.Context, fileID string) (IndexedFileMetadata, string, bool)

	// IsIndexed reports whether an entry exists and, when contentHash is
	// non-empty, whether its stored hash matches.
	IsIndexed(ctx context.Context, fileID, contentHash string) bool

	// Search returns up to k entries ordered by ascending distance,
	// restricted by the filter.
	Search(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]Hit, error)

	// AllIDs lists every entry id.
	AllIDs() []string

	// Clear drops the collection.
	Clear(ctx context.Context) error
}
