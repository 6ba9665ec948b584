package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/filebutler-io/filebutler/internal/embeddings"
)

// DefaultCollection is the collection holding all indexed files.
const DefaultCollection = "filebutler_files"

const idRegistryFile = "ids.json"

// ChromemStore implements Store using chromem-go. The embedded store keys
// documents by id and replaces on re-add, which gives upsert semantics
// directly. An id registry sidecar supports enumeration, which chromem
// does not expose.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dir        string // empty for in-memory stores
	embedFunc  chromem.EmbeddingFunc
	logger     *slog.Logger

	mu  sync.Mutex
	ids map[string]bool
}

// NewChromemStore opens or creates a persistent store in dir.
func NewChromemStore(dir string, embedder embeddings.Embedder, logger *slog.Logger) (*ChromemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector store directory: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	return newStore(db, dir, embedder, logger)
}

// NewMemoryStore creates a non-persistent store (useful for testing).
func NewMemoryStore(embedder embeddings.Embedder, logger *slog.Logger) (*ChromemStore, error) {
	return newStore(chromem.NewDB(), "", embedder, logger)
}

func newStore(db *chromem.DB, dir string, embedder embeddings.Embedder, logger *slog.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var ef chromem.EmbeddingFunc
	if embedder != nil {
		ef = embeddings.ToChromemFunc(embedder)
	}

	col, err := db.GetOrCreateCollection(DefaultCollection, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s := &ChromemStore{
		db:         db,
		collection: col,
		name:       DefaultCollection,
		dir:        dir,
		embedFunc:  ef,
		logger:     logger,
		ids:        make(map[string]bool),
	}
	if err := s.loadIDs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, fileID string, embedding []float32, document string, meta IndexedFileMetadata) error {
	meta.FileID = fileID
	doc := chromem.Document{
		ID:        fileID,
		Metadata:  meta.ToMap(),
		Embedding: embedding,
		Content:   truncate(document, MaxSnippetChars),
	}

	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("upserting %s: %w", fileID, err)
	}

	s.mu.Lock()
	s.ids[fileID] = true
	err := s.saveIDsLocked()
	s.mu.Unlock()
	return err
}

func (s *ChromemStore) Delete(ctx context.Context, fileID string) error {
	s.mu.Lock()
	known := s.ids[fileID]
	s.mu.Unlock()
	if !known {
		return nil
	}

	if err := s.collection.Delete(ctx, nil, nil, fileID); err != nil {
		return fmt.Errorf("deleting %s: %w", fileID, err)
	}

	s.mu.Lock()
	delete(s.ids, fileID)
	err := s.saveIDsLocked()
	s.mu.Unlock()
	return err
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Get(ctx context.Context, fileID string) (IndexedFileMetadata, string, bool) {
	doc, err := s.collection.GetByID(ctx, fileID)
	if err != nil {
		return IndexedFileMetadata{}, "", false
	}
	return MetadataFromMap(doc.Metadata), doc.Content, true
}

func (s *ChromemStore) IsIndexed(ctx context.Context, fileID, contentHash string) bool {
	meta, _, ok := s.Get(ctx, fileID)
	if !ok {
		return false
	}
	if contentHash == "" {
		return true
	}
	return meta.ContentHash == contentHash
}

func (s *ChromemStore) Search(ctx context.Context, queryEmbedding []float32, k int, filter Filter) ([]Hit, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	where := make(map[string]string)
	if filter.FileType != "" {
		where["file_type"] = filter.FileType
	}

	// The store's where clause is equality-only: a single extension goes
	// into the clause, an in-of-list is applied façade-side over a wider
	// fetch.
	extSet := make(map[string]bool, len(filter.Extensions))
	for _, ext := range filter.Extensions {
		extSet[ext] = true
	}
	n := k
	switch {
	case len(extSet) == 1:
		where["extension"] = filter.Extensions[0]
	case len(extSet) > 1:
		n = count
	}
	if n > count {
		n = count
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := s.collection.QueryEmbedding(ctx, queryEmbedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		meta := MetadataFromMap(r.Metadata)
		if len(extSet) > 1 && !extSet[meta.Extension] {
			continue
		}
		hits = append(hits, Hit{
			Metadata: meta,
			Distance: similarityToDistance(r.Similarity),
			Document: r.Content,
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

func (s *ChromemStore) AllIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *ChromemStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}
	s.collection = col

	s.mu.Lock()
	s.ids = make(map[string]bool)
	err = s.saveIDsLocked()
	s.mu.Unlock()
	return err
}

// similarityToDistance converts cosine similarity to squared L2 distance
// on the unit sphere, the scale the search engine normalizes relevance
// against.
func similarityToDistance(sim float32) float64 {
	d := 2 * (1 - float64(sim))
	if d < 0 {
		return 0
	}
	return d
}

// loadIDs restores the id registry sidecar from disk.
func (s *ChromemStore) loadIDs() error {
	if s.dir == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, idRegistryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading id registry: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parsing id registry: %w", err)
	}
	for _, id := range ids {
		s.ids[id] = true
	}
	return nil
}

func (s *ChromemStore) saveIDsLocked() error {
	if s.dir == "" {
		return nil
	}
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, idRegistryFile), data, 0o644); err != nil {
		s.logger.Warn("could not persist id registry", slog.Any("error", err))
	}
	return nil
}
