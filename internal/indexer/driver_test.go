package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/filebutler-io/filebutler/internal/db"
	"github.com/filebutler-io/filebutler/internal/embeddings"
	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/vectorindex"
)

// --- Mock embedder ---

type mockEmbedder struct {
	fail bool
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.fail {
		return nil, context.DeadlineExceeded
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, 8)
		for j := range vec {
			vec[j] = float32((len(t)+j)%13) + 1
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 8 }
func (m *mockEmbedder) Name() string    { return "mock" }

func newTestDriver(t *testing.T, embedderFails bool) (*Driver, *vectorindex.ChromemStore, *db.DB) {
	t.Helper()

	store, err := vectorindex.NewMemoryStore(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	records, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { records.Close() })

	gen := embeddings.NewGenerator(&mockEmbedder{fail: embedderFails}, 0, 0, nil)
	return New(extract.NewRegistry(), gen, store, records, nil), store, records
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileIDStable(t *testing.T) {
	a := FileID("/home/user/doc.txt")
	b := FileID("/home/user/doc.txt")
	if a != b {
		t.Errorf("FileID not stable: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "file_") || len(a) != len("file_")+8 {
		t.Errorf("FileID shape = %q", a)
	}
	if a == FileID("/home/user/other.txt") {
		t.Error("different paths must get different ids")
	}
}

func TestCollectFilters(t *testing.T) {
	root := t.TempDir()
	write(t, root, "keep.md", "text")
	write(t, root, "keep.go", "package x")
	write(t, root, "sub/nested.txt", "deep")
	write(t, root, ".hidden/secret.txt", "hidden dir")
	write(t, root, ".dotfile.txt", "hidden file")
	write(t, root, "binary.png", "png")
	write(t, root, "big.txt", strings.Repeat("x", 2048))

	d, _, _ := newTestDriver(t, false)

	files, err := d.Collect(root, Options{Recursive: true, MaxFileSize: 1024})
	if err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(files, "\n")
	for _, want := range []string{"keep.md", "keep.go", "nested.txt"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %s in:\n%s", want, joined)
		}
	}
	for _, banned := range []string{".hidden", ".dotfile", "binary.png", "big.txt"} {
		if strings.Contains(joined, banned) {
			t.Errorf("should have filtered %s:\n%s", banned, joined)
		}
	}
}

func TestCollectNonRecursive(t *testing.T) {
	root := t.TempDir()
	write(t, root, "top.txt", "x")
	write(t, root, "sub/deep.txt", "y")

	d, _, _ := newTestDriver(t, false)
	files, err := d.Collect(root, Options{Recursive: false})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || !strings.HasSuffix(files[0], "top.txt") {
		t.Errorf("files = %v", files)
	}
}

func TestCollectExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "keep.txt", "x")
	write(t, root, "logs/app.log", "y")
	write(t, root, "notes.log", "z")

	d, _, _ := newTestDriver(t, false)
	files, err := d.Collect(root, Options{Recursive: true, ExcludeGlobs: []string{"**/*.log", "*.log"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || !strings.HasSuffix(files[0], "keep.txt") {
		t.Errorf("files = %v", files)
	}
}

func TestRunIndexesAndCounts(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "the first document body")
	write(t, root, "b.md", "the second document body")
	write(t, root, "empty.txt", "   \n  ")

	d, store, records := newTestDriver(t, false)

	stats, err := d.Run(context.Background(), root, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}

	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", stats.Indexed)
	}
	if stats.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (empty file)", stats.Skipped)
	}
	if got := stats.Indexed + stats.AlreadyIndexed + stats.Skipped + len(stats.Errors); got != stats.Total {
		t.Errorf("stats do not add up: %d != %d", got, stats.Total)
	}
	if store.Count() != 2 {
		t.Errorf("store count = %d, want 2", store.Count())
	}

	// File records were created with processed status and embedding refs.
	path, _ := filepath.EvalSymlinks(filepath.Join(root, "a.txt"))
	rec, err := records.GetFileByPath(path)
	if err != nil {
		t.Fatalf("file record missing: %v", err)
	}
	if rec.Status != db.StatusProcessed {
		t.Errorf("status = %q", rec.Status)
	}
	if rec.EmbeddingRef != FileID(path) {
		t.Errorf("embedding ref = %q, want %q", rec.EmbeddingRef, FileID(path))
	}
}

func TestRunHashBasedSkip(t *testing.T) {
	root := t.TempDir()
	readme := write(t, root, "readme.md", "hello world")

	d, _, _ := newTestDriver(t, false)
	ctx := context.Background()

	// First run indexes.
	stats, err := d.Run(ctx, root, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 1 {
		t.Fatalf("first run indexed = %d", stats.Indexed)
	}

	// Unchanged rerun is skipped as already indexed.
	stats, err = d.Run(ctx, root, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 0 || stats.AlreadyIndexed != 1 {
		t.Errorf("unchanged rerun: indexed=%d already=%d, want 0/1", stats.Indexed, stats.AlreadyIndexed)
	}

	// Edit the file: the stale hash forces a re-index.
	if err := os.WriteFile(readme, []byte("hello there"), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err = d.Run(ctx, root, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 1 || stats.AlreadyIndexed != 0 {
		t.Errorf("changed rerun: indexed=%d already=%d, want 1/0", stats.Indexed, stats.AlreadyIndexed)
	}
}

func TestRunForceReindexes(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "body")

	d, _, _ := newTestDriver(t, false)
	ctx := context.Background()

	if _, err := d.Run(ctx, root, Options{Recursive: true}); err != nil {
		t.Fatal(err)
	}
	stats, err := d.Run(ctx, root, Options{Recursive: true, Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Indexed != 1 || stats.AlreadyIndexed != 0 {
		t.Errorf("force rerun: indexed=%d already=%d", stats.Indexed, stats.AlreadyIndexed)
	}
}

func TestRunEmbeddingFailureCounted(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "body text")
	write(t, root, "b.txt", "more body text")

	d, store, _ := newTestDriver(t, true)

	stats, err := d.Run(context.Background(), root, Options{Recursive: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Errors) != 2 {
		t.Errorf("errors = %d, want 2", len(stats.Errors))
	}
	if stats.Indexed != 0 || store.Count() != 0 {
		t.Errorf("nothing should be indexed on embedding failure")
	}
	// Per-file errors never abort the batch.
	if got := stats.Indexed + stats.AlreadyIndexed + stats.Skipped + len(stats.Errors); got != stats.Total {
		t.Errorf("stats do not add up")
	}
}

func TestRunProgressCallback(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "one")
	write(t, root, "b.txt", "two")

	d, _, _ := newTestDriver(t, false)
	var calls int
	d.SetProgressFunc(func(done, total int, _ string) {
		calls++
		if total != 2 {
			t.Errorf("total = %d", total)
		}
	})

	if _, err := d.Run(context.Background(), root, Options{Recursive: true}); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("progress calls = %d, want 2", calls)
	}
}

func TestRunMissingRoot(t *testing.T) {
	d, _, _ := newTestDriver(t, false)
	if _, err := d.Run(context.Background(), "/no/such/root", Options{}); err == nil {
		t.Error("expected error for missing root")
	}
}
