package mover

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filebutler-io/filebutler/internal/db"
)

func newTestMover(t *testing.T) (*Mover, string, string) {
	t.Helper()
	store, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	organized := t.TempDir()
	inbox := t.TempDir()
	return New(organized, store, nil), organized, inbox
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMoveHappyPath(t *testing.T) {
	m, organized, inbox := newTestMover(t)
	source := writeFile(t, filepath.Join(inbox, "report.txt"), "contents")

	result := m.Move(source, "Docs/Work")
	require.True(t, result.Success, result.ErrorMessage)

	want := filepath.Join(organized, "Docs", "Work", "report.txt")
	assert.Equal(t, want, result.DestinationPath)

	// Source gone, destination present with identical content.
	_, err := os.Stat(source)
	assert.True(t, os.IsNotExist(err), "source must no longer exist")
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))

	assert.NotZero(t, result.ActionID, "move must be recorded")
}

func TestMoveCollisionResolution(t *testing.T) {
	m, organized, inbox := newTestMover(t)

	// Pre-place a file at the destination.
	require.NoError(t, os.MkdirAll(filepath.Join(organized, "Docs"), 0o755))
	writeFile(t, filepath.Join(organized, "Docs", "a.txt"), "existing")

	source := writeFile(t, filepath.Join(inbox, "a.txt"), "incoming")
	result := m.Move(source, "Docs")
	require.True(t, result.Success, result.ErrorMessage)

	assert.Equal(t, filepath.Join(organized, "Docs", "a (1).txt"), result.DestinationPath)
	_, err := os.Stat(source)
	assert.True(t, os.IsNotExist(err))

	// A second collision probes (2).
	source2 := writeFile(t, filepath.Join(inbox, "a.txt"), "third")
	result2 := m.Move(source2, "Docs")
	require.True(t, result2.Success)
	assert.Equal(t, filepath.Join(organized, "Docs", "a (2).txt"), result2.DestinationPath)
}

func TestMoveCollisionKeepsAllSuffixes(t *testing.T) {
	m, organized, inbox := newTestMover(t)

	require.NoError(t, os.MkdirAll(filepath.Join(organized, "Archives"), 0o755))
	writeFile(t, filepath.Join(organized, "Archives", "backup.tar.gz"), "old")

	source := writeFile(t, filepath.Join(inbox, "backup.tar.gz"), "new")
	result := m.Move(source, "Archives")
	require.True(t, result.Success)
	assert.Equal(t, "backup (1).tar.gz", filepath.Base(result.DestinationPath))
}

func TestMoveMissingSource(t *testing.T) {
	m, _, inbox := newTestMover(t)

	result := m.Move(filepath.Join(inbox, "nope.txt"), "Docs")
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "source")
}

func TestMoveDirectorySourceRejected(t *testing.T) {
	m, _, inbox := newTestMover(t)
	sub := filepath.Join(inbox, "dir.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	result := m.Move(sub, "Docs")
	assert.False(t, result.Success)
}

func TestMoveRecordsCreateFolderActions(t *testing.T) {
	m, _, inbox := newTestMover(t)
	source := writeFile(t, filepath.Join(inbox, "x.txt"), "x")

	result := m.Move(source, "New/Deep/Path")
	require.True(t, result.Success)

	folders, err := m.store.RecentActions(db.ActionCreateFolder, 10)
	require.NoError(t, err)
	assert.Len(t, folders, 3, "one create_folder action per new level")
}

func TestUndoRoundTrip(t *testing.T) {
	m, _, inbox := newTestMover(t)
	source := writeFile(t, filepath.Join(inbox, "notes.md"), "note body")

	moved := m.Move(source, "Notes")
	require.True(t, moved.Success)

	restored, err := m.UndoMove(moved.ActionID)
	require.NoError(t, err)
	assert.Equal(t, source, restored.DestinationPath)

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "note body", string(data))

	_, err = os.Stat(moved.DestinationPath)
	assert.True(t, os.IsNotExist(err), "moved copy must be gone after undo")

	// The action is marked undone; a second undo fails.
	action, err := m.store.GetAction(moved.ActionID)
	require.NoError(t, err)
	assert.True(t, action.Undone)

	_, err = m.UndoMove(moved.ActionID)
	assert.ErrorIs(t, err, ErrAlreadyUndone)
}

func TestUndoDoesNotLogNewAction(t *testing.T) {
	m, _, inbox := newTestMover(t)
	source := writeFile(t, filepath.Join(inbox, "a.txt"), "x")

	moved := m.Move(source, "Docs")
	require.True(t, moved.Success)

	before, err := m.store.CountActions()
	require.NoError(t, err)

	_, err = m.UndoMove(moved.ActionID)
	require.NoError(t, err)

	after, err := m.store.CountActions()
	require.NoError(t, err)
	assert.Equal(t, before, after, "undo must not append actions")
}

func TestUndoCollisionAtOrigin(t *testing.T) {
	m, _, inbox := newTestMover(t)
	source := writeFile(t, filepath.Join(inbox, "b.txt"), "original")

	moved := m.Move(source, "Docs")
	require.True(t, moved.Success)

	// A new file occupies the origin path before the undo.
	writeFile(t, source, "squatter")

	restored, err := m.UndoMove(moved.ActionID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(inbox, "b (1).txt"), restored.DestinationPath)

	// Both files survive.
	squatter, _ := os.ReadFile(source)
	assert.Equal(t, "squatter", string(squatter))
	original, _ := os.ReadFile(restored.DestinationPath)
	assert.Equal(t, "original", string(original))
}

func TestUndoFailureModes(t *testing.T) {
	m, _, inbox := newTestMover(t)

	_, err := m.UndoMove(999)
	assert.ErrorIs(t, err, ErrActionNotFound)

	// Non-move actions cannot be undone.
	folderID, err := m.store.RecordAction(db.ActionCreateFolder, nil,
		map[string]any{"path": "/x"}, map[string]any{"path": "/x"})
	require.NoError(t, err)
	_, err = m.UndoMove(folderID)
	assert.ErrorIs(t, err, ErrNotUndoable)

	// Missing file at the after path.
	source := writeFile(t, filepath.Join(inbox, "gone.txt"), "x")
	moved := m.Move(source, "Docs")
	require.True(t, moved.Success)
	require.NoError(t, os.Remove(moved.DestinationPath))

	_, err = m.UndoMove(moved.ActionID)
	assert.ErrorIs(t, err, ErrUndoFileMissing)
}

func TestSplitSuffixes(t *testing.T) {
	tests := []struct {
		name     string
		stem     string
		suffixes string
	}{
		{"a.txt", "a", ".txt"},
		{"archive.tar.gz", "archive", ".tar.gz"},
		{"noext", "noext", ""},
		{"trailing.", "trailing", "."},
	}
	for _, tt := range tests {
		stem, suffixes := splitSuffixes(tt.name)
		if stem != tt.stem || suffixes != tt.suffixes {
			t.Errorf("splitSuffixes(%q) = %q, %q; want %q, %q", tt.name, stem, suffixes, tt.stem, tt.suffixes)
		}
	}
}

func TestResolveCollisionFreePathUnchanged(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "free.txt")
	got, err := ResolveCollision(target)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestResolveCollisionSuffixShape(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, filepath.Join(dir, "f.txt"), "x")

	got, err := ResolveCollision(target)
	require.NoError(t, err)
	assert.NotEqual(t, target, got)
	// Differs only by a " (n)" before the extension.
	base := filepath.Base(got)
	assert.True(t, strings.HasPrefix(base, "f ("), "unexpected name %q", base)
	assert.True(t, strings.HasSuffix(base, ").txt"), "unexpected name %q", base)
	_, err = os.Stat(got)
	assert.True(t, os.IsNotExist(err))
}
