package db

import (
	"errors"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrateIdempotent(t *testing.T) {
	d := newTestDB(t)
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestFileLifecycle(t *testing.T) {
	d := newTestDB(t)

	rec, err := d.CreateFile(FileRecord{
		Path:      "/inbox/report.pdf",
		Filename:  "report.pdf",
		Extension: ".pdf",
		SizeBytes: 1024,
		HashMD5:   "abc123",
	})
	if err != nil {
		t.Fatalf("CreateFile() error: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if rec.Status != StatusPending {
		t.Errorf("new file status = %q, want pending", rec.Status)
	}

	got, err := d.GetFileByPath("/inbox/report.pdf")
	if err != nil {
		t.Fatalf("GetFileByPath() error: %v", err)
	}
	if got.ID != rec.ID || got.Filename != "report.pdf" {
		t.Errorf("GetFileByPath() = %+v", got)
	}

	if err := d.UpdateFileStatus(rec.ID, StatusProcessed); err != nil {
		t.Fatalf("UpdateFileStatus() error: %v", err)
	}
	got, _ = d.GetFile(rec.ID)
	if got.Status != StatusProcessed {
		t.Errorf("status = %q, want processed", got.Status)
	}
	if got.ProcessedAt == nil {
		t.Error("expected processed_at to be stamped")
	}

	if _, err := d.GetFileByPath("/nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
}

func TestRecordClassificationCreatesFileAndClampsConfidence(t *testing.T) {
	d := newTestDB(t)

	rec, err := d.RecordClassification(
		FileRecord{Path: "/inbox/a.txt", Filename: "a.txt", Extension: ".txt"},
		ClassificationRecord{
			SuggestedDestination: "Docs/Work",
			SuggestedTags:        []string{"work"},
			Confidence:           1.7,
			Decision:             DecisionAccepted,
			FinalDestination:     "Docs/Work",
			FinalTags:            []string{"work"},
		},
	)
	if err != nil {
		t.Fatalf("RecordClassification() error: %v", err)
	}
	if rec.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", rec.Confidence)
	}

	file, err := d.GetFileByPath("/inbox/a.txt")
	if err != nil {
		t.Fatalf("file record not created: %v", err)
	}
	if file.Status != StatusProcessed {
		t.Errorf("file status = %q, want processed after accepted decision", file.Status)
	}

	history, err := d.ClassificationsForFile(file.ID)
	if err != nil {
		t.Fatalf("ClassificationsForFile() error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}
	if history[0].SuggestedTags[0] != "work" {
		t.Errorf("tags did not round-trip: %+v", history[0])
	}
}

func TestRecordClassificationRejectedMarksSkipped(t *testing.T) {
	d := newTestDB(t)

	_, err := d.RecordClassification(
		FileRecord{Path: "/inbox/b.txt", Filename: "b.txt", Extension: ".txt"},
		ClassificationRecord{SuggestedDestination: "Unsorted", Decision: DecisionRejected},
	)
	if err != nil {
		t.Fatalf("RecordClassification() error: %v", err)
	}

	file, _ := d.GetFileByPath("/inbox/b.txt")
	if file.Status != StatusSkipped {
		t.Errorf("file status = %q, want skipped", file.Status)
	}
}

func TestActionLogUndoSemantics(t *testing.T) {
	d := newTestDB(t)

	id, err := d.RecordAction(ActionMove, nil,
		map[string]any{"path": "/inbox/c.txt", "filename": "c.txt"},
		map[string]any{"path": "/organized/Docs/c.txt", "filename": "c.txt"},
	)
	if err != nil {
		t.Fatalf("RecordAction() error: %v", err)
	}

	rec, err := d.GetAction(id)
	if err != nil {
		t.Fatalf("GetAction() error: %v", err)
	}
	if rec.ActionType != ActionMove || rec.Undone {
		t.Errorf("action = %+v", rec)
	}
	if rec.BeforeState["path"] != "/inbox/c.txt" {
		t.Errorf("before_state did not round-trip: %v", rec.BeforeState)
	}

	if err := d.MarkActionUndone(id); err != nil {
		t.Fatalf("MarkActionUndone() error: %v", err)
	}
	rec, _ = d.GetAction(id)
	if !rec.Undone || rec.UndoneAt == nil {
		t.Errorf("action not marked undone: %+v", rec)
	}

	// A second undo must fail.
	if err := d.MarkActionUndone(id); !errors.Is(err, ErrAlreadyUndone) {
		t.Errorf("second undo error = %v, want ErrAlreadyUndone", err)
	}

	if err := d.MarkActionUndone(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing action error = %v, want ErrNotFound", err)
	}
}

func TestRecentActionsFiltersByType(t *testing.T) {
	d := newTestDB(t)

	_, _ = d.RecordAction(ActionMove, nil, nil, nil)
	_, _ = d.RecordAction(ActionCreateFolder, nil, nil, nil)
	_, _ = d.RecordAction(ActionMove, nil, nil, nil)

	moves, err := d.RecentActions(ActionMove, 10)
	if err != nil {
		t.Fatalf("RecentActions() error: %v", err)
	}
	if len(moves) != 2 {
		t.Errorf("moves = %d, want 2", len(moves))
	}

	all, err := d.RecentActions("", 10)
	if err != nil {
		t.Fatalf("RecentActions(all) error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}
}

func TestTags(t *testing.T) {
	d := newTestDB(t)

	file, err := d.CreateFile(FileRecord{Path: "/inbox/d.txt", Filename: "d.txt"})
	if err != nil {
		t.Fatalf("CreateFile() error: %v", err)
	}

	tag, err := d.EnsureTag("  Invoice ", true)
	if err != nil {
		t.Fatalf("EnsureTag() error: %v", err)
	}
	if tag.Name != "invoice" {
		t.Errorf("tag name = %q, want lowercased %q", tag.Name, "invoice")
	}

	// Second ensure returns the same row.
	again, _ := d.EnsureTag("invoice", false)
	if again.ID != tag.ID {
		t.Errorf("EnsureTag not idempotent: %d vs %d", again.ID, tag.ID)
	}

	if err := d.TagFile(file.ID, tag.ID, 2.5, TagSourceAI); err != nil {
		t.Fatalf("TagFile() error: %v", err)
	}
	// Re-tagging must not error (upsert).
	if err := d.TagFile(file.ID, tag.ID, 0.4, TagSourceUser); err != nil {
		t.Fatalf("TagFile() upsert error: %v", err)
	}

	names, err := d.TagsForFile(file.ID)
	if err != nil {
		t.Fatalf("TagsForFile() error: %v", err)
	}
	if len(names) != 1 || names[0] != "invoice" {
		t.Errorf("TagsForFile() = %v", names)
	}
}

func TestPreferences(t *testing.T) {
	d := newTestDB(t)

	if _, err := d.GetPreference("theme"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing preference error = %v", err)
	}

	if err := d.SetPreference("theme", "dark"); err != nil {
		t.Fatalf("SetPreference() error: %v", err)
	}
	if err := d.SetPreference("theme", "light"); err != nil {
		t.Fatalf("SetPreference() upsert error: %v", err)
	}

	got, err := d.GetPreference("theme")
	if err != nil {
		t.Fatalf("GetPreference() error: %v", err)
	}
	if got != "light" {
		t.Errorf("preference = %q, want light", got)
	}
}

func TestDeleteFileCascades(t *testing.T) {
	d := newTestDB(t)

	rec, _ := d.RecordClassification(
		FileRecord{Path: "/inbox/e.txt", Filename: "e.txt"},
		ClassificationRecord{SuggestedDestination: "Docs", Decision: DecisionAccepted},
	)

	if err := d.DeleteFile(rec.FileID); err != nil {
		t.Fatalf("DeleteFile() error: %v", err)
	}

	history, err := d.ClassificationsForFile(rec.FileID)
	if err != nil {
		t.Fatalf("ClassificationsForFile() error: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("classifications survived file delete: %d rows", len(history))
	}
}
