// Package mover moves files into the organized tree with collision-safe
// naming, recording every move as a reversible action.
package mover

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/filebutler-io/filebutler/internal/db"
)

// maxCollisionProbes bounds the " (n)" suffix search.
const maxCollisionProbes = 1000

// MoveErrorKind discriminates move failures.
type MoveErrorKind string

const (
	ErrSourceMissing MoveErrorKind = "source-missing"
	ErrPermission    MoveErrorKind = "permission"
	ErrDestination   MoveErrorKind = "destination"
	ErrCollision     MoveErrorKind = "collision"
)

// MoveError is a failed move with its cause category.
type MoveError struct {
	Kind MoveErrorKind
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move failed (%s): %v", e.Kind, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Undo error conditions.
var (
	ErrActionNotFound  = errors.New("action not found")
	ErrAlreadyUndone   = errors.New("action already undone")
	ErrNotUndoable     = errors.New("action type cannot be undone")
	ErrUndoFileMissing = errors.New("file to restore no longer exists")
)

// MoveResult describes a completed (or failed) move.
type MoveResult struct {
	SourcePath      string
	DestinationPath string
	Filename        string
	ActionID        int64
	Success         bool
	ErrorMessage    string
}

// Mover moves files under the organized root.
type Mover struct {
	organizedRoot string
	store         *db.DB
	logger        *slog.Logger
}

// New creates a mover rooted at organizedRoot. store may be nil, in which
// case no actions are recorded (and moves cannot be undone).
func New(organizedRoot string, store *db.DB, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{organizedRoot: organizedRoot, store: store, logger: logger}
}

// Move relocates source into organizedRoot/destinationFolder, resolving
// name collisions with a " (n)" suffix, and records a move action.
func (m *Mover) Move(source, destinationFolder string) MoveResult {
	source, err := canonicalize(source)
	if err != nil {
		return m.fail(source, source, &MoveError{Kind: ErrSourceMissing, Err: err})
	}

	result := MoveResult{SourcePath: source, Filename: filepath.Base(source)}

	info, err := os.Stat(source)
	if err != nil {
		return m.fail(source, source, &MoveError{Kind: ErrSourceMissing, Err: fmt.Errorf("source file not found: %s", source)})
	}
	if !info.Mode().IsRegular() {
		return m.fail(source, source, &MoveError{Kind: ErrSourceMissing, Err: fmt.Errorf("source is not a regular file: %s", source)})
	}

	destDir := filepath.Join(m.organizedRoot, filepath.FromSlash(destinationFolder))
	if err := m.createDestination(destDir); err != nil {
		return m.fail(source, destDir, err)
	}

	target, err := ResolveCollision(filepath.Join(destDir, result.Filename))
	if err != nil {
		return m.fail(source, destDir, err)
	}

	if err := moveFile(source, target); err != nil {
		return m.fail(source, target, err)
	}

	m.logger.Info("moved file",
		slog.String("source", source),
		slog.String("destination", target),
	)

	result.DestinationPath = target
	result.Filename = filepath.Base(target)
	result.Success = true

	if m.store != nil {
		actionID, err := m.store.RecordAction(db.ActionMove, nil,
			map[string]any{"path": source, "filename": filepath.Base(source)},
			map[string]any{"path": target, "filename": result.Filename},
		)
		if err != nil {
			m.logger.Error("failed to record move action", slog.Any("error", err))
		} else {
			result.ActionID = actionID
		}
	}

	return result
}

// UndoMove reverses a previously recorded move: the file at the action's
// after path moves back toward its before path, with the same collision
// rule applied at the origin. The action is marked undone; the inverse
// move is not logged as a new action.
func (m *Mover) UndoMove(actionID int64) (MoveResult, error) {
	if m.store == nil {
		return MoveResult{}, fmt.Errorf("no action store configured")
	}

	action, err := m.store.GetAction(actionID)
	if errors.Is(err, db.ErrNotFound) {
		return MoveResult{}, fmt.Errorf("%w: %d", ErrActionNotFound, actionID)
	}
	if err != nil {
		return MoveResult{}, err
	}

	if action.Undone {
		return MoveResult{}, fmt.Errorf("%w: %d", ErrAlreadyUndone, actionID)
	}
	if action.ActionType != db.ActionMove {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrNotUndoable, action.ActionType)
	}

	currentPath, _ := action.AfterState["path"].(string)
	originalPath, _ := action.BeforeState["path"].(string)
	if currentPath == "" || originalPath == "" {
		return MoveResult{}, fmt.Errorf("action %d has incomplete state", actionID)
	}

	if _, err := os.Stat(currentPath); err != nil {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrUndoFileMissing, currentPath)
	}

	if err := os.MkdirAll(filepath.Dir(originalPath), 0o755); err != nil {
		return MoveResult{}, fmt.Errorf("recreating origin directory: %w", err)
	}

	target, err := ResolveCollision(originalPath)
	if err != nil {
		return MoveResult{}, err
	}

	if err := moveFile(currentPath, target); err != nil {
		return MoveResult{}, err
	}

	if err := m.store.MarkActionUndone(actionID); err != nil {
		return MoveResult{}, err
	}

	m.logger.Info("undid move",
		slog.Int64("action", actionID),
		slog.String("restored_to", target),
	)

	return MoveResult{
		SourcePath:      currentPath,
		DestinationPath: target,
		Filename:        filepath.Base(target),
		ActionID:        actionID,
		Success:         true,
	}, nil
}

// RecentMoves lists the newest recorded move actions.
func (m *Mover) RecentMoves(limit int) ([]db.ActionRecord, error) {
	if m.store == nil {
		return nil, nil
	}
	return m.store.RecentActions(db.ActionMove, limit)
}

// createDestination creates all missing directory levels, recording a
// best-effort create_folder action per new level.
func (m *Mover) createDestination(destDir string) error {
	if _, err := os.Stat(destDir); err == nil {
		return nil
	}

	// Find which levels are missing before creating them.
	var missing []string
	for dir := destDir; ; dir = filepath.Dir(dir) {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		missing = append(missing, dir)
		if dir == filepath.Dir(dir) {
			break
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return &MoveError{Kind: ErrDestination, Err: fmt.Errorf("failed to create folder: %w", err)}
	}
	m.logger.Info("created folder", slog.String("folder", destDir))

	if m.store != nil {
		for i := len(missing) - 1; i >= 0; i-- {
			state := map[string]any{"path": missing[i]}
			if _, err := m.store.RecordAction(db.ActionCreateFolder, nil, state, state); err != nil {
				m.logger.Warn("failed to record folder creation", slog.Any("error", err))
			}
		}
	}
	return nil
}

// fail logs and packages a move failure.
func (m *Mover) fail(source, destination string, err error) MoveResult {
	m.logger.Error("move failed",
		slog.String("source", source),
		slog.String("destination", destination),
		slog.Any("error", err),
	)
	return MoveResult{
		SourcePath:      source,
		DestinationPath: destination,
		Filename:        filepath.Base(source),
		ErrorMessage:    err.Error(),
	}
}

// ResolveCollision probes "stem (n)suffixes" names until one is free.
// Fails with a collision error after 1000 probes.
func ResolveCollision(target string) (string, error) {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return target, nil
	}

	dir := filepath.Dir(target)
	name := filepath.Base(target)
	stem, suffixes := splitSuffixes(name)

	for n := 1; n <= maxCollisionProbes; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, suffixes))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", &MoveError{Kind: ErrCollision, Err: fmt.Errorf("too many conflicts for %s", target)}
}

// splitSuffixes separates "archive.tar.gz" into "archive" and ".tar.gz".
func splitSuffixes(name string) (stem, suffixes string) {
	stem = name
	for {
		ext := filepath.Ext(stem)
		if ext == "" || ext == stem {
			break
		}
		suffixes = ext + suffixes
		stem = strings.TrimSuffix(stem, ext)
	}
	return stem, suffixes
}

// moveFile renames source to target, falling back to copy-and-delete
// across filesystems. A partial copy leaves the source intact.
func moveFile(source, target string) error {
	err := os.Rename(source, target)
	if err == nil {
		return nil
	}
	if os.IsPermission(err) {
		return &MoveError{Kind: ErrPermission, Err: err}
	}
	if !isCrossDevice(err) {
		return &MoveError{Kind: ErrDestination, Err: err}
	}

	if err := copyFile(source, target); err != nil {
		_ = os.Remove(target)
		return &MoveError{Kind: ErrDestination, Err: err}
	}
	if err := os.Remove(source); err != nil {
		return &MoveError{Kind: ErrPermission, Err: fmt.Errorf("copied but could not remove source: %w", err)}
	}
	return nil
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
