package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrAlreadyUndone is returned when marking an action undone twice.
var ErrAlreadyUndone = errors.New("db: action already undone")

// RecordAction appends an action to the log and returns its id. Entries are
// only ever appended; those tied to a file are removed with it when the
// file record is deleted (ON DELETE CASCADE).
func (d *DB) RecordAction(actionType ActionType, fileID *int64, before, after map[string]any) (int64, error) {
	beforeJSON, err := json.Marshal(orEmpty(before))
	if err != nil {
		return 0, err
	}
	afterJSON, err := json.Marshal(orEmpty(after))
	if err != nil {
		return 0, err
	}

	res, err := d.Exec(
		`INSERT INTO actions (action_type, file_id, before_state, after_state) VALUES (?, ?, ?, ?)`,
		string(actionType), fileID, string(beforeJSON), string(afterJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("recording %s action: %w", actionType, err)
	}
	return res.LastInsertId()
}

// GetAction loads a single action by id.
func (d *DB) GetAction(id int64) (ActionRecord, error) {
	row := d.QueryRow(
		`SELECT id, timestamp, action_type, file_id, before_state, after_state, undone, undone_at
		 FROM actions WHERE id = ?`, id)
	return scanAction(row)
}

// MarkActionUndone flips an action's undone flag. Undo does not append a
// new action; it mutates the existing row. Returns ErrAlreadyUndone if the
// flag is already set.
func (d *DB) MarkActionUndone(id int64) error {
	res, err := d.Exec(
		`UPDATE actions SET undone = 1, undone_at = ? WHERE id = ? AND undone = 0`,
		nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("marking action %d undone: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing from already-undone.
		if _, err := d.GetAction(id); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyUndone
	}
	return nil
}

// RecentActions returns the newest actions of the given type, or all types
// when actionType is empty.
func (d *DB) RecentActions(actionType ActionType, limit int) ([]ActionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, timestamp, action_type, file_id, before_state, after_state, undone, undone_at
	          FROM actions`
	args := []any{}
	if actionType != "" {
		query += ` WHERE action_type = ?`
		args = append(args, string(actionType))
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountActions returns the total number of logged actions.
func (d *DB) CountActions() (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM actions`).Scan(&n)
	return n, err
}

func scanAction(row rowScanner) (ActionRecord, error) {
	var rec ActionRecord
	var timestamp, actionType, before, after string
	var fileID sql.NullInt64
	var undone int
	var undoneAt sql.NullString

	err := row.Scan(&rec.ID, &timestamp, &actionType, &fileID, &before, &after, &undone, &undoneAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ActionRecord{}, ErrNotFound
	}
	if err != nil {
		return ActionRecord{}, err
	}

	rec.Timestamp = parseTimestamp(timestamp)
	rec.ActionType = ActionType(actionType)
	if fileID.Valid {
		id := fileID.Int64
		rec.FileID = &id
	}
	_ = json.Unmarshal([]byte(before), &rec.BeforeState)
	_ = json.Unmarshal([]byte(after), &rec.AfterState)
	rec.Undone = undone != 0
	if undoneAt.Valid {
		t := parseTimestamp(undoneAt.String)
		rec.UndoneAt = &t
	}
	return rec, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
