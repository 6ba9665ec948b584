package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordClassification persists a classification verdict for a file,
// creating the file record if it does not exist yet, inside one
// transaction. Confidence is clamped to [0, 1] at persistence time. The
// file's status is set to processed, skipped, or left unchanged depending
// on the decision.
func (d *DB) RecordClassification(file FileRecord, rec ClassificationRecord) (ClassificationRecord, error) {
	tx, err := d.Begin()
	if err != nil {
		return ClassificationRecord{}, err
	}
	defer tx.Rollback()

	fileID, err := ensureFileTx(tx, file)
	if err != nil {
		return ClassificationRecord{}, err
	}
	rec.FileID = fileID

	if rec.Confidence < 0 {
		rec.Confidence = 0
	} else if rec.Confidence > 1 {
		rec.Confidence = 1
	}
	if rec.Decision == "" {
		rec.Decision = DecisionPending
	}

	suggested, err := json.Marshal(emptyIfNil(rec.SuggestedTags))
	if err != nil {
		return ClassificationRecord{}, err
	}
	final, err := json.Marshal(emptyIfNil(rec.FinalTags))
	if err != nil {
		return ClassificationRecord{}, err
	}

	res, err := tx.Exec(
		`INSERT INTO classifications
		 (file_id, session_id, suggested_destination, suggested_tags, confidence, reasoning, decision, final_destination, final_tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fileID, rec.SessionID, rec.SuggestedDestination, string(suggested),
		rec.Confidence, rec.Reasoning, string(rec.Decision), rec.FinalDestination, string(final),
	)
	if err != nil {
		return ClassificationRecord{}, fmt.Errorf("inserting classification: %w", err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return ClassificationRecord{}, err
	}

	var status FileStatus
	switch rec.Decision {
	case DecisionAccepted, DecisionModified:
		status = StatusProcessed
	case DecisionRejected:
		status = StatusSkipped
	}
	if status != "" {
		if _, err := tx.Exec(
			`UPDATE files SET status = ?, processed_at = ?, modified_at = datetime('now') WHERE id = ?`,
			string(status), nowString(), fileID,
		); err != nil {
			return ClassificationRecord{}, fmt.Errorf("updating file status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ClassificationRecord{}, err
	}
	rec.Timestamp = time.Now().UTC()
	return rec, nil
}

// ClassificationsForFile returns a file's classification history, newest
// first.
func (d *DB) ClassificationsForFile(fileID int64) ([]ClassificationRecord, error) {
	rows, err := d.Query(
		`SELECT id, file_id, session_id, timestamp, suggested_destination, suggested_tags,
		        confidence, reasoning, decision, final_destination, final_tags
		 FROM classifications WHERE file_id = ? ORDER BY timestamp DESC, id DESC`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassificationRecord
	for rows.Next() {
		var rec ClassificationRecord
		var timestamp, decision, suggested, final string
		if err := rows.Scan(
			&rec.ID, &rec.FileID, &rec.SessionID, &timestamp,
			&rec.SuggestedDestination, &suggested, &rec.Confidence,
			&rec.Reasoning, &decision, &rec.FinalDestination, &final,
		); err != nil {
			return nil, err
		}
		rec.Timestamp = parseTimestamp(timestamp)
		rec.Decision = Decision(decision)
		_ = json.Unmarshal([]byte(suggested), &rec.SuggestedTags)
		_ = json.Unmarshal([]byte(final), &rec.FinalTags)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountClassifications returns the total number of classification rows.
func (d *DB) CountClassifications() (int, error) {
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM classifications`).Scan(&n)
	return n, err
}

// ensureFileTx finds or creates the file row for the given path within a
// transaction, returning its id.
func ensureFileTx(tx *sql.Tx, file FileRecord) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM files WHERE path = ?`, file.Path).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	status := file.Status
	if status == "" {
		status = StatusPending
	}
	res, err := tx.Exec(
		`INSERT INTO files (path, filename, extension, size_bytes, hash_md5, status, embedding_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file.Path, file.Filename, file.Extension, file.SizeBytes, file.HashMD5,
		string(status), file.EmbeddingRef,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting file %s: %w", file.Path, err)
	}
	return res.LastInsertId()
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
