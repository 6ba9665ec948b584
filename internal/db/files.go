package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("db: not found")

const fileColumns = `id, path, filename, extension, size_bytes, hash_md5,
	status, content_summary, embedding_ref, created_at, modified_at, processed_at`

// CreateFile inserts a new file record and returns it with its assigned id.
func (d *DB) CreateFile(rec FileRecord) (FileRecord, error) {
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	res, err := d.Exec(
		`INSERT INTO files (path, filename, extension, size_bytes, hash_md5, status, content_summary, embedding_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Path, rec.Filename, rec.Extension, rec.SizeBytes, rec.HashMD5,
		string(rec.Status), rec.Summary, rec.EmbeddingRef,
	)
	if err != nil {
		return FileRecord{}, fmt.Errorf("inserting file %s: %w", rec.Path, err)
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return FileRecord{}, err
	}
	return rec, nil
}

// GetFileByPath looks up a file record by its canonical path.
func (d *DB) GetFileByPath(path string) (FileRecord, error) {
	row := d.QueryRow(`SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	return scanFile(row)
}

// GetFile looks up a file record by id.
func (d *DB) GetFile(id int64) (FileRecord, error) {
	row := d.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// UpdateFileStatus transitions a file's status, stamping processed_at for
// terminal states.
func (d *DB) UpdateFileStatus(id int64, status FileStatus) error {
	var processedAt any
	if status == StatusProcessed || status == StatusSkipped || status == StatusError {
		processedAt = nowString()
	}
	res, err := d.Exec(
		`UPDATE files SET status = ?, processed_at = ?, modified_at = datetime('now') WHERE id = ?`,
		string(status), processedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating file %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEmbeddingRef records the vector-index id a file's embedding lives under.
func (d *DB) SetEmbeddingRef(id int64, ref string) error {
	_, err := d.Exec(`UPDATE files SET embedding_ref = ?, modified_at = datetime('now') WHERE id = ?`, ref, id)
	return err
}

// DeleteFile removes a file record. Classifications, file tags, and actions
// cascade.
func (d *DB) DeleteFile(id int64) error {
	_, err := d.Exec(`DELETE FROM files WHERE id = ?`, id)
	return err
}

// CountFilesByStatus returns per-status row counts for the status command.
func (d *DB) CountFilesByStatus() (map[FileStatus]int, error) {
	rows, err := d.Query(`SELECT status, COUNT(*) FROM files GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[FileStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[FileStatus(status)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (FileRecord, error) {
	var rec FileRecord
	var status, createdAt, modifiedAt string
	var processedAt sql.NullString
	err := row.Scan(
		&rec.ID, &rec.Path, &rec.Filename, &rec.Extension, &rec.SizeBytes,
		&rec.HashMD5, &status, &rec.Summary, &rec.EmbeddingRef,
		&createdAt, &modifiedAt, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRecord{}, ErrNotFound
	}
	if err != nil {
		return FileRecord{}, err
	}
	rec.Status = FileStatus(status)
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.ModifiedAt = parseTimestamp(modifiedAt)
	if processedAt.Valid {
		t := parseTimestamp(processedAt.String)
		rec.ProcessedAt = &t
	}
	return rec, nil
}
