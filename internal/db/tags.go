package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// EnsureTag finds or creates a tag by name. Names are normalized to
// lowercase; tag uniqueness is enforced on the normalized form.
func (d *DB) EnsureTag(name string, autoGenerated bool) (Tag, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Tag{}, fmt.Errorf("tag name must not be empty")
	}

	var tag Tag
	var parent sql.NullInt64
	var auto int
	err := d.QueryRow(
		`SELECT id, name, description, parent_tag_id, auto_generated FROM tags WHERE name = ?`, name,
	).Scan(&tag.ID, &tag.Name, &tag.Description, &parent, &auto)
	if err == nil {
		if parent.Valid {
			id := parent.Int64
			tag.ParentTagID = &id
		}
		tag.AutoGenerated = auto != 0
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Tag{}, err
	}

	res, err := d.Exec(`INSERT INTO tags (name, auto_generated) VALUES (?, ?)`, name, boolToInt(autoGenerated))
	if err != nil {
		return Tag{}, fmt.Errorf("inserting tag %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Tag{}, err
	}
	return Tag{ID: id, Name: name, AutoGenerated: autoGenerated}, nil
}

// TagFile associates a tag with a file. Idempotent: re-tagging replaces the
// confidence and source. Confidence is clamped to [0, 1].
func (d *DB) TagFile(fileID, tagID int64, confidence float64, source TagSource) error {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	_, err := d.Exec(
		`INSERT INTO file_tags (file_id, tag_id, confidence, source) VALUES (?, ?, ?, ?)
		 ON CONFLICT(file_id, tag_id) DO UPDATE SET confidence = excluded.confidence, source = excluded.source`,
		fileID, tagID, confidence, string(source),
	)
	return err
}

// TagsForFile returns the names of all tags associated with a file, sorted.
func (d *DB) TagsForFile(fileID int64) ([]string, error) {
	rows, err := d.Query(
		`SELECT t.name FROM tags t
		 JOIN file_tags ft ON ft.tag_id = t.id
		 WHERE ft.file_id = ? ORDER BY t.name`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
