package vectorindex

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Truncation limits applied when writing to the store.
const (
	MaxSummaryChars = 1000
	MaxSnippetChars = 2000
)

// IndexedFileMetadata is the structured metadata stored alongside each
// embedding. The store holds only string values, so the To/From map
// conversions define the serialization: tags are comma-joined (sorted,
// de-duplicated), datetimes are ISO-8601, integers are decimal strings.
type IndexedFileMetadata struct {
	FileID         string
	FilePath       string
	Filename       string
	Extension      string
	FileType       string
	Tags           []string
	ContentSummary string
	ContentHash    string
	CreatedAt      time.Time
	ModifiedAt     time.Time
	IndexedAt      time.Time
	SizeBytes      int64
	SourceFolder   string
}

// ComputeContentHash returns the truncated SHA-256 hex digest (16 chars)
// of extracted text, used for change detection.
func ComputeContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// NormalizeTags lowercases, trims, de-duplicates, and sorts tag names.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ToMap converts the metadata to the store's flat string-map form.
func (m IndexedFileMetadata) ToMap() map[string]string {
	return map[string]string{
		"file_id":         m.FileID,
		"file_path":       m.FilePath,
		"filename":        m.Filename,
		"extension":       m.Extension,
		"file_type":       m.FileType,
		"tags":            strings.Join(NormalizeTags(m.Tags), ","),
		"content_summary": truncate(m.ContentSummary, MaxSummaryChars),
		"content_hash":    m.ContentHash,
		"created_at":      formatTime(m.CreatedAt),
		"modified_at":     formatTime(m.ModifiedAt),
		"indexed_at":      formatTime(m.IndexedAt),
		"size_bytes":      strconv.FormatInt(m.SizeBytes, 10),
		"source_folder":   m.SourceFolder,
	}
}

// MetadataFromMap parses metadata back from the store's string-map form.
func MetadataFromMap(md map[string]string) IndexedFileMetadata {
	size, _ := strconv.ParseInt(md["size_bytes"], 10, 64)

	var tags []string
	if md["tags"] != "" {
		tags = strings.Split(md["tags"], ",")
	}

	return IndexedFileMetadata{
		FileID:         md["file_id"],
		FilePath:       md["file_path"],
		Filename:       md["filename"],
		Extension:      md["extension"],
		FileType:       md["file_type"],
		Tags:           tags,
		ContentSummary: md["content_summary"],
		ContentHash:    md["content_hash"],
		CreatedAt:      parseTime(md["created_at"]),
		ModifiedAt:     parseTime(md["modified_at"]),
		IndexedAt:      parseTime(md["indexed_at"]),
		SizeBytes:      size,
		SourceFolder:   md["source_folder"],
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
