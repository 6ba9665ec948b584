package db

import "time"

// FileStatus is the processing state of a file record.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusProcessing FileStatus = "processing"
	StatusProcessed  FileStatus = "processed"
	StatusError      FileStatus = "error"
	StatusSkipped    FileStatus = "skipped"
)

// Decision is the operator's verdict on a classification.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionModified Decision = "modified"
)

// ActionType categorizes recorded filesystem mutations.
type ActionType string

const (
	ActionMove         ActionType = "move"
	ActionTag          ActionType = "tag"
	ActionCreateFolder ActionType = "create_folder"
	ActionDelete       ActionType = "delete"
	ActionRename       ActionType = "rename"
)

// TagSource identifies where a file-tag association came from.
type TagSource string

const (
	TagSourceAI   TagSource = "ai"
	TagSourceUser TagSource = "user"
	TagSourceRule TagSource = "rule"
)

// FileRecord is a row in the files table. Identity is the canonical
// absolute path.
type FileRecord struct {
	ID           int64
	Path         string
	Filename     string
	Extension    string
	SizeBytes    int64
	HashMD5      string
	Status       FileStatus
	Summary      string
	EmbeddingRef string
	CreatedAt    time.Time
	ModifiedAt   time.Time
	ProcessedAt  *time.Time
}

// ClassificationRecord is a row in the classifications table. Immutable
// once the decision is no longer pending.
type ClassificationRecord struct {
	ID                   int64
	FileID               int64
	SessionID            string
	Timestamp            time.Time
	SuggestedDestination string
	SuggestedTags        []string
	Confidence           float64
	Reasoning            string
	Decision             Decision
	FinalDestination     string
	FinalTags            []string
}

// Tag is a row in the tags table. Names are unique and lowercased.
type Tag struct {
	ID            int64
	Name          string
	Description   string
	ParentTagID   *int64
	AutoGenerated bool
}

// ActionRecord is a row in the append-only actions table. BeforeState and
// AfterState are opaque JSON blobs describing the mutation.
type ActionRecord struct {
	ID          int64
	Timestamp   time.Time
	ActionType  ActionType
	FileID      *int64
	BeforeState map[string]any
	AfterState  map[string]any
	Undone      bool
	UndoneAt    *time.Time
}
