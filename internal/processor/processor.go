// Package processor orchestrates the per-file pipeline: analyze, classify,
// operator decision, move, and persistence updates.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/filebutler-io/filebutler/internal/classifier"
	"github.com/filebutler-io/filebutler/internal/config"
	"github.com/filebutler-io/filebutler/internal/db"
	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/mover"
	"github.com/filebutler-io/filebutler/internal/scanner"
)

// maxContextFolders bounds the folder list embedded in the prompt.
const maxContextFolders = 100

// State is a file's position in the pipeline.
type State string

const (
	StateReceived         State = "received"
	StateAnalyzed         State = "analyzed"
	StateClassified       State = "classified"
	StateAwaitingDecision State = "awaiting_decision"
	StateMoved            State = "moved"
	StateSkipped          State = "skipped"
	StateErrored          State = "errored"
)

// Result is the outcome of processing one file.
type Result struct {
	FilePath          string
	Filename          string
	State             State
	Analysis          extract.AnalysisResult
	Classification    classifier.Result
	Move              mover.MoveResult
	Decision          Decision
	EditedDestination string
	Success           bool
	Skipped           bool
	ErrorMessage      string
}

// FinalDestination returns the destination actually used for the move.
func (r Result) FinalDestination() string {
	if r.EditedDestination != "" {
		return r.EditedDestination
	}
	return r.Classification.DestinationFolder
}

// Processor drives files through the pipeline one at a time. A single
// instance is single-threaded; concurrent files are processed serially so
// the LLM load stays bounded and the operator's confirmation stream stays
// linear.
type Processor struct {
	cfg        *config.Config
	analyzer   *extract.Analyzer
	classifier *classifier.Classifier
	mover      *mover.Mover
	scanner    *scanner.Scanner
	records    *db.DB
	prompter   DecisionPrompter
	logger     *slog.Logger

	sessionID     string
	folderContext string
	contextReady  bool
}

// New wires a processor. records may be nil (no persistence); prompter nil
// falls back to auto-accept.
func New(
	cfg *config.Config,
	analyzer *extract.Analyzer,
	cls *classifier.Classifier,
	mv *mover.Mover,
	sc *scanner.Scanner,
	records *db.DB,
	prompter DecisionPrompter,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if prompter == nil {
		prompter = AutoAccept{}
	}
	return &Processor{
		cfg:        cfg,
		analyzer:   analyzer,
		classifier: cls,
		mover:      mv,
		scanner:    sc,
		records:    records,
		prompter:   prompter,
		logger:     logger,
		sessionID:  uuid.NewString(),
	}
}

// CheckSystemReady verifies the LLM backend and the organized root before
// processing starts.
func (p *Processor) CheckSystemReady(ctx context.Context) (bool, []string) {
	var issues []string

	if ok, msg := p.classifier.CheckBackend(ctx); !ok {
		issues = append(issues, msg)
	}

	root := p.cfg.OrganizedBasePath
	if err := os.MkdirAll(root, 0o755); err != nil {
		issues = append(issues, fmt.Sprintf("cannot create %s: %v", root, err))
	} else {
		probe := filepath.Join(root, ".filebutler_probe")
		if err := os.WriteFile(probe, nil, 0o644); err != nil {
			issues = append(issues, fmt.Sprintf("cannot write to %s: %v", root, err))
		} else {
			_ = os.Remove(probe)
		}
	}

	return len(issues) == 0, issues
}

// ProcessFile runs one file through the pipeline.
func (p *Processor) ProcessFile(ctx context.Context, path string) Result {
	result := Result{
		FilePath: path,
		Filename: filepath.Base(path),
		State:    StateReceived,
	}

	// Analyze.
	result.Analysis = p.analyzer.Analyze(path)
	if !result.Analysis.Success {
		return p.errored(result, fmt.Sprintf("analysis failed: %s", result.Analysis.ErrorMessage))
	}
	result.State = StateAnalyzed
	result.FilePath = result.Analysis.Path

	// Scan folder context once per session.
	p.ensureFolderContext()

	// Classify.
	result.Classification = p.classifier.Classify(ctx, result.Analysis, p.folderContext)
	if !result.Classification.Success {
		return p.errored(result, fmt.Sprintf("classification failed: %s", result.Classification.ErrorMessage))
	}
	result.State = StateClassified

	// Operator decision.
	result.State = StateAwaitingDecision
	level := result.Classification.ConfidenceLevel(p.cfg.ConfidenceThresholds)
	decision, edited, err := p.prompter.Decide(result.Classification, level)
	if err != nil {
		return p.errored(result, fmt.Sprintf("decision failed: %v", err))
	}
	result.Decision = decision
	result.EditedDestination = edited

	if decision == DecisionSkip {
		result.State = StateSkipped
		result.Skipped = true
		p.recordOutcome(result, db.DecisionRejected, "")
		p.logger.Info("file skipped", slog.String("file", result.Filename))
		return result
	}

	// Move.
	destination := result.FinalDestination()
	result.Move = p.mover.Move(result.FilePath, destination)
	if !result.Move.Success {
		return p.errored(result, fmt.Sprintf("move failed: %s", result.Move.ErrorMessage))
	}
	result.State = StateMoved
	result.Success = true

	verdict := db.DecisionAccepted
	if decision == DecisionEdit {
		verdict = db.DecisionModified
	}
	p.recordOutcome(result, verdict, destination)

	p.logger.Info("file processed",
		slog.String("file", result.Filename),
		slog.String("destination", result.Move.DestinationPath),
	)
	return result
}

// ProcessBatch handles files serially, in order.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) []Result {
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		results = append(results, p.ProcessFile(ctx, path))
	}
	return results
}

// ensureFolderContext memoizes the folder scan for the session.
func (p *Processor) ensureFolderContext() {
	if p.contextReady {
		return
	}
	p.contextReady = true

	roots := p.cfg.ContextFolders()
	if len(roots) == 0 || p.scanner == nil {
		return
	}

	scan := p.scanner.Scan(roots)
	if scan.TotalFolders == 0 {
		return
	}
	p.folderContext = scan.PromptContext(maxContextFolders)
	p.logger.Info("scanned folder context",
		slog.Int("folders", scan.TotalFolders),
		slog.Int("max_depth", scan.MaxDepthReached),
	)
}

// errored finalizes a failed result and marks the file record.
func (p *Processor) errored(result Result, message string) Result {
	result.State = StateErrored
	result.ErrorMessage = message
	p.logger.Error("processing failed",
		slog.String("file", result.Filename),
		slog.String("error", message),
	)
	p.markFileError(result)
	return result
}

func (p *Processor) markFileError(result Result) {
	if p.records == nil {
		return
	}
	rec, err := p.records.GetFileByPath(result.FilePath)
	if errors.Is(err, db.ErrNotFound) {
		rec, err = p.records.CreateFile(db.FileRecord{
			Path:      result.FilePath,
			Filename:  result.Filename,
			Extension: extract.NormalizeExtension(result.FilePath),
			Status:    db.StatusError,
		})
		if err != nil {
			p.logger.Warn("could not create file record", slog.Any("error", err))
		}
		return
	}
	if err != nil {
		p.logger.Warn("could not load file record", slog.Any("error", err))
		return
	}
	if err := p.records.UpdateFileStatus(rec.ID, db.StatusError); err != nil {
		p.logger.Warn("could not update file status", slog.Any("error", err))
	}
}

// recordOutcome persists the classification row and file status, plus the
// suggested tags.
func (p *Processor) recordOutcome(result Result, verdict db.Decision, finalDestination string) {
	if p.records == nil {
		return
	}

	meta := result.Analysis.Metadata
	finalTags := result.Classification.Tags
	rec, err := p.records.RecordClassification(
		db.FileRecord{
			Path:      result.FilePath,
			Filename:  result.Filename,
			Extension: meta.Extension,
			SizeBytes: meta.SizeBytes,
			HashMD5:   meta.HashMD5,
		},
		db.ClassificationRecord{
			SessionID:            p.sessionID,
			SuggestedDestination: result.Classification.DestinationFolder,
			SuggestedTags:        result.Classification.Tags,
			Confidence:           result.Classification.Confidence,
			Reasoning:            result.Classification.Reasoning,
			Decision:             verdict,
			FinalDestination:     finalDestination,
			FinalTags:            finalTags,
		},
	)
	if err != nil {
		p.logger.Error("could not record classification", slog.Any("error", err))
		return
	}

	if verdict == db.DecisionRejected {
		return
	}

	for _, name := range finalTags {
		tag, err := p.records.EnsureTag(name, true)
		if err != nil {
			continue
		}
		if err := p.records.TagFile(rec.FileID, tag.ID, result.Classification.Confidence, db.TagSourceAI); err != nil {
			p.logger.Warn("could not tag file", slog.String("tag", tag.Name), slog.Any("error", err))
		}
	}
}
