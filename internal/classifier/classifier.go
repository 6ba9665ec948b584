// Package classifier asks the local LLM where a file belongs and turns
// the reply into a sanitized, bounded classification.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/filebutler-io/filebutler/internal/config"
	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/llm"
)

// UnsortedFolder is the fallback destination when classification cannot
// produce a usable one.
const UnsortedFolder = "Unsorted"

// Result is a sanitized classification for one file.
type Result struct {
	FilePath          string
	Filename          string
	DestinationFolder string
	Tags              []string
	Confidence        float64
	Reasoning         string
	IsNewFolder       bool
	Success           bool
	ErrorMessage      string
}

// ConfidenceLevel buckets the confidence using the configured thresholds.
func (r Result) ConfidenceLevel(t config.ConfidenceThresholds) string {
	switch {
	case r.Confidence >= t.High:
		return "high"
	case r.Confidence >= t.Medium:
		return "medium"
	default:
		return "low"
	}
}

// Classifier composes prompts and parses LLM replies.
type Classifier struct {
	client        llm.Client
	organizedRoot string
	logger        *slog.Logger
}

// New creates a classifier. organizedRoot is used only to mark whether a
// suggested destination already exists.
func New(client llm.Client, organizedRoot string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, organizedRoot: organizedRoot, logger: logger}
}

// CheckBackend reports whether the LLM backend is ready, with an
// operator-facing message when it is not.
func (c *Classifier) CheckBackend(ctx context.Context) (bool, string) {
	if !c.client.CheckConnection(ctx) {
		return false, "cannot connect to the LLM backend"
	}
	if !c.client.CheckModel(ctx) {
		return false, fmt.Sprintf("model %q not found; pull it first", c.client.ModelName())
	}
	return true, "backend is ready"
}

const promptTemplate = `You are a file organization assistant. Analyze this file and suggest where it should be stored.

FILE INFORMATION:
- Filename: %s
- Extension: %s
- Size: %d bytes
- Created: %s
- Modified: %s

FILE CONTENT (preview):
%s
%s
Based on this information, determine:
1. The most appropriate destination folder (use a logical folder structure like "Documents/Work", "Projects/Personal", "Finances/Receipts", etc.)
2. Relevant tags for this file
3. Your confidence in this classification (0.0 to 1.0)
4. Brief reasoning for your decision

Respond ONLY with valid JSON in this exact format (no other text):
{
    "destination_folder": "Category/Subcategory",
    "tags": ["tag1", "tag2", "tag3"],
    "confidence": 0.85,
    "reasoning": "Brief explanation of why this classification was chosen"
}`

// MaxPreviewChars bounds the content preview included in the prompt.
const MaxPreviewChars = 2000

// BuildPrompt renders the classification prompt for an analysis,
// optionally including existing-folder context (one "- path" line each).
func BuildPrompt(analysis extract.AnalysisResult, folderContext string) string {
	contextSection := "\n"
	if folderContext != "" {
		contextSection = fmt.Sprintf("\nEXISTING FOLDER STRUCTURE:\n%s\n\nPrefer one of the existing folders when the file fits; suggest a new folder only when none fit.\n", folderContext)
	}

	preview := analysis.ContentPreview
	if runes := []rune(preview); len(runes) > MaxPreviewChars {
		preview = string(runes[:MaxPreviewChars])
	}

	return fmt.Sprintf(promptTemplate,
		analysis.Metadata.Filename,
		analysis.Metadata.Extension,
		analysis.Metadata.SizeBytes,
		analysis.Metadata.CreatedAt.Format("2006-01-02 15:04"),
		analysis.Metadata.ModifiedAt.Format("2006-01-02 15:04"),
		preview,
		contextSection,
	)
}

// Classify runs the LLM over an analysis result. A failed analysis, an
// unreachable backend, or an unparseable reply all yield a failure-marked
// result with destination Unsorted.
func (c *Classifier) Classify(ctx context.Context, analysis extract.AnalysisResult, folderContext string) Result {
	base := Result{
		FilePath:          analysis.Path,
		Filename:          filepath.Base(analysis.Path),
		DestinationFolder: UnsortedFolder,
		Tags:              []string{},
	}

	if !analysis.Success {
		base.ErrorMessage = fmt.Sprintf("analysis failed: %s", analysis.ErrorMessage)
		return base
	}

	prompt := BuildPrompt(analysis, folderContext)

	c.logger.Info("classifying file",
		slog.String("file", base.Filename),
		slog.String("model", c.client.ModelName()),
	)

	reply, ok := c.client.Generate(ctx, prompt)
	if !ok {
		base.ErrorMessage = "no response from the LLM backend"
		return base
	}

	result := c.parseReply(reply, base)
	if result.Success {
		result.IsNewFolder = c.isNewFolder(result.DestinationFolder)
		c.logger.Info("classified file",
			slog.String("file", result.Filename),
			slog.String("destination", result.DestinationFolder),
			slog.Float64("confidence", result.Confidence),
		)
	}
	return result
}

// jsonSpan locates the first {...} span in a reply, non-greedy across
// lines.
var jsonSpan = regexp.MustCompile(`(?s)\{.*?\}`)

func (c *Classifier) parseReply(reply string, base Result) Result {
	span := jsonSpan.FindString(reply)
	if span == "" {
		c.logger.Error("no JSON object in LLM reply", slog.String("reply", extract.Preview(reply, 500)))
		base.ErrorMessage = "no JSON object found in response"
		return base
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(span), &data); err != nil {
		c.logger.Error("invalid JSON in LLM reply", slog.Any("error", err))
		base.ErrorMessage = fmt.Sprintf("failed to parse response: %v", err)
		return base
	}

	result := base
	result.DestinationFolder = SanitizeDestination(stringOr(data["destination_folder"], ""))
	result.Tags = coerceTags(data["tags"])
	result.Confidence = clampConfidence(coerceFloat(data["confidence"], 0.5))
	result.Reasoning = stringOr(data["reasoning"], "")
	if result.Reasoning == "" {
		result.Reasoning = "No reasoning provided"
	}
	result.Success = true
	return result
}

// SanitizeDestination normalizes an LLM-proposed folder path: backslashes
// become slashes, leading/trailing separators are stripped, and anything
// empty or escaping the organized root collapses to Unsorted. The
// operation is idempotent.
func SanitizeDestination(destination string) string {
	destination = strings.ReplaceAll(destination, "\\", "/")
	destination = strings.Trim(destination, "/")
	if destination == "" {
		return UnsortedFolder
	}
	for _, segment := range strings.Split(destination, "/") {
		if segment == ".." {
			return UnsortedFolder
		}
	}
	return destination
}

func (c *Classifier) isNewFolder(destination string) bool {
	if c.organizedRoot == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.organizedRoot, filepath.FromSlash(destination)))
	return err != nil
}

func coerceTags(v any) []string {
	switch tags := v.(type) {
	case nil:
		return []string{}
	case string:
		if trimmed := strings.TrimSpace(tags); trimmed != "" {
			return []string{trimmed}
		}
		return []string{}
	case []any:
		var out []string
		for _, t := range tags {
			s := strings.TrimSpace(fmt.Sprint(t))
			if s != "" && t != nil {
				out = append(out, s)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out
	default:
		return []string{strings.TrimSpace(fmt.Sprint(tags))}
	}
}

func coerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return parsed
		}
		return fallback
	case nil:
		return fallback
	default:
		return fallback
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fallback
}
