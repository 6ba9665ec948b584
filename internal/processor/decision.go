package processor

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/filebutler-io/filebutler/internal/classifier"
)

// Decision is the operator's verdict on a classification.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionEdit   Decision = "edit"
	DecisionSkip   Decision = "skip"
)

// DecisionPrompter is the operator-interaction surface, kept separate from
// logging so non-interactive drivers never touch a TTY.
type DecisionPrompter interface {
	// Decide presents a classification and returns the operator's verdict.
	// For DecisionEdit, editedDestination holds the replacement folder.
	Decide(result classifier.Result, confidenceLevel string) (decision Decision, editedDestination string, err error)
}

// AutoAccept accepts every suggestion; used by non-interactive runs.
type AutoAccept struct{}

func (AutoAccept) Decide(classifier.Result, string) (Decision, string, error) {
	return DecisionAccept, "", nil
}

// TerminalPrompter asks the operator on the terminal via promptui.
type TerminalPrompter struct{}

func (TerminalPrompter) Decide(result classifier.Result, confidenceLevel string) (Decision, string, error) {
	folderNote := "existing folder"
	if result.IsNewFolder {
		folderNote = "new folder"
	}

	fmt.Println()
	fmt.Printf("  File:        %s\n", result.Filename)
	fmt.Printf("  Destination: %s (%s)\n", result.DestinationFolder, folderNote)
	fmt.Printf("  Tags:        %s\n", tagList(result.Tags))
	fmt.Printf("  Confidence:  %.0f%% (%s)\n", result.Confidence*100, confidenceLevel)
	fmt.Printf("  Reasoning:   %s\n", result.Reasoning)
	fmt.Println()

	choice := promptui.Select{
		Label: "Your choice",
		Items: []string{
			"Accept — move to the suggested destination",
			"Edit   — change the destination folder",
			"Skip   — leave this file alone",
		},
	}

	idx, _, err := choice.Run()
	if err != nil {
		return "", "", fmt.Errorf("decision prompt: %w", err)
	}

	switch idx {
	case 1:
		edit := promptui.Prompt{
			Label:   "New destination folder",
			Default: result.DestinationFolder,
		}
		destination, err := edit.Run()
		if err != nil {
			return "", "", fmt.Errorf("destination prompt: %w", err)
		}
		sanitized := classifier.SanitizeDestination(destination)
		return DecisionEdit, sanitized, nil
	case 2:
		return DecisionSkip, "", nil
	default:
		return DecisionAccept, "", nil
	}
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	return strings.Join(tags, ", ")
}
