package config

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard walks the operator through first-run setup and returns the
// resulting configuration. All answers default to DefaultConfig values so
// pressing Enter through the wizard yields a working setup.
func RunWizard() (*Config, error) {
	cfg := DefaultConfig()

	inboxPrompt := promptui.Prompt{
		Label:   "Inbox folders to watch (comma-separated)",
		Default: strings.Join(cfg.InboxFolders, ", "),
	}
	inboxStr, err := inboxPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("inbox folders: %w", err)
	}
	cfg.InboxFolders = splitList(inboxStr)

	organizedPrompt := promptui.Prompt{
		Label:   "Organized base path (destination root)",
		Default: cfg.OrganizedBasePath,
	}
	organized, err := organizedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("organized base path: %w", err)
	}
	cfg.OrganizedBasePath = strings.TrimSpace(organized)

	modelPrompt := promptui.Prompt{
		Label:   "Ollama model for classification",
		Default: cfg.AISettings.ModelName,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model name: %w", err)
	}
	cfg.AISettings.ModelName = strings.TrimSpace(model)

	embeddingPrompt := promptui.Prompt{
		Label:   "Ollama model for embeddings",
		Default: cfg.AISettings.EmbeddingModel,
	}
	embedding, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	cfg.AISettings.EmbeddingModel = strings.TrimSpace(embedding)

	autoPrompt := promptui.Select{
		Label: "Processing mode",
		Items: []string{
			"interactive — confirm every move",
			"automatic  — accept all suggestions",
		},
	}
	idx, _, err := autoPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("processing mode: %w", err)
	}
	cfg.AutoProcessEnabled = idx == 1

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
