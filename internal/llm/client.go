// Package llm talks to a locally hosted large-language-model backend over
// its JSON HTTP API.
package llm

import "context"

// Client is the single-prompt, JSON-replying interface the classifier
// consumes.
type Client interface {
	// Generate sends a prompt and returns the model's text reply. Returns
	// ok=false after transport retries are exhausted.
	Generate(ctx context.Context, prompt string) (reply string, ok bool)

	// CheckConnection probes whether the backend is reachable.
	CheckConnection(ctx context.Context) bool

	// CheckModel probes whether the configured model is available. A model
	// tag matches when it equals a listed model or shares its
	// colon-separated base name.
	CheckModel(ctx context.Context) bool

	// ModelName returns the configured model tag.
	ModelName() string
}
