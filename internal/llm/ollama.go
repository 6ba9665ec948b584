package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Timeouts for the local backend: generation can be slow, connecting
// should not be.
const (
	connectTimeout = 10 * time.Second
	requestTimeout = 120 * time.Second
)

// OllamaClient implements Client using direct HTTP calls to the Ollama API.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	client      *http.Client
	logger      *slog.Logger
}

// NewOllamaClient creates a client for the Ollama instance at baseURL.
func NewOllamaClient(baseURL, model string, temperature float64, maxRetries int, logger *slog.Logger) *OllamaClient {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		maxRetries:  maxRetries,
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		logger: logger,
	}
}

func (c *OllamaClient) ModelName() string {
	return c.model
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate posts the prompt to /api/generate. A transport error or
// non-2xx reply is retried with no backoff, up to maxRetries attempts in
// total; after the last attempt fails its error is logged and ok is false.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, bool) {
	payload, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: c.temperature},
	})
	if err != nil {
		c.logger.Error("marshal generate request", slog.Any("error", err))
		return "", false
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		reply, err := c.generateOnce(ctx, payload)
		if err == nil {
			return reply, true
		}
		lastErr = err
		c.logger.Warn("ollama request failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.maxRetries),
			slog.Any("error", err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Error("all attempts to ollama failed",
		slog.Int("attempts", c.maxRetries),
		slog.Any("error", lastErr),
	)
	return "", false
}

func (c *OllamaClient) generateOnce(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.Response, nil
}

// CheckConnection probes /api/tags.
func (c *OllamaClient) CheckConnection(ctx context.Context) bool {
	_, err := c.listModels(ctx)
	if err != nil {
		c.logger.Warn("ollama connection check failed", slog.Any("error", err))
		return false
	}
	return true
}

// CheckModel reports whether the configured model appears in /api/tags.
// The tag matches when it equals a listed model or the colon-separated
// base names are equal.
func (c *OllamaClient) CheckModel(ctx context.Context) bool {
	models, err := c.listModels(ctx)
	if err != nil {
		c.logger.Warn("model availability check failed", slog.Any("error", err))
		return false
	}

	base := strings.SplitN(c.model, ":", 2)[0]
	for _, m := range models {
		if m == c.model {
			return true
		}
		if strings.SplitN(m, ":", 2)[0] == base {
			return true
		}
	}
	return false
}

func (c *OllamaClient) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max])
}
