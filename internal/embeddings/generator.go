package embeddings

import (
	"context"
	"log/slog"
	"strings"
)

// Result is the outcome of generating one embedding.
type Result struct {
	Embedding     []float32
	ChunkCount    int
	TokenEstimate int
	ModelName     string
	Success       bool
	ErrorMessage  string
}

func failure(msg string) Result {
	return Result{ErrorMessage: msg}
}

// Generator produces a single vector per text blob: long input is chunked
// on sentence boundaries, all chunks are passed to the embedder in one
// Embed call, and multiple chunk vectors are averaged componentwise. The
// Ollama embedder serves that call with one HTTP request per chunk.
type Generator struct {
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewGenerator creates a generator over the given embedder. Zero chunk
// parameters fall back to the defaults.
func NewGenerator(embedder Embedder, chunkSize, chunkOverlap int, logger *slog.Logger) *Generator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Dimensions exposes the underlying model's embedding dimension.
func (g *Generator) Dimensions() int {
	return g.embedder.Dimensions()
}

// ModelName returns the identifier of the underlying model.
func (g *Generator) ModelName() string {
	return g.embedder.Name()
}

// Generate embeds one text blob. Given the same text and model, the result
// is the same across calls.
func (g *Generator) Generate(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return failure("empty text provided")
	}

	chunks := ChunkText(text, g.chunkSize, g.chunkOverlap)
	if len(chunks) == 0 {
		return failure("no valid chunks generated from text")
	}

	g.logger.Debug("generating embedding",
		slog.Int("chunks", len(chunks)),
		slog.String("model", g.embedder.Name()),
	)

	vectors, err := g.embedder.Embed(ctx, chunks)
	if err != nil {
		g.logger.Error("embedding failed", slog.Any("error", err))
		return failure(err.Error())
	}
	if len(vectors) != len(chunks) {
		return failure("embedding model returned wrong number of vectors")
	}

	embedding := vectors[0]
	if len(vectors) > 1 {
		embedding = meanPool(vectors)
	}

	return Result{
		Embedding:     embedding,
		ChunkCount:    len(chunks),
		TokenEstimate: EstimateTokens(text),
		ModelName:     g.embedder.Name(),
		Success:       true,
	}
}

// meanPool averages vectors componentwise.
func meanPool(vectors [][]float32) []float32 {
	out := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, v := range vec {
			out[i] += v
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}
