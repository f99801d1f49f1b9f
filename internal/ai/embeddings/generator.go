package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/resumatch/resumatch/pkg/logx"
)

const (
	// Model and dimension are fixed together; changing the model requires
	// re-embedding every stored document.
	Model     = openai.EmbeddingModelTextEmbedding3Small
	Dimension = 1536

	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Generator turns normalized text into dense vectors via the embedding
// model provider. Calls are retried with bounded exponential backoff; a
// failure after the last attempt surfaces to the caller, never a zero
// vector.
type Generator struct {
	client *openai.Client
}

func NewGenerator(apiKey string) *Generator {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: &client,
	}
}

// Generate creates an embedding vector for a single text.
func (g *Generator) Generate(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := g.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateBatch creates embeddings for multiple texts, preserving input
// order in the result.
func (g *Generator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("text at position %d is empty", i)
		}
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: Model,
		})
		if err == nil {
			return convertResponse(resp, len(texts))
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts {
			logx.Warnf("embedding attempt %d/%d failed, retrying in %v: %v", attempt, maxAttempts, backoff, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("generate embeddings after %d attempts: %w", maxAttempts, lastErr)
}

func convertResponse(resp *openai.CreateEmbeddingResponse, expected int) ([][]float32, error) {
	if len(resp.Data) != expected {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", expected, len(resp.Data))
	}

	// Each datum names its input position; placing by Index keeps the
	// result in input order even if the provider reorders the data array.
	vectors := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= expected {
			return nil, fmt.Errorf("embedding index %d out of range for %d inputs", data.Index, expected)
		}
		if vectors[data.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding for index %d", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[data.Index] = vec
	}
	return vectors, nil
}
