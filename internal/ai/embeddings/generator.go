package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel matches the dimension of the vector(1536) columns
const DefaultModel = openai.EmbeddingModelTextEmbedding3Small

// Generator turns candidate profiles and job postings into vectors
type Generator struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewGenerator creates a generator. An empty model selects DefaultModel.
func NewGenerator(apiKey string, model string, opts ...option.RequestOption) *Generator {
	client := openai.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	m := openai.EmbeddingModel(strings.TrimSpace(model))
	if m == "" {
		m = DefaultModel
	}

	return &Generator{
		client: &client,
		model:  m,
	}
}

// GenerateEmbedding creates an embedding vector for text
func (g *Generator) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateBatchEmbeddings creates one vector per text, preserving order.
// Blank texts are rejected rather than skipped so indexes line up with the input.
func (g *Generator) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided")
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d is empty", i)
		}
	}

	resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: g.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vectors[data.Index] = toFloat32(data.Embedding)
	}

	return vectors, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
