package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// reversed order exercises index-based placement
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(i), 0.5},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestGenerateBatchEmbeddingsKeepsOrder(t *testing.T) {
	srv := embeddingServer(t)
	defer srv.Close()

	g := NewGenerator("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	vectors, err := g.GenerateBatchEmbeddings(context.Background(), []string{"go developer", "data engineer", "designer"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i), 0.5}, v)
	}

	single, err := g.GenerateEmbedding(context.Background(), "go developer")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5}, single)
}

func TestGenerateRejectsBlankText(t *testing.T) {
	g := NewGenerator("test-key", "")

	_, err := g.GenerateBatchEmbeddings(context.Background(), nil)
	assert.Error(t, err)

	_, err = g.GenerateEmbedding(context.Background(), "  ")
	assert.Error(t, err)
}
