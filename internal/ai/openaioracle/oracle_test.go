package openaioracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionServer(t *testing.T, status int, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
			return
		}
		body := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func newTestOracle(url string) *Oracle {
	return New("test-key", "", option.WithBaseURL(url), option.WithMaxRetries(0))
}

func TestGenerateReturnsContent(t *testing.T) {
	var captured map[string]any
	srv := completionServer(t, http.StatusOK, `{"overall": 80}`, &captured)
	defer srv.Close()

	oracle := newTestOracle(srv.URL)
	out, err := oracle.Generate(context.Background(), matching.Prompt{
		System:    "You score matches.",
		User:      "Score this pair.",
		MaxTokens: 800,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overall": 80}`, out)

	assert.Equal(t, DefaultModel, captured["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, captured["response_format"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestGenerateEmptyContent(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "  ", nil)
	defer srv.Close()

	_, err := newTestOracle(srv.URL).Generate(context.Background(), matching.Prompt{User: "x"})
	assert.Error(t, err)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := completionServer(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	_, err := newTestOracle(srv.URL).Generate(context.Background(), matching.Prompt{User: "x"})
	assert.Error(t, err)
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "gpt-4o", New("k", " gpt-4o ").Model())
}
