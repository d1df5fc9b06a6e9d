package geminioracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Oracle scores and explains matches with the Gemini API
type Oracle struct {
	client    *genai.Client
	modelName string
}

// New creates an oracle configured for the Gemini API backend
func New(ctx context.Context, apiKey, model string) (*Oracle, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Oracle{client: client, modelName: model}, nil
}

var _ matching.Oracle = (*Oracle)(nil)

// Generate asks for a JSON response and returns the concatenated text parts
func (o *Oracle) Generate(ctx context.Context, prompt matching.Prompt) (string, error) {
	if o == nil || o.client == nil {
		return "", errors.New("gemini oracle is not initialized")
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.modelName, genai.Text(prompt.User), generationConfig(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func (o *Oracle) Model() string {
	if o == nil {
		return ""
	}
	return o.modelName
}

func generationConfig(prompt matching.Prompt) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(prompt.MaxTokens)
	}
	return cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
