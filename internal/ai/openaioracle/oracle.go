package openaioracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Abraxas-365/relay-match/recruitment/matching"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

const DefaultModel = "gpt-4o-mini"

// Oracle scores and explains matches with OpenAI chat completions
type Oracle struct {
	client *openai.Client
	model  string
}

// New creates an oracle. Extra options are applied after the API key.
func New(apiKey, model string, opts ...option.RequestOption) *Oracle {
	client := openai.NewClient(
		append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...,
	)

	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Oracle{
		client: &client,
		model:  model,
	}
}

var _ matching.Oracle = (*Oracle)(nil)

// Generate sends the prompt and returns the raw JSON content of the first choice
func (o *Oracle) Generate(ctx context.Context, prompt matching.Prompt) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    o.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		},
		Temperature: openai.Float(0.2),
	}
	if prompt.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(prompt.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("no response from openai")
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai returned empty content")
	}

	return content, nil
}

func (o *Oracle) Model() string {
	return o.model
}
