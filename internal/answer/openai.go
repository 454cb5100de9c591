package answer

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAILLM implements the LLM interface using OpenAI's API.
type OpenAILLM struct {
	client openai.Client
	config LLMConfig
}

// NewOpenAILLM creates an OpenAI-backed LLM implementation.
// Returns an error if the API key or model is missing.
func NewOpenAILLM(config LLMConfig) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key (set OPENAI_API_KEY)", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAILLM{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Generate sends the prompt to OpenAI and returns the generated text.
func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt cannot be empty", ErrInvalidConfig)
	}

	// Build the chat completion parameters
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	// Set optional parameters if configured
	if o.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(o.config.Temperature))
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	return completion.Choices[0].Message.Content, nil
}
