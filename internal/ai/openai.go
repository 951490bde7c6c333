package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// OpenAIModel calls the chat completions endpoint for one model name.
type OpenAIModel struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewOpenAIModel(model string, opts OpenAIOptions) *OpenAIModel {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &OpenAIModel{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
}

func (m *OpenAIModel) Name() string { return m.model }

func (m *OpenAIModel) Complete(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Lines)+1)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	for _, line := range prompt.Lines {
		messages = append(messages, openai.UserMessage(line))
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(m.model),
		Messages: messages,
	}
	// o-series reasoning models reject max_tokens and temperature
	if isReasoningModel(m.model) {
		params.MaxCompletionTokens = openai.Int(m.maxTokens)
	} else {
		params.MaxTokens = openai.Int(m.maxTokens)
		params.Temperature = openai.Float(m.temperature)
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", m.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", m.model, ErrEmptyCompletion)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", m.model, ErrEmptyCompletion)
	}
	return text, nil
}

func isReasoningModel(model string) bool {
	return len(model) > 1 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}
