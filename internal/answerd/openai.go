package answerd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenAIMaxTokens = 500
	DefaultSystemPrompt    = "You are a highly knowledgeable and friendly assistant. " +
		"Your goal is to understand and respond to user inquiries with clarity. " +
		"Your interactions are always respectful, helpful, and focused on delivering " +
		"the most accurate information to the user."
)

// ErrEmptyCompletion is returned when the model sends back no choices.
var ErrEmptyCompletion = errors.New("empty completion")

// OpenAIOptions configures OpenAIAnswerer. Zero values fall back to defaults.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
}

// OpenAIAnswerer answers with an OpenAI-compatible chat completion endpoint.
type OpenAIAnswerer struct {
	client *openai.Client
	opts   OpenAIOptions
}

var _ Answerer = (*OpenAIAnswerer)(nil)

func NewOpenAIAnswerer(opts OpenAIOptions) *OpenAIAnswerer {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOpenAIMaxTokens
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	return &OpenAIAnswerer{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

func (a *OpenAIAnswerer) Answer(ctx context.Context, history []Turn, question string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     a.opts.Model,
		MaxTokens: a.opts.MaxTokens,
		Messages:  a.messages(history, question),
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (a *OpenAIAnswerer) messages(history []Turn, question string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.opts.SystemPrompt,
	})
	for _, turn := range history {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Question},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Answer},
		)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})
	return msgs
}
