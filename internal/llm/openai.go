package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Service produces answers through an OpenAI-compatible chat
// completion endpoint. Generation failures propagate to the caller as
// a single error value; there is no retry at this layer.
type Service struct {
	client *openai.Client
	model  string
}

// NewService creates a generation service.
func NewService(apiKey, baseURL, model string) *Service {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &Service{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Generate asks the model to answer the query from the supplied
// excerpt context under the given system instructions.
func (s *Service) Generate(ctx context.Context, system, excerpts, query string, maxTokens int) (string, error) {
	user := fmt.Sprintf("### CONTEXT\n%s\n\n### QUESTION\n%s", excerpts, query)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty chat completion response")
	}

	return resp.Choices[0].Message.Content, nil
}
