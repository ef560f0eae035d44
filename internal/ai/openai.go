package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts the OpenAI chat completion API.
type OpenAIClient struct {
	model  string
	client *openai.Client
}

// NewOpenAIClient creates an OpenAI client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		model:  model,
		client: openai.NewClient(apiKey),
	}
}

// Name returns the provider name.
func (o *OpenAIClient) Name() string { return "openai" }

// Complete sends a chat completion request.
func (o *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	oreq := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		oreq.Temperature = float32(*req.Temperature)
	}

	resp, err := o.client.CreateChatCompletion(ctx, oreq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return &Response{
		Content:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    resp.Model,
		Duration: time.Since(start),
	}, nil
}
