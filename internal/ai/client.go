// Package ai defines the completion client interface and its providers.
// Phone turns need one short completion each, so there is no streaming:
// a caller cannot hear partial text anyway, and the orchestrator races
// the whole completion against a template fallback.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/config"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the input to a Complete call.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Response is the result of a completion.
type Response struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Client is the interface all completion providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name (e.g. "gemini", "openai").
	Name() string
}

// NewFromConfig builds the provider named in the configuration.
func NewFromConfig(cfg config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
