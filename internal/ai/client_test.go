package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhurst-labs/frontdesk/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	c, err := NewFromConfig(config.AIConfig{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	c, err = NewFromConfig(config.AIConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = NewFromConfig(config.AIConfig{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = NewFromConfig(config.AIConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestGeminiPromptAssembly(t *testing.T) {
	g := NewGeminiClient("k", "")

	prompt := g.buildPrompt(Request{
		System: "You are a receptionist.",
		Messages: []Message{
			{Role: RoleUser, Content: "I need an appointment"},
			{Role: RoleAssistant, Content: "What day works for you?"},
			{Role: RoleUser, Content: "tomorrow"},
		},
	})

	assert.Contains(t, prompt, "System: You are a receptionist.")
	assert.Contains(t, prompt, "assistant: What day works for you?")
	assert.Contains(t, prompt, "tomorrow")
}

func TestGeminiRequestBody(t *testing.T) {
	g := NewGeminiClient("k", "")
	temp := 0.4

	body := g.buildRequestBody(Request{
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		MaxTokens:   100,
		Temperature: &temp,
	})

	gc, ok := body["generationConfig"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 100, gc["maxOutputTokens"])
	assert.Equal(t, 0.4, gc["temperature"])
}

func TestMockClientDefault(t *testing.T) {
	m := &MockClient{}
	resp, err := m.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "mock response", resp.Content)
	assert.Equal(t, "mock", m.Name())
}
