package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/huddle/go/clients"
)

const DefaultBaseURL = "https://api.openai.com"

// Client calls the chat completions endpoint.
type Client struct {
	*clients.BaseClient
	apiKey string
}

func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseClient: clients.NewBaseClient(strings.TrimRight(baseURL, "/")),
		apiKey:     apiKey,
	}
	c.SetHeader("Authorization", "Bearer "+apiKey)
	c.SetHeader("Content-Type", "application/json")
	c.SetTimeout(20 * time.Second)
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, model string, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, model, "", prompt)
}

func (c *Client) CompleteWithSystem(ctx context.Context, model string, systemPrompt string, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing OPENAI_API_KEY")
	}

	var messages []chatMessage
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	b, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.Post(ctx, "/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
