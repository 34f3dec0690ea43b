package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/songzhibin97/memeflux/internal/ai"
)

const (
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// ChatAnalyzer implements ai.Completer on any OpenAI compatible endpoint (Groq, OpenAI, DeepSeek).
type ChatAnalyzer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewChatAnalyzer creates a new analyzer. An empty baseURL keeps the go-openai default.
func NewChatAnalyzer(apiKey, baseURL, model string) *ChatAnalyzer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &ChatAnalyzer{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxTokens: 2048,
	}
}

// NewGroqAnalyzer points the analyzer at Groq.
func NewGroqAnalyzer(apiKey, model string) *ChatAnalyzer {
	if model == "" {
		model = DefaultGroqModel
	}
	return NewChatAnalyzer(apiKey, GroqBaseURL, model)
}

func (a *ChatAnalyzer) Name() string {
	return "openai-compatible:" + a.model
}

// Complete implements the ai.Completer interface
func (a *ChatAnalyzer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.3,
			MaxTokens:   a.maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("openai api error: %w: %v", ai.ErrRateLimited, err)
		}
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
