package deepseek

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/songzhibin97/memeflux/internal/ai"
	"github.com/songzhibin97/memeflux/internal/utils/request"
)

const (
	defaultAPIEndpoint = "https://api.deepseek.com/v1"
	defaultModel       = "deepseek-chat"
)

// DeepSeekAnalyzer implements ai.Completer using the DeepSeek chat API
type DeepSeekAnalyzer struct {
	apiKey   string
	endpoint string
	model    string
	client   *resty.Client
}

// NewDeepSeekAnalyzer creates a new DeepSeek analyzer instance
func NewDeepSeekAnalyzer(apiKey string, model string) *DeepSeekAnalyzer {
	if model == "" {
		model = defaultModel
	}

	return &DeepSeekAnalyzer{
		apiKey:   apiKey,
		endpoint: defaultAPIEndpoint,
		model:    model,
		client:   request.New(60*time.Second, 0),
	}
}

// WithEndpoint points the analyzer at another base URL.
func (a *DeepSeekAnalyzer) WithEndpoint(u string) *DeepSeekAnalyzer {
	if u != "" {
		a.endpoint = u
	}
	return a
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *DeepSeekAnalyzer) Name() string {
	return "deepseek:" + a.model
}

// Complete implements the ai.Completer interface
func (a *DeepSeekAnalyzer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.3,
		MaxTokens:      2048,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(a.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(a.endpoint + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil && resp.IsSuccess() {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return "", fmt.Errorf("deepseek api error: %w: %s", ai.ErrRateLimited, errorMessage(result, resp))
	}
	if resp.IsError() {
		return "", fmt.Errorf("deepseek api error: status %d: %s", resp.StatusCode(), errorMessage(result, resp))
	}
	if result.Error != nil {
		return "", fmt.Errorf("deepseek api error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from deepseek")
	}

	return result.Choices[0].Message.Content, nil
}

func errorMessage(r chatResponse, resp *resty.Response) string {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return resp.Status()
}
