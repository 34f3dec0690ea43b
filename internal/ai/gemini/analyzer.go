package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/songzhibin97/memeflux/internal/ai"
)

const defaultModel = "gemini-2.0-flash"

// Analyzer implements ai.Completer using Google's Gemini API.
type Analyzer struct {
	client *genai.Client
	model  string
}

// NewAnalyzer creates a new Gemini analyzer.
func NewAnalyzer(ctx context.Context, apiKey, model string) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Analyzer{client: client, model: model}, nil
}

func (a *Analyzer) Name() string {
	return "gemini:" + a.model
}

// Complete implements the ai.Completer interface
func (a *Analyzer) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	temperature := float32(0.3)
	result, err := a.client.Models.GenerateContent(ctx,
		a.model,
		genai.Text(userPrompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       &temperature,
			MaxOutputTokens:   2048,
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("gemini generate failed: %w: %v", ai.ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("no response from gemini")
	}
	return text, nil
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	return false
}
