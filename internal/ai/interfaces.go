package ai

import (
	"context"
	"errors"

	"github.com/songzhibin97/memeflux/internal/models"
)

var (
	// ErrRateLimited marks a provider failure caused by throttling. Only these are retried.
	ErrRateLimited = errors.New("oracle rate limited")

	// ErrRetriesExhausted is returned when every attempt was throttled.
	ErrRetriesExhausted = errors.New("oracle retries exhausted")
)

// Oracle discovers narratives in a token list
type Oracle interface {
	// DiscoverNarratives returns validated candidates ordered by confidence, highest first.
	DiscoverNarratives(ctx context.Context, tokens []models.TokenData) ([]models.DiscoveredNarrative, error)
}

// Completer sends one prompt pair to a chat model and returns the raw text reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompletionOracle turns any Completer into an Oracle.
type CompletionOracle struct {
	completer Completer
}

func NewCompletionOracle(c Completer) *CompletionOracle {
	return &CompletionOracle{completer: c}
}

// DiscoverNarratives implements the Oracle interface
func (o *CompletionOracle) DiscoverNarratives(ctx context.Context, tokens []models.TokenData) ([]models.DiscoveredNarrative, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	systemPrompt, userPrompt := BuildPrompt(tokens)

	resp, err := o.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return Validate(ParseNarratives(resp)), nil
}
