package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/memeflux/internal/models"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffStep = 10 * time.Second
)

// RetryingOracle retries an Oracle only while it reports ErrRateLimited.
// The wait before attempt n+1 is n*step.
type RetryingOracle struct {
	next        Oracle
	maxAttempts int
	step        time.Duration
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetryingOracle(next Oracle, logger *slog.Logger) *RetryingOracle {
	return &RetryingOracle{
		next:        next,
		maxAttempts: DefaultMaxAttempts,
		step:        DefaultBackoffStep,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

// WithBackoff overrides attempts and step.
func (r *RetryingOracle) WithBackoff(maxAttempts int, step time.Duration) *RetryingOracle {
	if maxAttempts > 0 {
		r.maxAttempts = maxAttempts
	}
	r.step = step
	return r
}

// DiscoverNarratives implements the Oracle interface
func (r *RetryingOracle) DiscoverNarratives(ctx context.Context, tokens []models.TokenData) ([]models.DiscoveredNarrative, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		narratives, err := r.next.DiscoverNarratives(ctx, tokens)
		if err == nil {
			return narratives, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, err
		}

		lastErr = err
		if attempt == r.maxAttempts {
			break
		}

		wait := time.Duration(attempt) * r.step
		r.logger.Info("oracle rate limited, retrying",
			"wait", wait.String(), "attempt", attempt, "max_attempts", r.maxAttempts)
		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, r.maxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
