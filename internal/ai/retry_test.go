package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/memeflux/internal/models"
)

type fakeCompleter struct {
	replies  []string
	errs     []error
	calls    int
	lastUser string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (string, error) {
	i := f.calls
	f.calls++
	f.lastUser = user
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", nil
}

func newTestRetrier(next Oracle) (*RetryingOracle, *[]time.Duration) {
	var waits []time.Duration
	r := NewRetryingOracle(next, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return r, &waits
}

var tokens = []models.TokenData{{Address: "addr", Symbol: "BONK", Name: "Bonk"}}

func TestRetryingOracle_RetriesRateLimitWithLinearBackoff(t *testing.T) {
	rateLimited := fmt.Errorf("status 429: %w", ErrRateLimited)
	fake := &fakeCompleter{
		errs:    []error{rateLimited, rateLimited, nil},
		replies: []string{"", "", wellFormed},
	}
	r, waits := newTestRetrier(NewCompletionOracle(fake))

	got, err := r.DiscoverNarratives(context.Background(), tokens)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, fake.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, *waits)
}

func TestRetryingOracle_Exhausted(t *testing.T) {
	rateLimited := fmt.Errorf("status 429: %w", ErrRateLimited)
	fake := &fakeCompleter{errs: []error{rateLimited, rateLimited, rateLimited, rateLimited}}
	r, waits := newTestRetrier(NewCompletionOracle(fake))

	got, err := r.DiscoverNarratives(context.Background(), tokens)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Empty(t, got)
	assert.Equal(t, 3, fake.calls)
	assert.Len(t, *waits, 2)
}

func TestRetryingOracle_OtherErrorsAreTerminal(t *testing.T) {
	boom := errors.New("invalid api key")
	fake := &fakeCompleter{errs: []error{boom}}
	r, waits := newTestRetrier(NewCompletionOracle(fake))

	_, err := r.DiscoverNarratives(context.Background(), tokens)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fake.calls)
	assert.Empty(t, *waits)
}

func TestRetryingOracle_ContextCancelledWhileWaiting(t *testing.T) {
	rateLimited := fmt.Errorf("status 429: %w", ErrRateLimited)
	fake := &fakeCompleter{errs: []error{rateLimited, rateLimited}}
	r := NewRetryingOracle(NewCompletionOracle(fake), slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithBackoff(3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.DiscoverNarratives(ctx, tokens)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fake.calls)
}
