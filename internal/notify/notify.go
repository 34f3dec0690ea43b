package notify

import (
	"context"
	"log/slog"
	"time"
)

// RunLogSpacing 分段日志之间的间隔
const RunLogSpacing = 500 * time.Millisecond

// Notifier 运营通知通道
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop discards every message. Used when no channel is configured.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// Post sends text and only logs a failure. Notifications never change the run outcome.
func Post(ctx context.Context, n Notifier, logger *slog.Logger, text string) {
	if err := n.Send(ctx, text); err != nil {
		logger.Warn("notification failed", "error", err)
	}
}

// PostAll sends messages in order, pausing spacing between them when there is more than one.
func PostAll(ctx context.Context, n Notifier, logger *slog.Logger, messages []string, spacing time.Duration) {
	for i, m := range messages {
		if i > 0 && spacing > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(spacing):
			}
		}
		Post(ctx, n, logger, m)
	}
}
