package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/songzhibin97/memeflux/internal/data"
	"github.com/songzhibin97/memeflux/internal/models"
)

// Resilient wraps a store so that a run never stops on history I/O. Load falls back to an
// empty history; Save failures are logged and handed back for reporting only.
type Resilient struct {
	next   data.HistoryStore
	logger *slog.Logger
}

func NewResilient(next data.HistoryStore, logger *slog.Logger) *Resilient {
	return &Resilient{next: next, logger: logger}
}

// Load never returns an error.
func (r *Resilient) Load(ctx context.Context) (models.HistoryData, error) {
	h, err := r.next.Load(ctx)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, ErrNotFound):
		r.logger.Info("no history yet, starting fresh")
	default:
		r.logger.Warn("could not load history, starting fresh", "error", err)
	}
	return models.HistoryData{}, nil
}

func (r *Resilient) Save(ctx context.Context, h models.HistoryData) error {
	if err := r.next.Save(ctx, h); err != nil {
		r.logger.Error("could not save history", "entries", h.Len(), "error", err)
		return err
	}
	r.logger.Debug("history saved", "entries", h.Len())
	return nil
}
