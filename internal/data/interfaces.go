package data

import (
	"context"

	"github.com/songzhibin97/memeflux/internal/models"
)

// DataCollector 负责收集市场代币数据
type DataCollector interface {
	// CollectTokens returns tokens deduplicated by address. Partial upstream failures are
	// tolerated and surface as warnings, not errors.
	CollectTokens(ctx context.Context) ([]models.TokenData, error)
}

// HistoryStore 铸造历史的持久化
type HistoryStore interface {
	// Load returns the stored history.
	Load(ctx context.Context) (models.HistoryData, error)

	// Save replaces the stored history with h.
	Save(ctx context.Context, h models.HistoryData) error
}
