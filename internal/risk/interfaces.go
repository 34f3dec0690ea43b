package risk

import (
	"time"

	"github.com/songzhibin97/memeflux/internal/models"
)

// MintLimits 铸造限制参数
type MintLimits struct {
	MaxPerRun     int `json:"max_per_run" yaml:"max_per_run"`
	MaxPerDay     int `json:"max_per_day" yaml:"max_per_day"`
	MinConfidence int `json:"min_confidence" yaml:"min_confidence"`
}

// DefaultMintLimits returns the limits used when nothing is configured.
func DefaultMintLimits() MintLimits {
	return MintLimits{
		MaxPerRun:     2,
		MaxPerDay:     10,
		MinConfidence: 7,
	}
}

// SkipReason 跳过原因
type SkipReason string

const (
	SkipDuplicate     SkipReason = "duplicate"
	SkipLowConfidence SkipReason = "low_confidence"
)

// SkippedNarrative is a candidate that was not eligible for minting.
type SkippedNarrative struct {
	Narrative models.DiscoveredNarrative `json:"narrative"`
	Reason    SkipReason                 `json:"reason"`
	Detail    string                     `json:"detail"`
	// Existing is the history entry a duplicate matched against.
	Existing *models.HistoryEntry `json:"existing,omitempty"`
}

// Classification 分类结果
type Classification struct {
	New     []models.DiscoveredNarrative `json:"new"`
	Skipped []SkippedNarrative           `json:"skipped"`
}

// Selection 限流后的铸造选择
type Selection struct {
	Selected       []models.DiscoveredNarrative `json:"selected"`
	MintedLast24h  int                          `json:"minted_last_24h"`
	DailyRemaining int                          `json:"daily_remaining"`
	// CapReached is set when the rolling daily quota is exhausted.
	CapReached bool `json:"cap_reached"`
}

// Quota summarises the rolling window at a point in time.
type Quota struct {
	MintedLast24h  int       `json:"minted_last_24h"`
	MaxPerDay      int       `json:"max_per_day"`
	DailyRemaining int       `json:"daily_remaining"`
	At             time.Time `json:"at"`
}
