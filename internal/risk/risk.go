package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/songzhibin97/memeflux/internal/models"
)

// RollingWindow is the span of the daily mint cap.
const RollingWindow = 24 * time.Hour

// Guard applies the mint limits to a run. It holds no history of its own;
// every call works on the snapshot it is given.
type Guard struct {
	limits MintLimits
	now    func() time.Time
}

func NewGuard(limits MintLimits) *Guard {
	return &Guard{
		limits: limits,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock, mostly for tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Limits returns the active limits.
func (g *Guard) Limits() MintLimits {
	return g.limits
}

// Classify splits narratives into new and skipped using the configured minimum confidence.
func (g *Guard) Classify(narratives []models.DiscoveredNarrative, history models.HistoryData) Classification {
	return Classify(narratives, history, g.limits.MinConfidence)
}

// Select bounds eligible narratives by the per-run and rolling daily caps.
func (g *Guard) Select(eligible []models.DiscoveredNarrative, history models.HistoryData) Selection {
	return SelectForMinting(eligible, history, g.now(), g.limits.MaxPerRun, g.limits.MaxPerDay)
}

// Quota reports the rolling daily usage.
func (g *Guard) Quota(history models.HistoryData) Quota {
	now := g.now()
	minted := MintedSince(history, now, RollingWindow)
	return Quota{
		MintedLast24h:  minted,
		MaxPerDay:      g.limits.MaxPerDay,
		DailyRemaining: max(0, g.limits.MaxPerDay-minted),
		At:             now,
	}
}

// Validate checks that the limits are usable.
func (l MintLimits) Validate() error {
	if l.MaxPerRun <= 0 || l.MaxPerDay <= 0 {
		return fmt.Errorf("invalid mint limits: max_per_run and max_per_day must be positive")
	}
	if l.MinConfidence < 1 || l.MinConfidence > 10 {
		return fmt.Errorf("invalid mint limits: min_confidence must be within [1,10], got %d", l.MinConfidence)
	}
	return nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsAlreadyMinted returns the first history entry whose narrative name matches name.
// Names match when, lower-cased and trimmed, they are equal or one contains the other.
func IsAlreadyMinted(history models.HistoryData, name string) (models.HistoryEntry, bool) {
	candidate := normalizeName(name)
	for _, entry := range history.Entries {
		existing := normalizeName(entry.Narrative)
		if existing == "" {
			continue
		}
		if existing == candidate ||
			strings.Contains(existing, candidate) ||
			strings.Contains(candidate, existing) {
			return entry, true
		}
	}
	return models.HistoryEntry{}, false
}

// Classify walks narratives in order. A duplicate is reported as such even when its
// confidence is also below minConfidence.
func Classify(narratives []models.DiscoveredNarrative, history models.HistoryData, minConfidence int) Classification {
	result := Classification{
		New:     make([]models.DiscoveredNarrative, 0, len(narratives)),
		Skipped: make([]SkippedNarrative, 0),
	}

	for _, n := range narratives {
		if existing, ok := IsAlreadyMinted(history, n.Name); ok {
			result.Skipped = append(result.Skipped, SkippedNarrative{
				Narrative: n,
				Reason:    SkipDuplicate,
				Detail:    fmt.Sprintf("duplicate of %s", existing.Symbol),
				Existing:  &existing,
			})
			continue
		}

		if n.Confidence < minConfidence {
			result.Skipped = append(result.Skipped, SkippedNarrative{
				Narrative: n,
				Reason:    SkipLowConfidence,
				Detail:    "below confidence threshold",
			})
			continue
		}

		result.New = append(result.New, n)
	}

	return result
}

// MintedSince counts entries created strictly less than window before now.
func MintedSince(history models.HistoryData, now time.Time, window time.Duration) int {
	count := 0
	for _, entry := range history.Entries {
		if now.Sub(entry.CreatedAt) < window {
			count++
		}
	}
	return count
}

// SelectForMinting returns the leading eligible narratives that fit under
// min(perRunCap, perDayCap - mintedLast24h). eligible must already be ordered by priority.
func SelectForMinting(eligible []models.DiscoveredNarrative, history models.HistoryData, now time.Time, perRunCap, perDayCap int) Selection {
	minted := MintedSince(history, now, RollingWindow)
	remaining := max(0, perDayCap-minted)
	limit := max(0, min(len(eligible), perRunCap, remaining))

	selected := make([]models.DiscoveredNarrative, limit)
	copy(selected, eligible[:limit])

	return Selection{
		Selected:       selected,
		MintedLast24h:  minted,
		DailyRemaining: remaining,
		CapReached:     remaining == 0,
	}
}
