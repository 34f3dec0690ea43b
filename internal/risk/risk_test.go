package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/memeflux/internal/models"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(name, symbol string, createdAt time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		Narrative:      name,
		TokenName:      name + " Token",
		Symbol:         symbol,
		MintAddress:    "mint-" + symbol,
		TxSignature:    "sig-" + symbol,
		MatchingTokens: []string{"A", "B", "C"},
		Confidence:     8,
		CreatedAt:      createdAt,
	}
}

func narrative(name string, confidence int) models.DiscoveredNarrative {
	return models.DiscoveredNarrative{
		Name:           name,
		Description:    name + " is trending",
		TokenName:      name + "Coin",
		Symbol:         "SYM",
		Confidence:     confidence,
		MatchingTokens: []string{"A", "B", "C"},
	}
}

func TestIsAlreadyMinted(t *testing.T) {
	history := models.HistoryData{Entries: []models.HistoryEntry{
		entry("Dog Coins", "DOGS", testNow.Add(-48*time.Hour)),
		entry("AI", "AIX", testNow.Add(-2*time.Hour)),
		entry("Frog Memes", "FROG", testNow.Add(-time.Hour)),
	}}

	tests := []struct {
		name       string
		candidate  string
		wantMatch  bool
		wantSymbol string
	}{
		{name: "exact match", candidate: "Dog Coins", wantMatch: true, wantSymbol: "DOGS"},
		{name: "case and whitespace", candidate: "  dOg cOiNs ", wantMatch: true, wantSymbol: "DOGS"},
		{name: "candidate contains entry", candidate: "AI Coins Are Back", wantMatch: true, wantSymbol: "AIX"},
		{name: "entry contains candidate", candidate: "frog", wantMatch: true, wantSymbol: "FROG"},
		{name: "first match wins", candidate: "Dog Coins and AI", wantMatch: true, wantSymbol: "DOGS"},
		{name: "unrelated", candidate: "Political Memes", wantMatch: false},
		{name: "no substring relation", candidate: "Cat Tokens", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IsAlreadyMinted(history, tt.candidate)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.wantSymbol, got.Symbol)
			}
		})
	}
}

func TestIsAlreadyMinted_EmptyHistoryNameIgnored(t *testing.T) {
	history := models.HistoryData{Entries: []models.HistoryEntry{
		entry("   ", "BLANK", testNow),
	}}

	_, ok := IsAlreadyMinted(history, "Anything")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	history := models.HistoryData{Entries: []models.HistoryEntry{
		entry("Dog Coins", "DOGS", testNow.Add(-time.Hour)),
	}}

	narratives := []models.DiscoveredNarrative{
		narrative("Cat Tokens", 9),
		narrative("dog coins", 3),
		narrative("Political Memes", 5),
		narrative("Frog Variants", 7),
	}

	result := Classify(narratives, history, 7)

	require.Len(t, result.New, 2)
	assert.Equal(t, "Cat Tokens", result.New[0].Name)
	assert.Equal(t, "Frog Variants", result.New[1].Name)

	require.Len(t, result.Skipped, 2)

	// duplicate precedes the confidence check
	assert.Equal(t, "dog coins", result.Skipped[0].Narrative.Name)
	assert.Equal(t, SkipDuplicate, result.Skipped[0].Reason)
	assert.Equal(t, "duplicate of DOGS", result.Skipped[0].Detail)
	require.NotNil(t, result.Skipped[0].Existing)
	assert.Equal(t, "DOGS", result.Skipped[0].Existing.Symbol)

	assert.Equal(t, SkipLowConfidence, result.Skipped[1].Reason)
	assert.Equal(t, "below confidence threshold", result.Skipped[1].Detail)
	assert.Nil(t, result.Skipped[1].Existing)
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	narratives := []models.DiscoveredNarrative{narrative("A", 9), narrative("B", 1)}
	before := append([]models.DiscoveredNarrative(nil), narratives...)

	Classify(narratives, models.HistoryData{}, 7)

	assert.Equal(t, before, narratives)
}

func TestMintedSince_Boundary(t *testing.T) {
	history := models.HistoryData{Entries: []models.HistoryEntry{
		entry("exactly 24h", "A", testNow.Add(-24*time.Hour)),
		entry("just inside", "B", testNow.Add(-24*time.Hour+time.Second)),
		entry("old", "C", testNow.Add(-72*time.Hour)),
		entry("now", "D", testNow),
	}}

	assert.Equal(t, 2, MintedSince(history, testNow, RollingWindow))
}

func TestSelectForMinting(t *testing.T) {
	recent := func(n int) models.HistoryData {
		var h models.HistoryData
		for i := 0; i < n; i++ {
			h = h.Append(entry(fmt.Sprintf("recent %d", i), fmt.Sprintf("R%d", i), testNow.Add(-time.Duration(i+1)*time.Hour)))
		}
		return h
	}
	eligible := func(n int) []models.DiscoveredNarrative {
		out := make([]models.DiscoveredNarrative, n)
		for i := range out {
			out[i] = narrative(fmt.Sprintf("n%d", i), 10-i)
		}
		return out
	}

	tests := []struct {
		name          string
		eligible      int
		history       models.HistoryData
		perRun        int
		perDay        int
		wantSelected  int
		wantRemaining int
		wantCap       bool
	}{
		{name: "daily remaining binds", eligible: 5, history: recent(9), perRun: 2, perDay: 10, wantSelected: 1, wantRemaining: 1},
		{name: "per run binds", eligible: 5, history: recent(0), perRun: 2, perDay: 10, wantSelected: 2, wantRemaining: 10},
		{name: "eligible binds", eligible: 1, history: recent(3), perRun: 2, perDay: 10, wantSelected: 1, wantRemaining: 7},
		{name: "cap reached", eligible: 3, history: recent(10), perRun: 2, perDay: 10, wantSelected: 0, wantRemaining: 0, wantCap: true},
		{name: "over cap", eligible: 3, history: recent(12), perRun: 2, perDay: 10, wantSelected: 0, wantRemaining: 0, wantCap: true},
		{name: "nothing eligible", eligible: 0, history: recent(0), perRun: 2, perDay: 10, wantSelected: 0, wantRemaining: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := SelectForMinting(eligible(tt.eligible), tt.history, testNow, tt.perRun, tt.perDay)
			assert.Len(t, sel.Selected, tt.wantSelected)
			assert.Equal(t, tt.wantRemaining, sel.DailyRemaining)
			assert.Equal(t, tt.wantCap, sel.CapReached)
			for i, n := range sel.Selected {
				assert.Equal(t, fmt.Sprintf("n%d", i), n.Name, "truncation must keep the leading narratives")
			}
		})
	}
}

func TestGuard(t *testing.T) {
	history := models.HistoryData{Entries: []models.HistoryEntry{
		entry("Dog Coins", "DOGS", testNow.Add(-time.Hour)),
	}}
	g := NewGuard(DefaultMintLimits()).WithClock(func() time.Time { return testNow })

	cls := g.Classify([]models.DiscoveredNarrative{narrative("Cat", 8), narrative("Owl", 8), narrative("Ape", 7)}, history)
	require.Len(t, cls.New, 3)

	sel := g.Select(cls.New, history)
	assert.Len(t, sel.Selected, 2)
	assert.Equal(t, 1, sel.MintedLast24h)
	assert.Equal(t, 9, sel.DailyRemaining)

	q := g.Quota(history)
	assert.Equal(t, Quota{MintedLast24h: 1, MaxPerDay: 10, DailyRemaining: 9, At: testNow}, q)
}

func TestMintLimits_Validate(t *testing.T) {
	tests := []struct {
		name    string
		limits  MintLimits
		wantErr bool
	}{
		{name: "defaults", limits: DefaultMintLimits()},
		{name: "zero per run", limits: MintLimits{MaxPerRun: 0, MaxPerDay: 10, MinConfidence: 7}, wantErr: true},
		{name: "negative per day", limits: MintLimits{MaxPerRun: 2, MaxPerDay: -1, MinConfidence: 7}, wantErr: true},
		{name: "confidence too high", limits: MintLimits{MaxPerRun: 2, MaxPerDay: 10, MinConfidence: 11}, wantErr: true},
		{name: "confidence zero", limits: MintLimits{MaxPerRun: 2, MaxPerDay: 10, MinConfidence: 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.limits.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
