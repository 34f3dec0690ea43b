package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/memeflux/internal/models"
)

const wellFormed = `{
  "narratives": [
    {"name": "Dog Coins", "description": "🐶 dogs everywhere", "tokenName": "DogWave", "symbol": "DOGW", "confidence": 6, "matchingTokens": ["WIF", "BONK", "DOGE"]},
    {"name": "AI Tokens", "description": "🤖 robots", "tokenName": "BotSwarm", "symbol": "BOTS", "confidence": 9, "matchingTokens": ["GOAT", "AI16Z", "ZEREBRO"]},
    {"name": "Frog Variants", "description": "🐸 ribbit", "tokenName": "FrogFront", "symbol": "FRGF", "confidence": 6, "matchingTokens": ["PEPE", "FROG", "PONKE"]}
  ]
}`

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "fence without newlines", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "  \n```json\n{}\n```\n  ", want: `{}`},
		{name: "no fence", in: ` {"a":1} `, want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestParseNarratives_Shapes(t *testing.T) {
	item := `{"name": "Cat", "description": "d", "tokenName": "T", "symbol": "S", "confidence": 7, "matchingTokens": ["A","B","C"]}`

	tests := []struct {
		name string
		resp string
		want int
	}{
		{name: "narratives key", resp: `{"narratives": [` + item + `]}`, want: 1},
		{name: "bare array", resp: `[` + item + `,` + item + `]`, want: 2},
		{name: "data key", resp: `{"data": [` + item + `]}`, want: 1},
		{name: "code fenced", resp: "```json\n{\"narratives\": [" + item + "]}\n```", want: 1},
		{name: "empty narratives", resp: `{"narratives": []}`, want: 0},
		{name: "unknown key", resp: `{"themes": [` + item + `]}`, want: 0},
		{name: "not json", resp: `Sorry, I cannot help with that.`, want: 0},
		{name: "narratives not an array", resp: `{"narratives": "none"}`, want: 0},
		{name: "malformed element dropped", resp: `[` + item + `, {"name": 42}, "oops"]`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ParseNarratives(tt.resp), tt.want)
		})
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: `0`, want: 1},
		{raw: `15`, want: 10},
		{raw: `"abc"`, want: 5},
		{raw: `-3`, want: 1},
		{raw: `7`, want: 7},
		{raw: `7.9`, want: 7},
		{raw: `null`, want: 5},
		{raw: ``, want: 5},
		{raw: `true`, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampConfidence(json.RawMessage(tt.raw)))
		})
	}
}

func TestValidate(t *testing.T) {
	base := RawNarrative{
		Name:           "Cat Coins",
		Description:    "🐱 cats",
		TokenName:      "CatWave",
		Symbol:         "CATW",
		Confidence:     json.RawMessage(`8`),
		MatchingTokens: []string{"POPCAT", "MEW", "CATS"},
	}

	with := func(mut func(r *RawNarrative)) RawNarrative {
		r := base
		mut(&r)
		return r
	}

	tests := []struct {
		name string
		raw  RawNarrative
		ok   bool
	}{
		{name: "valid", raw: base, ok: true},
		{name: "two tokens", raw: with(func(r *RawNarrative) { r.MatchingTokens = []string{"A", "B"} }), ok: false},
		{name: "no tokens", raw: with(func(r *RawNarrative) { r.MatchingTokens = nil }), ok: false},
		{name: "blank name", raw: with(func(r *RawNarrative) { r.Name = "   " }), ok: false},
		{name: "missing description", raw: with(func(r *RawNarrative) { r.Description = "" }), ok: false},
		{name: "missing token name", raw: with(func(r *RawNarrative) { r.TokenName = "" }), ok: false},
		{name: "missing symbol", raw: with(func(r *RawNarrative) { r.Symbol = "" }), ok: false},
		{name: "missing confidence", raw: with(func(r *RawNarrative) { r.Confidence = nil }), ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate([]RawNarrative{tt.raw})
			if tt.ok {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestValidate_SortsStableByConfidence(t *testing.T) {
	got := Validate(ParseNarratives(wellFormed))
	require.Len(t, got, 3)

	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.Name
	}
	assert.Equal(t, []string{"AI Tokens", "Dog Coins", "Frog Variants"}, names)
}

func TestCompletionOracle_CodeFencedReply(t *testing.T) {
	fake := &fakeCompleter{replies: []string{"```json\n" + wellFormed + "\n```"}}
	oracle := NewCompletionOracle(fake)

	got, err := oracle.DiscoverNarratives(t.Context(), []models.TokenData{{Address: "a", Symbol: "WIF", Name: "dogwifhat"}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "AI Tokens", got[0].Name)
	assert.Contains(t, fake.lastUser, "WIF (dogwifhat)")
}

func TestCompletionOracle_NoTokens(t *testing.T) {
	fake := &fakeCompleter{}
	got, err := NewCompletionOracle(fake).DiscoverNarratives(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fake.calls)
}

func TestBuildPrompt(t *testing.T) {
	sys, user := BuildPrompt([]models.TokenData{
		{Symbol: "BONK", Name: "Bonk"},
		{Symbol: "WIF", Name: "dogwifhat"},
	})
	assert.Contains(t, sys, "valid JSON only")
	assert.Contains(t, user, "BONK (Bonk), WIF (dogwifhat)")
	assert.Contains(t, user, `"matchingTokens"`)
}
