package ai

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/songzhibin97/memeflux/internal/models"
)

const (
	minConfidence     = 1
	maxConfidence     = 10
	defaultConfidence = 5
	minMatchingTokens = 3
)

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\\r?\\n?")
	fenceClose = regexp.MustCompile("\\r?\\n?```\\s*$")
)

// RawNarrative is one untrusted candidate as the model wrote it.
type RawNarrative struct {
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	TokenName      string          `json:"tokenName"`
	Symbol         string          `json:"symbol"`
	Confidence     json.RawMessage `json:"confidence"`
	MatchingTokens []string        `json:"matchingTokens"`
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseNarratives extracts candidate objects from a model reply. It accepts a bare array,
// or an object carrying the array under "narratives" or "data". Elements that do not decode
// are dropped individually; an unreadable reply yields nil.
func ParseNarratives(resp string) []RawNarrative {
	body := []byte(StripCodeFence(resp))

	items, ok := candidateArray(body)
	if !ok {
		return nil
	}

	out := make([]RawNarrative, 0, len(items))
	for _, item := range items {
		var n RawNarrative
		if err := json.Unmarshal(item, &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func candidateArray(body []byte) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return items, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range []string{"narratives", "data"} {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, true
		}
	}
	return nil, false
}

// Validate keeps well-formed candidates and orders them by confidence, highest first.
// Ties keep their discovery order.
func Validate(raw []RawNarrative) []models.DiscoveredNarrative {
	out := make([]models.DiscoveredNarrative, 0, len(raw))
	for _, r := range raw {
		n, ok := validateOne(r)
		if !ok {
			continue
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func validateOne(r RawNarrative) (models.DiscoveredNarrative, bool) {
	name := strings.TrimSpace(r.Name)
	description := strings.TrimSpace(r.Description)
	tokenName := strings.TrimSpace(r.TokenName)
	symbol := strings.TrimSpace(r.Symbol)

	if name == "" || description == "" || tokenName == "" || symbol == "" {
		return models.DiscoveredNarrative{}, false
	}
	if len(r.MatchingTokens) < minMatchingTokens {
		return models.DiscoveredNarrative{}, false
	}

	tokens := make([]string, len(r.MatchingTokens))
	copy(tokens, r.MatchingTokens)

	return models.DiscoveredNarrative{
		Name:           name,
		Description:    description,
		TokenName:      tokenName,
		Symbol:         symbol,
		Confidence:     ClampConfidence(r.Confidence),
		MatchingTokens: tokens,
	}, true
}

// ClampConfidence maps a raw JSON confidence into [1,10]. Anything that is not a JSON
// number, including a missing value, becomes 5.
func ClampConfidence(raw json.RawMessage) int {
	var p *float64
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil || p == nil {
		return defaultConfidence
	}
	v := math.Trunc(*p)
	if v < minConfidence {
		return minConfidence
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return int(v)
}
