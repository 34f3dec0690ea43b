package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TokenData 市场上的一个代币
type TokenData struct {
	Address   string          `json:"address"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Volume24h decimal.Decimal `json:"volume24h"`
}

// Label renders the token the way the oracle prompt lists it.
func (t TokenData) Label() string {
	return fmt.Sprintf("%s (%s)", t.Symbol, t.Name)
}

// DiscoveredNarrative AI 发现的叙事主题
type DiscoveredNarrative struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TokenName      string   `json:"tokenName"`
	Symbol         string   `json:"symbol"`
	Confidence     int      `json:"confidence"` // 1-10
	MatchingTokens []string `json:"matchingTokens"`
}

// HistoryEntry 一次成功铸造的记录
type HistoryEntry struct {
	Narrative      string    `json:"narrative"`
	TokenName      string    `json:"tokenName"`
	Symbol         string    `json:"symbol"`
	MintAddress    string    `json:"mintAddress"`
	TxSignature    string    `json:"txSignature"`
	MatchingTokens []string  `json:"matchingTokens"`
	Confidence     int       `json:"confidence"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewHistoryEntry snapshots a narrative at the moment its mint succeeded.
func NewHistoryEntry(n DiscoveredNarrative, mintAddress, txSignature string, createdAt time.Time) HistoryEntry {
	tokens := make([]string, len(n.MatchingTokens))
	copy(tokens, n.MatchingTokens)

	return HistoryEntry{
		Narrative:      n.Name,
		TokenName:      n.TokenName,
		Symbol:         n.Symbol,
		MintAddress:    mintAddress,
		TxSignature:    txSignature,
		MatchingTokens: tokens,
		Confidence:     n.Confidence,
		CreatedAt:      createdAt.UTC(),
	}
}

// HistoryData 持久化的铸造历史，只追加
type HistoryData struct {
	Entries []HistoryEntry `json:"entries"`
}

// Append returns a copy of h with e added at the end. h itself is left untouched.
func (h HistoryData) Append(e HistoryEntry) HistoryData {
	entries := make([]HistoryEntry, 0, len(h.Entries)+1)
	entries = append(entries, h.Entries...)
	entries = append(entries, e)
	return HistoryData{Entries: entries}
}

// Len returns the number of entries.
func (h HistoryData) Len() int {
	return len(h.Entries)
}

// MarshalJSON always writes an entries array, never null.
func (h HistoryData) MarshalJSON() ([]byte, error) {
	type alias HistoryData
	if h.Entries == nil {
		h.Entries = []HistoryEntry{}
	}
	return json.Marshal(alias(h))
}
