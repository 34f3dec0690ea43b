package dexscreener

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/songzhibin97/memeflux/internal/models"
)

// SearchSource searches DexScreener for each query and keeps Solana pairs.
type SearchSource struct {
	client   *Client
	queries  []string
	perQuery int
	logger   *slog.Logger
}

func NewSearchSource(client *Client, queries []string, logger *slog.Logger) *SearchSource {
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	return &SearchSource{
		client:   client,
		queries:  queries,
		perQuery: 20,
		logger:   logger,
	}
}

func (s *SearchSource) Name() string {
	return "dexscreener-search"
}

// CollectTokens runs every query; a failed query is reported and skipped.
func (s *SearchSource) CollectTokens(ctx context.Context) ([]models.TokenData, []error) {
	var (
		tokens []models.TokenData
		errs   []error
	)

	for _, q := range s.queries {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		pairs, err := s.client.Search(ctx, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("search %q failed: %w", q, err))
			continue
		}

		solana := make([]Pair, 0, len(pairs))
		for _, p := range pairs {
			if p.ChainID == solanaChainID {
				solana = append(solana, p)
			}
		}
		s.logger.Info("dexscreener search", "query", q, "solana_pairs", len(solana))

		for i, p := range solana {
			if i >= s.perQuery {
				break
			}
			tokens = append(tokens, p.token(""))
		}
	}

	return tokens, errs
}

// BoostedSource looks up the currently boosted Solana tokens.
type BoostedSource struct {
	client *Client
	limit  int
	logger *slog.Logger
}

func NewBoostedSource(client *Client, logger *slog.Logger) *BoostedSource {
	return &BoostedSource{
		client: client,
		limit:  10,
		logger: logger,
	}
}

func (s *BoostedSource) Name() string {
	return "dexscreener-boosted"
}

// CollectTokens fetches the boost list and resolves each token's first pair. Individual
// lookups that fail are skipped without a warning; only a failed boost list is reported.
func (s *BoostedSource) CollectTokens(ctx context.Context) ([]models.TokenData, []error) {
	boosts, err := s.client.TopBoosts(ctx)
	if err != nil {
		return nil, []error{fmt.Errorf("boosted tokens fetch failed: %w", err)}
	}

	solana := make([]Boost, 0, len(boosts))
	for _, b := range boosts {
		if b.ChainID == solanaChainID && b.TokenAddress != "" {
			solana = append(solana, b)
		}
	}

	var tokens []models.TokenData
	for i, b := range solana {
		if i >= s.limit {
			break
		}
		pairs, err := s.client.SolanaTokenPairs(ctx, b.TokenAddress)
		if err != nil {
			s.logger.Debug("boosted token lookup failed", "address", b.TokenAddress, "error", err)
			continue
		}
		if len(pairs) == 0 {
			continue
		}
		tokens = append(tokens, pairs[0].token(b.TokenAddress))
	}

	s.logger.Info("dexscreener boosted", "solana_tokens", len(solana), "resolved", len(tokens))
	return tokens, nil
}
