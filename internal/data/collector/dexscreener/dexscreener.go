package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/utils/request"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com"
	solanaChainID  = "solana"
)

// DefaultQueries are the meme themes searched every run.
var DefaultQueries = []string{"meme", "dog", "cat", "pepe", "ai", "trump", "bonk", "wif", "popcat", "frog"}

// Client is a paced DexScreener REST client.
type Client struct {
	baseURL    string
	httpClient *resty.Client
	limiter    *rate.Limiter
}

// Option configures Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *resty.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit paces requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: request.Request,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pair is one DEX pair as DexScreener reports it.
type Pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  Amount `json:"priceUsd"`
	Liquidity struct {
		USD Amount `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 Amount `json:"h24"`
	} `json:"volume"`
}

func (p Pair) token(fallbackAddress string) models.TokenData {
	addr := p.BaseToken.Address
	if addr == "" {
		addr = fallbackAddress
	}
	return models.TokenData{
		Address:   addr,
		Name:      p.BaseToken.Name,
		Symbol:    p.BaseToken.Symbol,
		PriceUSD:  p.PriceUSD.Decimal,
		Liquidity: p.Liquidity.USD.Decimal,
		Volume24h: p.Volume.H24.Decimal,
	}
}

// Amount is a numeric field that DexScreener sends either as a number or a string.
// Empty, null or malformed values decode to zero instead of failing the whole response.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Decimal = decimal.Zero
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		a.Decimal = d
	}
	return nil
}

// Boost is an entry of the boosted tokens list.
type Boost struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
}

// Search returns pairs matching q across all chains.
func (c *Client) Search(ctx context.Context, q string) ([]Pair, error) {
	var result struct {
		Pairs []Pair `json:"pairs"`
	}
	if err := c.get(ctx, "/latest/dex/search?q="+url.QueryEscape(q), &result); err != nil {
		return nil, err
	}
	return result.Pairs, nil
}

// TopBoosts returns the currently boosted tokens.
func (c *Client) TopBoosts(ctx context.Context) ([]Boost, error) {
	var result []Boost
	if err := c.get(ctx, "/token-boosts/top/v1", &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SolanaTokenPairs returns the pairs of one Solana token.
func (c *Client) SolanaTokenPairs(ctx context.Context, address string) ([]Pair, error) {
	var result []Pair
	if err := c.get(ctx, "/tokens/v1/solana/"+url.PathEscape(address), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.R().SetContext(ctx).Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
