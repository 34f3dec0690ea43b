package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
)

// SOLUSDT 展示钱包余额时使用的交易对
const SOLUSDT = "SOLUSDT"

// BinanceQuoter implements PriceQuoter interface for Binance public market data
type BinanceQuoter struct {
	client *binance.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]quote
}

type quote struct {
	price float64
	at    time.Time
}

// NewBinanceQuoter creates a new BinanceQuoter instance. Public endpoints need no keys.
func NewBinanceQuoter(debug ...bool) *BinanceQuoter {
	debug = append(debug, false)
	if debug[0] {
		binance.UseTestnet = true
	}

	return &BinanceQuoter{
		client: binance.NewClient("", ""),
		ttl:    time.Minute,
		cache:  make(map[string]quote),
	}
}

// WithBaseURL points the client to another endpoint (tests, mirrors).
func (b *BinanceQuoter) WithBaseURL(u string) *BinanceQuoter {
	b.client.BaseURL = u
	return b
}

// LastPrice implements price retrieval for Binance. Quotes are cached for a minute.
func (b *BinanceQuoter) LastPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.RLock()
	q, ok := b.cache[symbol]
	b.mu.RUnlock()
	if ok && time.Since(q.at) < b.ttl {
		return q.price, nil
	}

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}

	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse price: %w", err)
		}

		b.mu.Lock()
		b.cache[symbol] = quote{price: price, at: time.Now()}
		b.mu.Unlock()
		return price, nil
	}

	return 0, fmt.Errorf("price not found for symbol: %s", symbol)
}
