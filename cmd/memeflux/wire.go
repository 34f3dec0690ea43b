package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/songzhibin97/memeflux/internal/agent"
	"github.com/songzhibin97/memeflux/internal/ai"
	"github.com/songzhibin97/memeflux/internal/ai/deepseek"
	"github.com/songzhibin97/memeflux/internal/ai/gemini"
	"github.com/songzhibin97/memeflux/internal/ai/openai"
	"github.com/songzhibin97/memeflux/internal/configs"
	"github.com/songzhibin97/memeflux/internal/data/collector"
	"github.com/songzhibin97/memeflux/internal/data/collector/dexscreener"
	"github.com/songzhibin97/memeflux/internal/data/storage"
	"github.com/songzhibin97/memeflux/internal/logging"
	"github.com/songzhibin97/memeflux/internal/notify"
	"github.com/songzhibin97/memeflux/internal/notify/telegram"
	"github.com/songzhibin97/memeflux/internal/risk"
	"github.com/songzhibin97/memeflux/internal/trading/binance"
	"github.com/songzhibin97/memeflux/internal/trading/solana"
)

func newNotifier(cfg *configs.Config, log *slog.Logger) notify.Notifier {
	if !cfg.TelegramEnabled() {
		log.Info("telegram not configured, notifications disabled")
		return notify.Nop{}
	}
	return telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

// openStore opens the history backend and wraps it so loads never fail a run.
func openStore(ctx context.Context, cfg *configs.Config) (storage.Backend, *storage.Resilient, error) {
	backend, err := storage.New(ctx, cfg.History, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return backend, storage.NewResilient(backend, log), nil
}

func newCollector(cfg *configs.Config, notifier notify.Notifier, log *slog.Logger) *collector.MultiSourceCollector {
	client := dexscreener.NewClient(dexscreener.WithRateLimit(cfg.Market.RequestsPerSec, 1))

	sources := []collector.DataSource{
		dexscreener.NewSearchSource(client, cfg.Market.Queries, log),
	}
	if cfg.Market.Boosted {
		sources = append(sources, dexscreener.NewBoostedSource(client, log))
	}

	return collector.NewMultiSourceCollector(sources, log).
		OnWarning(func(ctx context.Context, source string, err error) {
			notify.Post(ctx, notifier, log, notify.SourceWarning(source, err))
		})
}

func newOracle(ctx context.Context, cfg *configs.Config, log *slog.Logger) (ai.Oracle, error) {
	var completer ai.Completer
	switch cfg.AIConfig.Provider {
	case configs.ProviderOpenAI:
		completer = openai.NewChatAnalyzer(cfg.AIConfig.APIKey, cfg.AIConfig.BaseURL, cfg.AIConfig.ModelType)
	case configs.ProviderGemini:
		a, err := gemini.NewAnalyzer(ctx, cfg.AIConfig.APIKey, cfg.AIConfig.ModelType)
		if err != nil {
			return nil, err
		}
		completer = a
	case configs.ProviderDeepSeek:
		completer = deepseek.NewDeepSeekAnalyzer(cfg.AIConfig.APIKey, cfg.AIConfig.ModelType).
			WithEndpoint(cfg.AIConfig.BaseURL)
	default:
		if cfg.AIConfig.BaseURL != "" {
			completer = openai.NewChatAnalyzer(cfg.AIConfig.APIKey, cfg.AIConfig.BaseURL, cfg.AIConfig.ModelType)
		} else {
			completer = openai.NewGroqAnalyzer(cfg.AIConfig.APIKey, cfg.AIConfig.ModelType)
		}
	}
	log.Debug("init oracle", "model", completer.Name())

	step := time.Duration(cfg.AIConfig.BackoffSeconds * float64(time.Second))
	return ai.NewRetryingOracle(ai.NewCompletionOracle(completer), log).
		WithBackoff(cfg.AIConfig.MaxAttempts, step), nil
}

func newMinter(cfg *configs.Config, log *slog.Logger) (*solana.Minter, error) {
	wallet, err := solana.ParsePrivateKey(cfg.Solana.PrivateKey)
	if err != nil {
		return nil, err
	}

	chain := solana.NewRPCChain(cfg.Solana.RPCURL)
	confirmer := solana.NewWSConfirmer(cfg.Solana.WSURL, chain, log)

	return solana.NewMinter(chain, confirmer, wallet, log).
		WithMinBalance(cfg.MinBalanceLamports()), nil
}

func newGuard(cfg *configs.Config) *risk.Guard {
	return risk.NewGuard(cfg.Limits)
}

// newAgent wires every component around an already opened history backend. The pipeline
// components log through their own transcript so API traffic never reaches the run log.
func newAgent(ctx context.Context, cfg *configs.Config, backend storage.Backend, dryRun bool) (*agent.Agent, error) {
	transcript := logging.NewTranscript()
	runLog := transcript.Logger(log)

	notifier := newNotifier(cfg, log)

	oracle, err := newOracle(ctx, cfg, runLog)
	if err != nil {
		return nil, err
	}

	minter, err := newMinter(cfg, runLog)
	if err != nil {
		return nil, err
	}
	log.Info("wallet loaded", "address", minter.Address(), "cluster", cfg.Solana.Cluster)

	a := agent.New(
		newCollector(cfg, notifier, runLog),
		oracle,
		newGuard(cfg),
		storage.NewResilient(backend, runLog),
		minter,
		notifier,
		transcript,
		runLog,
		agent.Options{
			DryRun:        dryRun,
			Cluster:       cfg.Solana.Cluster,
			QuoteSymbol:   binance.SOLUSDT,
			RunLogSpacing: notify.RunLogSpacing,
		},
	)
	if cfg.Solana.QuoteUSD {
		a.WithQuoter(binance.NewBinanceQuoter())
	}
	return a, nil
}
