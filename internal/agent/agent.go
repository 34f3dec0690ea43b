package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/songzhibin97/memeflux/internal/ai"
	"github.com/songzhibin97/memeflux/internal/data"
	"github.com/songzhibin97/memeflux/internal/logging"
	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/notify"
	"github.com/songzhibin97/memeflux/internal/risk"
	"github.com/songzhibin97/memeflux/internal/trading"
	"github.com/songzhibin97/memeflux/internal/trading/solana"
)

type Options struct {
	DryRun  bool
	Cluster string // 浏览器链接使用的集群
	// QuoteSymbol is the spot pair used to value the wallet, e.g. SOLUSDT.
	QuoteSymbol   string
	RunLogSpacing time.Duration
}

// Agent runs the fetch, discover, filter, limit and mint pipeline once per Run call.
type Agent struct {
	collector  data.DataCollector
	oracle     ai.Oracle
	guard      *risk.Guard
	store      data.HistoryStore
	minter     trading.TokenMinter
	quoter     trading.PriceQuoter
	notifier   notify.Notifier
	transcript *logging.Transcript
	logger     *slog.Logger
	opts       Options
	now        func() time.Time
}

// New builds an agent. logger is expected to feed transcript (see Transcript.Logger) so the
// run log shipped at the end of Run holds the lines of that run only.
func New(
	collector data.DataCollector,
	oracle ai.Oracle,
	guard *risk.Guard,
	store data.HistoryStore,
	minter trading.TokenMinter,
	notifier notify.Notifier,
	transcript *logging.Transcript,
	logger *slog.Logger,
	opts Options,
) *Agent {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if transcript == nil {
		transcript = logging.NewTranscript()
	}
	if opts.Cluster == "" {
		opts.Cluster = "devnet"
	}
	return &Agent{
		collector:  collector,
		oracle:     oracle,
		guard:      guard,
		store:      store,
		minter:     minter,
		notifier:   notifier,
		transcript: transcript,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// WithQuoter enables the USD estimate in funding reports.
func (a *Agent) WithQuoter(q trading.PriceQuoter) *Agent {
	a.quoter = q
	return a
}

// WithClock replaces the wall clock used for history timestamps.
func (a *Agent) WithClock(now func() time.Time) *Agent {
	a.now = now
	return a
}

// Run executes one pass. Graceful terminal states are reported through Result.Outcome; an
// error is only returned when ctx is cancelled.
func (a *Agent) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: a.now().UTC(),
	}
	a.transcript.Reset()
	log := a.logger.With("run_id", res.RunID)

	log.Info("🚀 run started", "dry_run", a.opts.DryRun)

	err := a.run(ctx, log, res)

	res.FinishedAt = a.now().UTC()
	if err != nil {
		log.Error("run aborted", "error", err, "minted", len(res.Minted))
	} else {
		log.Info(res.Outcome.Describe(),
			"outcome", res.Outcome.String(),
			"minted", len(res.Minted),
			"failed", len(res.Failures),
			"duration", res.FinishedAt.Sub(res.StartedAt).String(),
		)
	}

	// 每次运行结束都把日志发给运营
	notify.PostAll(context.WithoutCancel(ctx), a.notifier, log,
		notify.RunLog(a.transcript.Flush()), a.opts.RunLogSpacing)

	return res, err
}

func (a *Agent) run(ctx context.Context, log *slog.Logger, res *Result) error {
	// FETCH_TOKENS
	tokens, err := a.collector.CollectTokens(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("token collection failed", "error", err)
	}
	res.Tokens = len(tokens)
	log.Info("📊 tokens fetched", "count", len(tokens))
	if len(tokens) == 0 {
		res.Outcome = OutcomeNoTokens
		a.post(ctx, log, notify.NoTokens())
		return nil
	}

	// DISCOVER_NARRATIVES, validated and sorted inside the oracle layer
	narratives, err := a.oracle.DiscoverNarratives(ctx, tokens)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.OracleError = err.Error()
		log.Error("narrative discovery failed", "error", err)
		a.post(ctx, log, notify.OracleError(err))
	}
	res.Narratives = narratives
	log.Info("🧠 narratives discovered", "count", len(narratives))
	if len(narratives) == 0 {
		res.Outcome = OutcomeNoNarratives
		if err == nil {
			a.post(ctx, log, notify.NoNarratives())
		}
		return nil
	}

	// history snapshot, read once
	history, err := a.store.Load(ctx)
	if err != nil {
		log.Warn("could not load history, starting fresh", "error", err)
		history = models.HistoryData{}
	}

	// CLASSIFY
	res.Classification = a.guard.Classify(narratives, history)
	for _, s := range res.Classification.Skipped {
		log.Info("⏭️ narrative skipped",
			"narrative", s.Narrative.Name,
			"confidence", s.Narrative.Confidence,
			"reason", string(s.Reason),
			"detail", s.Detail,
		)
	}
	for _, n := range res.Classification.New {
		log.Info("✨ new narrative", "narrative", n.Name, "symbol", n.Symbol, "confidence", n.Confidence)
	}
	a.post(ctx, log, notify.NarrativeSummary(narratives, len(res.Classification.New), len(res.Classification.Skipped)))

	if len(res.Classification.New) == 0 {
		res.Outcome = OutcomeAllSkipped
		a.post(ctx, log, notify.AllSkipped(len(res.Classification.Skipped)))
		return nil
	}

	// RATE_LIMIT
	res.Selection = a.guard.Select(res.Classification.New, history)
	limits := a.guard.Limits()
	log.Info("🎯 mint quota",
		"minted_last_24h", res.Selection.MintedLast24h,
		"max_per_day", limits.MaxPerDay,
		"daily_remaining", res.Selection.DailyRemaining,
		"selected", len(res.Selection.Selected),
	)
	if res.Selection.CapReached || len(res.Selection.Selected) == 0 {
		res.Outcome = OutcomeCapReached
		a.post(ctx, log, notify.CapReached(res.Selection.MintedLast24h, limits.MaxPerDay))
		return nil
	}

	if a.opts.DryRun {
		for _, n := range res.Selection.Selected {
			log.Info("dry run: would mint", "narrative", n.Name, "token", n.TokenName, "symbol", n.Symbol)
		}
		res.Outcome = OutcomeDryRun
		return nil
	}

	// FUNDING gate, all or nothing for the batch
	funding, err := a.minter.CheckFunding(ctx, len(res.Selection.Selected))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.Outcome = OutcomeFundingUnavailable
		log.Error("funding check failed", "error", err)
		a.post(ctx, log, notify.FundingUnavailable(err))
		return nil
	}
	res.Funding = funding
	log.Info("💰 wallet balance", "address", funding.Address, "sol", funding.SOL(), "required_sol", funding.RequiredSOL())
	if !funding.Sufficient {
		res.Outcome = OutcomeInsufficientFunds
		log.Warn("insufficient funds", "error", funding.Err())
		a.post(ctx, log, notify.InsufficientFunds(*funding, a.solPrice(ctx, log)))
		return nil
	}

	// MINT_LOOP
	for _, n := range res.Selection.Selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		mint, err := a.minter.MintToken(ctx, trading.MintRequest{
			Name:        n.TokenName,
			Symbol:      n.Symbol,
			Description: n.Description,
		})
		if err != nil {
			res.Failures = append(res.Failures, MintFailure{Narrative: n, Error: err.Error()})
			log.Error("mint failed", "narrative", n.Name, "symbol", n.Symbol, "error", err)
			a.post(ctx, log, notify.MintFailed(n, err))
			continue
		}

		entry := models.NewHistoryEntry(n, mint.MintAddress, mint.Signature, a.now())
		history = history.Append(entry)
		res.Minted = append(res.Minted, entry)
		log.Info("✅ token minted", "narrative", n.Name, "symbol", n.Symbol, "mint", mint.MintAddress, "signature", mint.Signature)

		// 每次成功后立即持久化，链上已成交，取消信号不能丢记录
		if err := a.store.Save(context.WithoutCancel(ctx), history); err != nil {
			res.SaveErrors++
			log.Error("could not save history", "entries", history.Len(), "error", err)
		}

		a.post(ctx, log, notify.TokenMinted(n, mint.MintAddress, solana.ExplorerTxURL(mint.Signature, a.opts.Cluster)))
	}

	if len(res.Minted) == 0 {
		res.Outcome = OutcomeAllMintsFailed
	} else {
		res.Outcome = OutcomeCompleted
	}
	a.post(ctx, log, notify.RunComplete(len(res.Minted), len(res.Failures)))
	return nil
}

func (a *Agent) post(ctx context.Context, log *slog.Logger, text string) {
	notify.Post(ctx, a.notifier, log, text)
}

// solPrice returns 0 when no quoter is configured or the quote fails.
func (a *Agent) solPrice(ctx context.Context, log *slog.Logger) float64 {
	if a.quoter == nil || a.opts.QuoteSymbol == "" {
		return 0
	}
	price, err := a.quoter.LastPrice(ctx, a.opts.QuoteSymbol)
	if err != nil {
		log.Debug("price quote unavailable", "error", err)
		return 0
	}
	return price
}
