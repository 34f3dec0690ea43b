package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/songzhibin97/memeflux/internal/agent"
	"github.com/songzhibin97/memeflux/internal/api"
	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/risk"
	"github.com/songzhibin97/memeflux/internal/trading/binance"
	"github.com/songzhibin97/memeflux/internal/trading/solana"
)

var (
	dryRun       bool
	historyLimit int
	serveAddr    string
	runEvery     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery and mint pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(true, true); err != nil {
			return err
		}

		backend, _, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		a, err := newAgent(cmd.Context(), cfg, backend, dryRun)
		if err != nil {
			return err
		}

		// 所有终态都正常退出，只有取消或致命错误返回 error
		_, err = a.Run(cmd.Context())
		return err
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print minted narratives and the rolling daily quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(false, false); err != nil {
			return err
		}
		backend, store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		h, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), h, historyLimit, newGuard(cfg).Quota(h))
		return nil
	},
}

func printHistory(w io.Writer, h models.HistoryData, limit int, q risk.Quota) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSYMBOL\tNARRATIVE\tCONF\tMINT")
	for _, e := range api.Latest(h, limit) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Symbol, e.Narrative, e.Confidence, e.MintAddress)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%d entries total, %d/%d minted in the last 24h, %d remaining\n",
		h.Len(), q.MintedLast24h, q.MaxPerDay, q.DailyRemaining)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet utilities",
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := solana.GenerateWallet()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "🔑 New Solana wallet")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Address:     %s\n", w.Address)
		fmt.Fprintf(out, "PRIVATE_KEY: %s\n", w.Secret)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Keep the private key secret. Fund the wallet on devnet with:")
		fmt.Fprintf(out, "  solana airdrop 2 %s --url devnet\n", w.Address)
		return nil
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance against the mint funding floor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(false, true); err != nil {
			return err
		}
		minter, err := newMinter(cfg, log)
		if err != nil {
			return err
		}

		st, err := minter.CheckFunding(cmd.Context(), cfg.Limits.MaxPerRun)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Address:  %s\n", st.Address)
		fmt.Fprintf(out, "Balance:  %.4f SOL", st.SOL())
		if cfg.Solana.QuoteUSD {
			if price, err := binance.NewBinanceQuoter().LastPrice(cmd.Context(), binance.SOLUSDT); err == nil {
				fmt.Fprintf(out, " (~$%.2f)", st.SOL()*price)
			} else {
				log.Debug("price quote unavailable", "error", err)
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Required: %.4f SOL for %d mints\n", st.RequiredSOL(), cfg.Limits.MaxPerRun)
		if st.Sufficient {
			fmt.Fprintln(out, "Status:   ✅ funded")
		} else {
			fmt.Fprintln(out, "Status:   ❌ insufficient")
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API, optionally running on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(runEvery > 0, runEvery > 0); err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		parent := cmd.Context()

		backend, store, err := openStore(parent, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		var a *agent.Agent
		if runEvery > 0 {
			if a, err = newAgent(parent, cfg, backend, dryRun); err != nil {
				return err
			}
		}

		g, ctx := errgroup.WithContext(parent)

		srv := api.NewServer(cfg.Server.Addr, backend.Name(), store, newGuard(cfg), log)
		g.Go(func() error {
			return srv.Run(ctx)
		})

		if a != nil {
			g.Go(func() error {
				return schedule(ctx, runEvery, func(ctx context.Context) error {
					_, err := a.Run(ctx)
					return err
				})
			})
		}

		if err := g.Wait(); err != nil && parent.Err() == nil {
			return err
		}
		log.Info("memeflux stopped")
		return nil
	},
}

// schedule runs fn immediately and then every interval until ctx is done.
func schedule(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error("scheduled run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "stop before minting")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "entries to show, newest first")

	walletCmd.AddCommand(walletNewCmd, walletBalanceCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().DurationVar(&runEvery, "run-every", 0, "also run the pipeline on this interval (0 disables)")
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "scheduled runs stop before minting")
}
