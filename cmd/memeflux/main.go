package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/memeflux/internal/configs"
	"github.com/songzhibin97/memeflux/internal/logging"
)

var (
	// 全局参数
	configPath string
	logLevel   string

	cfg       *configs.Config
	log       *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "memeflux",
	Short: "Solana meme narrative minter",
	Long: `memeflux scans Solana meme-token market data, asks an LLM to cluster the tokens
into narratives, filters out narratives that were already minted or are too weak,
and mints an SPL token for the best new ones within per-run and rolling daily caps.

Run "memeflux run" from a scheduler (cron, CI) once per interval.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = configs.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		log, logCloser, err = logging.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.Proxy != "" {
			_ = os.Setenv("HTTP_PROXY", cfg.Proxy)
			_ = os.Setenv("HTTPS_PROXY", cfg.Proxy)
			log.Debug("set proxy ok", "proxy", cfg.Proxy)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd, historyCmd, walletCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if log != nil {
			log.Error("memeflux failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
