package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/memeflux/internal/data/storage"
	"github.com/songzhibin97/memeflux/internal/logging"
	"github.com/songzhibin97/memeflux/internal/risk"
)

// ErrMissingSecret 必需的密钥未配置
var ErrMissingSecret = errors.New("missing required secret")

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	ProviderDeepSeek = "deepseek"
)

type Config struct {
	// 铸造限制
	Limits risk.MintLimits `json:"limits" yaml:"limits"`

	// AI 模型参数
	AIConfig AIConfig `json:"ai_config" yaml:"ai_config"`

	// 市场数据
	Market MarketConfig `json:"market" yaml:"market"`

	// 链上配置
	Solana SolanaConfig `json:"solana" yaml:"solana"`

	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`

	// 历史存储
	History storage.Config `json:"history" yaml:"history"`

	Log    logging.Config `json:"log" yaml:"log"`
	Server ServerConfig   `json:"server" yaml:"server"`

	Proxy string `json:"proxy" yaml:"proxy"` // HTTP(S) 代理
}

type AIConfig struct {
	Provider       string  `json:"provider" yaml:"provider"` // groq, openai, gemini, deepseek
	APIKey         string  `json:"-" yaml:"-"`               // 只从环境变量读取
	BaseURL        string  `json:"base_url" yaml:"base_url"`
	ModelType      string  `json:"model_type" yaml:"model_type"`
	MaxAttempts    int     `json:"max_attempts" yaml:"max_attempts"`
	BackoffSeconds float64 `json:"backoff_seconds" yaml:"backoff_seconds"`
}

type MarketConfig struct {
	Queries        []string `json:"queries" yaml:"queries"`
	RequestsPerSec float64  `json:"requests_per_sec" yaml:"requests_per_sec"`
	Boosted        bool     `json:"boosted" yaml:"boosted"`
}

type SolanaConfig struct {
	RPCURL        string  `json:"rpc_url" yaml:"rpc_url"`
	WSURL         string  `json:"ws_url" yaml:"ws_url"`
	Cluster       string  `json:"cluster" yaml:"cluster"`
	PrivateKey    string  `json:"-" yaml:"-"`
	MinBalanceSOL float64 `json:"min_balance_sol" yaml:"min_balance_sol"`
	QuoteUSD      bool    `json:"quote_usd" yaml:"quote_usd"` // 用 Binance SOLUSDT 估算美元余额
}

type TelegramConfig struct {
	BotToken string `json:"-" yaml:"-"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file and no env overrides are present.
func Default() *Config {
	return &Config{
		Limits: risk.DefaultMintLimits(),
		AIConfig: AIConfig{
			Provider:       ProviderGroq,
			MaxAttempts:    3,
			BackoffSeconds: 10,
		},
		Market: MarketConfig{
			RequestsPerSec: 5,
			Boosted:        true,
		},
		Solana: SolanaConfig{
			RPCURL:        "https://api.devnet.solana.com",
			WSURL:         "wss://api.devnet.solana.com",
			Cluster:       "devnet",
			MinBalanceSOL: 0.05,
			QuoteUSD:      true,
		},
		History: storage.Config{
			Backend:  storage.BackendAuto,
			FilePath: storage.DefaultFilePath,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads .env (if present), then the config file (if path is non-empty), then applies
// environment overrides. Secrets are only ever taken from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, c)
	default:
		err = yaml.Unmarshal(b, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from env. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("AI_PROVIDER", &c.AIConfig.Provider)
	str("AI_MODEL", &c.AIConfig.ModelType)
	str("AI_BASE_URL", &c.AIConfig.BaseURL)

	c.AIConfig.Provider = strings.ToLower(c.AIConfig.Provider)
	switch c.AIConfig.Provider {
	case ProviderOpenAI:
		str("OPENAI_API_KEY", &c.AIConfig.APIKey)
	case ProviderGemini:
		str("GEMINI_API_KEY", &c.AIConfig.APIKey)
	case ProviderDeepSeek:
		str("DEEPSEEK_API_KEY", &c.AIConfig.APIKey)
	default:
		str("GROQ_API_KEY", &c.AIConfig.APIKey)
	}

	str("PRIVATE_KEY", &c.Solana.PrivateKey)
	str("SOLANA_RPC_URL", &c.Solana.RPCURL)
	str("SOLANA_WS_URL", &c.Solana.WSURL)
	str("SOLANA_CLUSTER", &c.Solana.Cluster)

	str("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)

	str("HISTORY_BACKEND", &c.History.Backend)
	str("HISTORY_PATH", &c.History.FilePath)
	str("UPSTASH_REDIS_REST_URL", &c.History.UpstashURL)
	str("UPSTASH_REDIS_REST_TOKEN", &c.History.UpstashToken)
	str("DATABASE_URL", &c.History.PostgresDSN)
	str("SQLITE_PATH", &c.History.SQLitePath)
	str("S3_BUCKET", &c.History.S3Bucket)
	str("S3_REGION", &c.History.S3Region)
	str("S3_ENDPOINT", &c.History.S3Endpoint)
	str("AWS_ACCESS_KEY_ID", &c.History.S3AccessKey)
	str("AWS_SECRET_ACCESS_KEY", &c.History.S3SecretKey)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("HTTP_ADDR", &c.Server.Addr)

	for key, dst := range map[string]*int{
		"MAX_TOKENS_PER_RUN": &c.Limits.MaxPerRun,
		"MAX_TOKENS_PER_DAY": &c.Limits.MaxPerDay,
		"MIN_CONFIDENCE":     &c.Limits.MinConfidence,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the settings needed for the command at hand. needsOracle and needsWallet
// select which secrets are mandatory.
func (c *Config) Validate(needsOracle, needsWallet bool) error {
	if err := c.Limits.Validate(); err != nil {
		return err
	}

	if needsOracle {
		switch c.AIConfig.Provider {
		case ProviderGroq, ProviderOpenAI, ProviderGemini, ProviderDeepSeek:
		default:
			return fmt.Errorf("unknown ai provider: %q", c.AIConfig.Provider)
		}
		if c.AIConfig.APIKey == "" {
			return fmt.Errorf("%w: %s", ErrMissingSecret, c.oracleKeyName())
		}
	}
	if needsWallet && c.Solana.PrivateKey == "" {
		return fmt.Errorf("%w: PRIVATE_KEY", ErrMissingSecret)
	}
	if c.Solana.MinBalanceSOL < 0 {
		return fmt.Errorf("min_balance_sol must not be negative")
	}
	return nil
}

func (c *Config) oracleKeyName() string {
	switch c.AIConfig.Provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

// TelegramEnabled reports whether both the bot token and the chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// HistoryBackend returns the backend that will actually be used.
func (c *Config) HistoryBackend() string {
	return c.History.Resolve()
}

// MinBalanceLamports converts the configured floor to lamports.
func (c *Config) MinBalanceLamports() uint64 {
	return uint64(math.Round(c.Solana.MinBalanceSOL * 1e9))
}
