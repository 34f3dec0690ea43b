package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/songzhibin97/memeflux/internal/data"
	"github.com/songzhibin97/memeflux/internal/models"
)

// HistoryKey 所有后端保存历史文档使用的键
const HistoryKey = "narrative_history"

// ErrNotFound is returned by Load when nothing has been stored yet.
var ErrNotFound = errors.New("history not found")

const (
	BackendAuto     = "auto"
	BackendFile     = "file"
	BackendUpstash  = "upstash"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendS3       = "s3"
)

// Backend is a HistoryStore that may hold a connection.
type Backend interface {
	data.HistoryStore
	Name() string
	Close() error
}

// Config selects and configures a history backend.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`

	FilePath string `json:"file_path" yaml:"file_path"`

	UpstashURL   string `json:"upstash_url" yaml:"upstash_url"`
	UpstashToken string `json:"-" yaml:"-"`

	PostgresDSN string `json:"-" yaml:"-"`
	SQLitePath  string `json:"sqlite_path" yaml:"sqlite_path"`

	S3Bucket    string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region    string `json:"s3_region" yaml:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint" yaml:"s3_endpoint"`
	S3AccessKey string `json:"-" yaml:"-"`
	S3SecretKey string `json:"-" yaml:"-"`
}

// Resolve returns the concrete backend name. Auto picks upstash when both its URL and token
// are set, otherwise the local file.
func (c Config) Resolve() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b == "" || b == BackendAuto {
		if c.UpstashURL != "" && c.UpstashToken != "" {
			return BackendUpstash
		}
		return BackendFile
	}
	return b
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Backend, error) {
	backend := cfg.Resolve()
	logger.Info("opening history store", "backend", backend)

	switch backend {
	case BackendFile:
		return NewFileStore(cfg.FilePath), nil
	case BackendUpstash:
		return NewUpstashStore(cfg.UpstashURL, cfg.UpstashToken)
	case BackendPostgres:
		return NewPostgresStorage(ctx, cfg.PostgresDSN)
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case BackendS3:
		return NewS3Store(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown history backend: %q", cfg.Backend)
	}
}

func encode(h models.HistoryData) ([]byte, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return b, nil
}

func decode(b []byte) (models.HistoryData, error) {
	var h models.HistoryData
	if err := json.Unmarshal(b, &h); err != nil {
		return models.HistoryData{}, fmt.Errorf("failed to decode history: %w", err)
	}
	return h, nil
}
