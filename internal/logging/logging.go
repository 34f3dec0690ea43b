package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level     string `json:"level" yaml:"level"`           // debug, info, warn, error
	Format    string `json:"format" yaml:"format"`         // json 或 text
	File      string `json:"file" yaml:"file"`             // 为空时输出到 stdout
	MaxSizeMB int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxAge    int    `json:"max_age_days" yaml:"max_age_days"`
	AddSource bool   `json:"add_source" yaml:"add_source"`
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Output opens the configured destination. The returned closer is a no-op for stdout.
func Output(cfg Config) io.WriteCloser {
	if cfg.File == "" {
		return nopCloser{os.Stdout}
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename: cfg.File,
		MaxSize:  maxSize,
		MaxAge:   cfg.MaxAge,
		Compress: true,
	}
}

// NewHandler builds the base handler writing to w.
func NewHandler(cfg Config, w io.Writer) (slog.Handler, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.AddSource,
		Level:     level,
	}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts), nil
	}
	return slog.NewJSONHandler(w, opts), nil
}

// New returns a logger that writes to the configured output.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	out := Output(cfg)
	h, err := NewHandler(cfg, out)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(h), out, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
