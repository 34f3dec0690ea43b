package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/songzhibin97/memeflux/internal/models"
)

// DefaultFilePath 本地历史文件
const DefaultFilePath = "data/history.json"

// FileStore keeps the history as an indented JSON document on local disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return BackendFile }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (models.HistoryData, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.HistoryData{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryData{}, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return decode(b)
}

// Save writes to a temp file in the same directory and renames it over the target, so a
// crash mid-write leaves the previous history intact.
func (s *FileStore) Save(_ context.Context, h models.HistoryData) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
