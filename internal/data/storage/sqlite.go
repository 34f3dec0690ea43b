package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/songzhibin97/memeflux/internal/models"
)

const DefaultSQLitePath = "data/history.db"

// historyDocument 单行保存整份历史
type historyDocument struct {
	Name      string `gorm:"primaryKey;size:100"`
	Payload   string `gorm:"type:text;not null"`
	Entries   int
	UpdatedAt time.Time
}

func (historyDocument) TableName() string { return "narrative_history" }

type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&historyDocument{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return BackendSQLite }

func (s *SQLiteStore) Load(ctx context.Context) (models.HistoryData, error) {
	var doc historyDocument
	err := s.db.WithContext(ctx).First(&doc, "name = ?", HistoryKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.HistoryData{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryData{}, fmt.Errorf("failed to query history: %w", err)
	}
	return decode([]byte(doc.Payload))
}

func (s *SQLiteStore) Save(ctx context.Context, h models.HistoryData) error {
	payload, err := encode(h)
	if err != nil {
		return err
	}

	doc := historyDocument{
		Name:      HistoryKey,
		Payload:   string(payload),
		Entries:   h.Len(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
