package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/songzhibin97/memeflux/internal/models"

	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(ctx context.Context, connStr string) (*PostgresStorage, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStorage{db: db}

	err = s.initTables(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

func (s *PostgresStorage) Name() string { return BackendPostgres }

// Load implements HistoryStore interface
func (s *PostgresStorage) Load(ctx context.Context) (models.HistoryData, error) {
	query := `
        SELECT payload
        FROM narrative_history
        WHERE name = $1
    `

	var payload []byte
	err := s.db.QueryRowContext(ctx, query, HistoryKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryData{}, ErrNotFound
	}
	if err != nil {
		return models.HistoryData{}, fmt.Errorf("failed to query history: %w", err)
	}

	return decode(payload)
}

// Save implements HistoryStore interface
func (s *PostgresStorage) Save(ctx context.Context, h models.HistoryData) error {
	payload, err := encode(h)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO narrative_history (
            name, payload, entries, updated_at
        ) VALUES (
            $1, $2, $3, $4
        )
        ON CONFLICT (name) DO UPDATE SET
            payload = EXCLUDED.payload,
            entries = EXCLUDED.entries,
            updated_at = EXCLUDED.updated_at
    `

	_, err = s.db.ExecContext(ctx, query,
		HistoryKey,
		string(payload),
		h.Len(),
		time.Now().UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS narrative_history (
			name VARCHAR(100) PRIMARY KEY,
			payload JSONB NOT NULL,
			entries INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		_, err := s.db.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
