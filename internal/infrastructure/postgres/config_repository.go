package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfigRepository serves free-form key/value rows: retry backoff mappings
// and connector credentials live here.
type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) FindConfigByKey(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM configs WHERE key = $1`

	var value string
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config %q: %w", key, err)
	}

	return value, nil
}

func (r *ConfigRepository) UpsertConfig(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO configs (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert config %q: %w", key, err)
	}

	return nil
}
