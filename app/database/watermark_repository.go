package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// WatermarkRepository keeps last-updated timestamps in SQLite, one row per
// source.
type WatermarkRepository struct {
	db *DB
}

func NewWatermarkRepository(db *DB) *WatermarkRepository {
	return &WatermarkRepository{db: db}
}

func (r *WatermarkRepository) Get(ctx context.Context, source string) (*time.Time, error) {
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at FROM last_updated WHERE source = ?`, source).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last updated for %s: %w", source, err)
	}

	t := time.Unix(0, updatedAt).UTC()
	return &t, nil
}

func (r *WatermarkRepository) Set(ctx context.Context, source string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO last_updated (source, updated_at) VALUES (?, ?)
		ON CONFLICT (source) DO UPDATE SET updated_at = excluded.updated_at
	`, source, updatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set last updated for %s: %w", source, err)
	}
	return nil
}
