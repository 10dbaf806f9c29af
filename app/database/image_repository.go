package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ImageRepository stores image assets as SQLite blobs.
type ImageRepository struct {
	db *DB
}

func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Get(ctx context.Context, id string) (*Image, error) {
	var img Image
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, content_type, data, created_at FROM images WHERE id = ?
	`, id).Scan(&img.ID, &img.ContentType, &img.Data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}

	img.CreatedAt = time.Unix(0, createdAt).UTC()
	return &img, nil
}

func (r *ImageRepository) Put(ctx context.Context, image Image) error {
	createdAt := image.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO images (id, content_type, data, created_at) VALUES (?, ?, ?, ?)
	`, image.ID, image.ContentType, image.Data, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store image %s: %w", image.ID, err)
	}
	return nil
}

func (r *ImageRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check image %s: %w", id, err)
	}
	return count > 0, nil
}
