package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/news-digest/app/timeago"
)

// NewsRepo stores source snapshots in SQLite.
type NewsRepo struct {
	db *DB
}

func NewNewsRepository(db *DB) *NewsRepo {
	return &NewsRepo{db: db}
}

const newsColumns = `source, id, rank, title, url, comhead, author, score,
	comment_count, comment_url, submit_time, summary, image_id, fetched_at`

// ReplaceNews swaps the stored snapshot of a source for items in a single
// transaction, so readers see either the old or the new listing.
func (r *NewsRepo) ReplaceNews(ctx context.Context, source string, items []News, fetchedAt time.Time) (ReplaceResult, error) {
	var result ReplaceResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := existingIDs(ctx, tx, source)
	if err != nil {
		return result, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM news WHERE source = ?`, source); err != nil {
		return result, fmt.Errorf("failed to clear news: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO news (`+newsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			source, item.ID, item.Rank, item.Title, item.URL, item.Comhead, item.Author, item.Score,
			item.CommentCount, item.CommentURL, string(item.SubmitTime), item.Summary, item.ImageID,
			fetchedAt.UnixNano())
		if err != nil {
			return result, fmt.Errorf("failed to store news %s: %w", item.ID, err)
		}

		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true

		if existing[item.ID] {
			result.Updated++
		} else {
			result.Added++
		}
	}

	for id := range existing {
		if !seen[id] {
			result.Removed++
		}
	}

	if err := tx.Commit(); err != nil {
		return ReplaceResult{}, fmt.Errorf("failed to commit news: %w", err)
	}

	return result, nil
}

// ListByRank returns the listing of a source in rank order.
func (r *NewsRepo) ListByRank(ctx context.Context, source string) ([]News, error) {
	return r.query(ctx, `SELECT `+newsColumns+` FROM news WHERE source = ? ORDER BY rank`, source)
}

// ListAll returns every entry of a source in storage order.
func (r *NewsRepo) ListAll(ctx context.Context, source string) ([]News, error) {
	return r.query(ctx, `SELECT `+newsColumns+` FROM news WHERE source = ?`, source)
}

// LatestFetch returns when the source was last scraped, or nil if never.
func (r *NewsRepo) LatestFetch(ctx context.Context, source string) (*time.Time, error) {
	var latest sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(fetched_at) FROM news WHERE source = ?`, source).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest fetch: %w", err)
	}

	if !latest.Valid {
		return nil, nil
	}

	t := time.Unix(0, latest.Int64).UTC()
	return &t, nil
}

// GetSummaries returns the stored summary and image of each entry by id.
func (r *NewsRepo) GetSummaries(ctx context.Context, source string) (map[string]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, summary, image_id
		FROM news
		WHERE source = ? AND (summary != '' OR image_id != '')
	`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}
	defer rows.Close()

	summaries := make(map[string]Summary)
	for rows.Next() {
		var id string
		var s Summary
		if err := rows.Scan(&id, &s.Summary, &s.ImageID); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries[id] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	return summaries, nil
}

// GetNewsCount returns the number of stored entries of a source.
func (r *NewsRepo) GetNewsCount(ctx context.Context, source string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news WHERE source = ?", source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get news count: %w", err)
	}
	return count, nil
}

func (r *NewsRepo) query(ctx context.Context, query string, args ...any) ([]News, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get news: %w", err)
	}
	defer rows.Close()

	var items []News
	for rows.Next() {
		var item News
		var submitTime string
		var fetchedAt int64
		err := rows.Scan(
			&item.Source, &item.ID, &item.Rank, &item.Title, &item.URL, &item.Comhead, &item.Author,
			&item.Score, &item.CommentCount, &item.CommentURL, &submitTime, &item.Summary, &item.ImageID,
			&fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news row: %w", err)
		}
		item.SubmitTime = timeago.Phrase(submitTime)
		item.FetchedAt = time.Unix(0, fetchedAt).UTC()
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news rows: %w", err)
	}

	return items, nil
}

func existingIDs(ctx context.Context, tx *sql.Tx, source string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM news WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing news ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan news id: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}
