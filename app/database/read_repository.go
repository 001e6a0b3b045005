package database

import (
	"context"
	"fmt"

	"github.com/lysyi3m/rss-sync/app/model"
)

type ReadRepo struct {
	db *DB
}

func NewReadRepository(db *DB) *ReadRepo {
	return &ReadRepo{db: db}
}

func (r *ReadRepo) ListByUserSince(ctx context.Context, userID string, since int64) ([]model.UserFeedItemRead, error) {
	query := `SELECT user_id, guid, feed_id, created_at, updated_at, deleted
		FROM user_feed_item_reads
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query read markers: %w", err)
	}
	defer rows.Close()

	var reads []model.UserFeedItemRead
	for rows.Next() {
		var rd model.UserFeedItemRead
		if err := rows.Scan(&rd.UserID, &rd.GUID, &rd.FeedID, &rd.CreatedAt, &rd.UpdatedAt, &rd.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan read marker: %w", err)
		}
		reads = append(reads, rd)
	}

	return reads, rows.Err()
}

func (r *ReadRepo) Upsert(ctx context.Context, rd model.UserFeedItemRead) error {
	query := `INSERT INTO user_feed_item_reads (user_id, guid, feed_id, created_at, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, guid) DO UPDATE SET
			feed_id = CASE WHEN excluded.feed_id = '' THEN user_feed_item_reads.feed_id ELSE excluded.feed_id END,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted`

	_, err := r.db.ExecContext(ctx, query,
		rd.UserID, rd.GUID, rd.FeedID, rd.CreatedAt, rd.UpdatedAt, boolToInt(rd.Deleted))
	if err != nil {
		return fmt.Errorf("failed to upsert read marker: %w", err)
	}
	return nil
}
