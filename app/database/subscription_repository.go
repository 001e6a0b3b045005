package database

import (
	"context"
	"fmt"

	"github.com/lysyi3m/rss-sync/app/model"
)

type SubscriptionRepo struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

const subscriptionColumns = `user_id, feed_id, url, requested_frequency, created_at, updated_at, deleted`

func (r *SubscriptionRepo) list(ctx context.Context, query string, args ...any) ([]model.UserSubscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.UserSubscription
	for rows.Next() {
		var s model.UserSubscription
		if err := rows.Scan(&s.UserID, &s.FeedID, &s.URL, &s.RequestedFrequency,
			&s.CreatedAt, &s.UpdatedAt, &s.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

func (r *SubscriptionRepo) ListByFeed(ctx context.Context, feedID string) ([]model.UserSubscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions
		WHERE feed_id = ? AND deleted = 0`, feedID)
}

func (r *SubscriptionRepo) ListByUserSince(ctx context.Context, userID string, since int64) ([]model.UserSubscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`, userID, since)
}

func (r *SubscriptionRepo) ListActiveByUser(ctx context.Context, userID string) ([]model.UserSubscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM user_subscriptions
		WHERE user_id = ? AND deleted = 0`, userID)
}

// Upsert keeps the original created_at when the row already exists.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s model.UserSubscription) error {
	query := `INSERT INTO user_subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, feed_id) DO UPDATE SET
			url = excluded.url,
			requested_frequency = excluded.requested_frequency,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted`

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.FeedID, s.URL, s.RequestedFrequency, s.CreatedAt, s.UpdatedAt, boolToInt(s.Deleted))
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}
