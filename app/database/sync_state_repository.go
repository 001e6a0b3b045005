package database

import (
	"context"
	"fmt"

	"github.com/lysyi3m/rss-sync/app/model"
)

type SyncStateRepo struct {
	db *DB
}

func NewSyncStateRepository(db *DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

const syncStateColumns = `url, feed_id, sync_started_at, sync_completed_at, state, deleted`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (model.FeedSyncState, error) {
	var s model.FeedSyncState
	err := row.Scan(&s.URL, &s.FeedID, &s.SyncStartedAt, &s.SyncCompletedAt, &s.State, &s.Deleted)
	return s, err
}

func (r *SyncStateRepo) ListDue(ctx context.Context, completedBefore int64) ([]model.FeedSyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM feed_sync_states
		WHERE deleted = 0 AND sync_completed_at < ?
		ORDER BY sync_completed_at ASC`

	rows, err := r.db.QueryContext(ctx, query, completedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sync states: %w", err)
	}
	defer rows.Close()

	var states []model.FeedSyncState
	for rows.Next() {
		s, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

func (r *SyncStateRepo) GetByURLs(ctx context.Context, urls []string) (map[string]model.FeedSyncState, error) {
	result := make(map[string]model.FeedSyncState, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	query := `SELECT ` + syncStateColumns + ` FROM feed_sync_states WHERE url IN (` + placeholders(len(urls)) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSyncState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		result[s.URL] = s
	}

	return result, rows.Err()
}

func (r *SyncStateRepo) InsertIfAbsent(ctx context.Context, s model.FeedSyncState) (bool, error) {
	query := `INSERT INTO feed_sync_states (` + syncStateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		s.URL, s.FeedID, s.SyncStartedAt, s.SyncCompletedAt, string(s.State), boolToInt(s.Deleted))
	if err != nil {
		return false, fmt.Errorf("failed to insert sync state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return n == 1, nil
}

func (r *SyncStateRepo) MarkSyncing(ctx context.Context, url string, startedAt int64) error {
	query := `UPDATE feed_sync_states SET state = ?, sync_started_at = ? WHERE url = ?`

	if _, err := r.db.ExecContext(ctx, query, string(model.SyncStateSyncing), startedAt, url); err != nil {
		return fmt.Errorf("failed to mark sync state syncing: %w", err)
	}
	return nil
}

func (r *SyncStateRepo) MarkCompleted(ctx context.Context, url string, state model.SyncState, completedAt int64) error {
	query := `UPDATE feed_sync_states SET state = ?, sync_completed_at = ? WHERE url = ?`

	if _, err := r.db.ExecContext(ctx, query, string(state), completedAt, url); err != nil {
		return fmt.Errorf("failed to mark sync state %s: %w", state, err)
	}
	return nil
}

func (r *SyncStateRepo) GetCountByState(ctx context.Context) (map[model.SyncState]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM feed_sync_states WHERE deleted = 0 GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync states: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SyncState]int)
	for rows.Next() {
		var state model.SyncState
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sync state count: %w", err)
		}
		counts[state] = n
	}

	return counts, rows.Err()
}
