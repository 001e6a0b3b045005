package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lysyi3m/rss-sync/app/model"
)

type ContentRepo struct {
	db *DB
}

func NewContentRepository(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

const feedColumns = `feed_id, url, title, description, author, category, image,
	last_build_date, pub_date, skip_days, skip_hours, ttl, created_at, updated_at, deleted`

const itemColumns = `feed_id, guid, pub_date, title, description, content, author, category, link,
	enclosure_url, enclosure_type, enclosure_length, created_at, updated_at, deleted`

// encodeJSON stores optional structured fields as TEXT, empty when absent.
func encodeJSON(v any, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func scanFeed(row rowScanner) (model.Feed, error) {
	var f model.Feed
	var image, skipDays, skipHours string

	err := row.Scan(&f.FeedID, &f.URL, &f.Title, &f.Description, &f.Author, &f.Category, &image,
		&f.LastBuildDate, &f.PubDate, &skipDays, &skipHours, &f.TTL, &f.CreatedAt, &f.UpdatedAt, &f.Deleted)
	if err != nil {
		return f, err
	}

	if image != "" {
		f.Image = &model.FeedImage{}
		if err := decodeJSON(image, f.Image); err != nil {
			return f, fmt.Errorf("failed to decode feed image: %w", err)
		}
	}
	if err := decodeJSON(skipDays, &f.SkipDays); err != nil {
		return f, fmt.Errorf("failed to decode skip days: %w", err)
	}
	if err := decodeJSON(skipHours, &f.SkipHours); err != nil {
		return f, fmt.Errorf("failed to decode skip hours: %w", err)
	}

	return f, nil
}

// UpsertFeed refreshes feed metadata. created_at and deleted are only set on first insert.
func (r *ContentRepo) UpsertFeed(ctx context.Context, f model.Feed) error {
	image, err := encodeJSON(f.Image, f.Image == nil)
	if err != nil {
		return fmt.Errorf("failed to encode feed image: %w", err)
	}
	skipDays, err := encodeJSON(f.SkipDays, len(f.SkipDays) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode skip days: %w", err)
	}
	skipHours, err := encodeJSON(f.SkipHours, len(f.SkipHours) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode skip hours: %w", err)
	}

	query := `INSERT INTO feeds (` + feedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			description = excluded.description,
			author = excluded.author,
			category = excluded.category,
			image = excluded.image,
			last_build_date = excluded.last_build_date,
			pub_date = excluded.pub_date,
			skip_days = excluded.skip_days,
			skip_hours = excluded.skip_hours,
			ttl = excluded.ttl,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		f.FeedID, f.URL, f.Title, f.Description, f.Author, f.Category, image,
		f.LastBuildDate, f.PubDate, skipDays, skipHours, f.TTL, f.CreatedAt, f.UpdatedAt, boolToInt(f.Deleted))
	if err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}
	return nil
}

func (r *ContentRepo) ListFeedsUpdatedSince(ctx context.Context, feedIDs []string, since int64) ([]model.Feed, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(feedIDs)+1)
	for _, id := range feedIDs {
		args = append(args, id)
	}
	args = append(args, since)

	query := `SELECT ` + feedColumns + ` FROM feeds
		WHERE feed_id IN (` + placeholders(len(feedIDs)) + `) AND updated_at > ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []model.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}

	return feeds, rows.Err()
}

func (r *ContentRepo) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

func (r *ContentRepo) LatestItemUpdatedAt(ctx context.Context, feedID string) (int64, error) {
	var latest int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(updated_at), 0) FROM feed_items WHERE feed_id = ?`, feedID).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest item timestamp: %w", err)
	}
	return latest, nil
}

// UpsertItem refreshes item content. created_at and deleted are only set on first insert.
func (r *ContentRepo) UpsertItem(ctx context.Context, item model.FeedItem) error {
	var encURL, encType string
	var encLength int64
	if item.Enclosure != nil {
		encURL, encType, encLength = item.Enclosure.URL, item.Enclosure.Type, item.Enclosure.Length
	}

	query := `INSERT INTO feed_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, guid) DO UPDATE SET
			pub_date = excluded.pub_date,
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			author = excluded.author,
			category = excluded.category,
			link = excluded.link,
			enclosure_url = excluded.enclosure_url,
			enclosure_type = excluded.enclosure_type,
			enclosure_length = excluded.enclosure_length,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		item.FeedID, item.GUID, item.PubDate, item.Title, item.Description, item.Content,
		item.Author, item.Category, item.Link, encURL, encType, encLength,
		item.CreatedAt, item.UpdatedAt, boolToInt(item.Deleted))
	if err != nil {
		return fmt.Errorf("failed to upsert feed item: %w", err)
	}
	return nil
}

func (r *ContentRepo) ListItemsUpdatedSince(ctx context.Context, feedID string, since int64) ([]model.FeedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM feed_items
		WHERE feed_id = ? AND updated_at > ?
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, feedID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}
	defer rows.Close()

	var items []model.FeedItem
	for rows.Next() {
		var it model.FeedItem
		var encURL, encType string
		var encLength int64
		if err := rows.Scan(&it.FeedID, &it.GUID, &it.PubDate, &it.Title, &it.Description, &it.Content,
			&it.Author, &it.Category, &it.Link, &encURL, &encType, &encLength,
			&it.CreatedAt, &it.UpdatedAt, &it.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		if encURL != "" {
			it.Enclosure = &model.Enclosure{URL: encURL, Type: encType, Length: encLength}
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

func (r *ContentRepo) GetItemCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feed_items WHERE deleted = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feed items: %w", err)
	}
	return count, nil
}
