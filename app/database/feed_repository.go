package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// FeedRepository handles database operations for feeds
type FeedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

const feedColumns = `id, title, url, description, website_url, last_updated, is_active, created_at, updated_at`

// CreateFeed inserts a new feed. A feed with the same URL yields ErrFeedAlreadyExists.
func (r *FeedRepository) CreateFeed(ctx context.Context, feed *Feed) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (id, title, url, description, website_url, last_updated, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, feed.ID, feed.Title, feed.URL, nullString(feed.Description), nullString(feed.WebsiteURL),
		nullTime(feed.LastUpdated), feed.IsActive, formatTime(feed.CreatedAt), formatTime(feed.UpdatedAt))

	if err != nil {
		if isUniqueViolation(err) {
			return ErrFeedAlreadyExists
		}
		return storageError("create feed", err)
	}

	return nil
}

// GetFeed retrieves a feed by id
func (r *FeedRepository) GetFeed(ctx context.Context, id string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, storageError("get feed", err)
	}

	return feed, nil
}

// GetFeedByURL retrieves a feed by its source URL; nil when absent
func (r *FeedRepository) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("get feed by URL", err)
	}

	return feed, nil
}

// ListFeeds returns all feeds, newest first
func (r *FeedRepository) ListFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at DESC`)
	if err != nil {
		return nil, storageError("list feeds", err)
	}
	defer rows.Close()

	feeds := []Feed{}
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, storageError("scan feed row", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate feed rows", err)
	}

	return feeds, nil
}

// MarkSynced records a successful sync
func (r *FeedRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_updated = ?, updated_at = ?
		WHERE id = ?
	`, formatTime(at), formatTime(at), id)
	if err != nil {
		return storageError("mark feed synced", err)
	}

	return requireAffected(result, ErrFeedNotFound)
}

// DeleteFeed removes a feed; its articles go with it via ON DELETE CASCADE
func (r *FeedRepository) DeleteFeed(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return storageError("delete feed", err)
	}

	return requireAffected(result, ErrFeedNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed                 Feed
		description, website sql.NullString
		lastUpdated          sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&feed.ID, &feed.Title, &feed.URL, &description, &website,
		&lastUpdated, &feed.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	feed.Description = description.String
	feed.WebsiteURL = website.String

	if feed.LastUpdated, err = parseNullTime(lastUpdated); err != nil {
		return nil, err
	}
	if feed.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if feed.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &feed, nil
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storageError("read affected rows", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
