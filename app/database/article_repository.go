package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ArticleRepository handles database operations for articles
type ArticleRepository struct {
	db *DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

const articleColumns = `id, feed_id, title, link, description, content, author, published_at, guid, is_read, is_starred, created_at`

// ArticleExists reports whether (feedID, guid) is already stored
func (r *ArticleRepository) ArticleExists(ctx context.Context, feedID, guid string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE feed_id = ? AND guid = ?)`,
		feedID, guid).Scan(&exists)
	if err != nil {
		return false, storageError("check article existence", err)
	}
	return exists, nil
}

// InsertArticle stores a new article unless (feed_id, guid) already exists.
// It reports whether a row was actually inserted; an existing article is
// left untouched.
func (r *ArticleRepository) InsertArticle(ctx context.Context, article *Article) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (
			id, feed_id, title, link, description, content, author,
			published_at, guid, is_read, is_starred, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_id, guid) DO NOTHING
	`, article.ID, article.FeedID, article.Title, nullString(article.Link),
		nullString(article.Description), nullString(article.Content), nullString(article.Author),
		nullTime(article.PublishedAt), article.GUID, article.IsRead, article.IsStarred,
		formatTime(article.CreatedAt))
	if err != nil {
		return false, storageError("insert article", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageError("read affected rows", err)
	}

	return affected > 0, nil
}

// GetArticle retrieves a single article by id
func (r *ArticleRepository) GetArticle(ctx context.Context, id string) (*Article, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, storageError("get article", err)
	}

	return article, nil
}

// ListArticles returns a page of articles, newest first, optionally for one feed
func (r *ArticleRepository) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultArticleLimit
	}
	offset := max(filter.Offset, 0)

	query := `SELECT ` + articleColumns + ` FROM articles`
	args := []any{}
	if filter.FeedID != "" {
		query += ` WHERE feed_id = ?`
		args = append(args, filter.FeedID)
	}
	query += ` ORDER BY published_at DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("list articles", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, storageError("scan article row", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate article rows", err)
	}

	return articles, nil
}

// FillContent stores extracted content only if the article has none yet.
// It reports whether the row was updated.
func (r *ArticleRepository) FillContent(ctx context.Context, id, content string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET content = ?
		WHERE id = ? AND (content IS NULL OR trim(content) = '')
	`, content, id)
	if err != nil {
		return false, storageError("fill article content", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageError("read affected rows", err)
	}

	return affected > 0, nil
}

// UpdateFlags applies a partial update of the read/starred flags
func (r *ArticleRepository) UpdateFlags(ctx context.Context, id string, flags ArticleFlags) error {
	if flags.Empty() {
		return fmt.Errorf("no flags to update")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET is_read = COALESCE(?, is_read),
		    is_starred = COALESCE(?, is_starred)
		WHERE id = ?
	`, nullBool(flags.IsRead), nullBool(flags.IsStarred), id)
	if err != nil {
		return storageError("update article flags", err)
	}

	return requireAffected(result, ErrArticleNotFound)
}

// CountByFeed returns the number of articles stored for a feed
func (r *ArticleRepository) CountByFeed(ctx context.Context, feedID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE feed_id = ?", feedID).Scan(&count)
	if err != nil {
		return 0, storageError("count articles", err)
	}
	return count, nil
}

// GetStatistics returns article totals and per-feed unread counts for active feeds
func (r *ArticleRepository) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{FeedStats: []FeedUnreadCount{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_starred = 1 THEN 1 ELSE 0 END), 0)
		FROM articles
	`).Scan(&stats.TotalArticles, &stats.UnreadArticles, &stats.StarredArticles)
	if err != nil {
		return nil, storageError("get article statistics", err)
	}

	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds WHERE is_active = 1").Scan(&stats.TotalFeeds)
	if err != nil {
		return nil, storageError("get feed statistics", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT f.id, f.title, COUNT(a.id)
		FROM feeds f
		LEFT JOIN articles a ON a.feed_id = f.id AND a.is_read = 0
		WHERE f.is_active = 1
		GROUP BY f.id, f.title
		ORDER BY f.created_at DESC
	`)
	if err != nil {
		return nil, storageError("get per-feed unread counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fs FeedUnreadCount
		if err := rows.Scan(&fs.ID, &fs.Title, &fs.UnreadCount); err != nil {
			return nil, storageError("scan unread count row", err)
		}
		stats.FeedStats = append(stats.FeedStats, fs)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate unread count rows", err)
	}

	return stats, nil
}

func scanArticle(row rowScanner) (*Article, error) {
	var (
		article                            Article
		link, description, content, author sql.NullString
		publishedAt                        sql.NullString
		createdAt                          string
	)

	err := row.Scan(&article.ID, &article.FeedID, &article.Title, &link, &description,
		&content, &author, &publishedAt, &article.GUID, &article.IsRead, &article.IsStarred, &createdAt)
	if err != nil {
		return nil, err
	}

	article.Link = link.String
	article.Description = description.String
	article.Content = content.String
	article.Author = author.String

	if article.PublishedAt, err = parseNullTime(publishedAt); err != nil {
		return nil, err
	}
	if article.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &article, nil
}
