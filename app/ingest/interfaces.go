package ingest

import (
	"context"

	"github.com/lysyi3m/rss-reader/app/database"
)

type ArticleStore interface {
	ArticleExists(ctx context.Context, feedID, guid string) (bool, error)
	InsertArticle(ctx context.Context, article *database.Article) (bool, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, bool)
}

// EntryFunc is called after each entry is processed
type EntryFunc func(done, total int, title string)
