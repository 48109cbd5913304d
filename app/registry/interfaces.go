package registry

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/ingest"
	"github.com/lysyi3m/rss-reader/app/tasks"
)

type FeedStore interface {
	CreateFeed(ctx context.Context, feed *database.Feed) error
	GetFeed(ctx context.Context, id string) (*database.Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*database.Feed, error)
	ListFeeds(ctx context.Context) ([]database.Feed, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	DeleteFeed(ctx context.Context, id string) error
}

type ArticleStore interface {
	GetArticle(ctx context.Context, id string) (*database.Article, error)
	ListArticles(ctx context.Context, filter database.ArticleFilter) ([]database.Article, error)
	FillContent(ctx context.Context, id, content string) (bool, error)
	UpdateFlags(ctx context.Context, id string, flags database.ArticleFlags) error
	GetStatistics(ctx context.Context) (*database.Statistics, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Parser interface {
	Run(data []byte) (*feed.Document, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, bool)
}

type Ingestor interface {
	IngestEntries(ctx context.Context, feedID string, entries []feed.Entry, now time.Time, onEntry ingest.EntryFunc) (int, error)
}

type Scheduler interface {
	EnqueueTask(task tasks.TaskInterface) error
}
