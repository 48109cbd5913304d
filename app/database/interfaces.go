package database

import (
	"context"
	"time"
)

type FeedRepositoryInterface interface {
	CreateFeed(ctx context.Context, feed *Feed) error
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	ListFeeds(ctx context.Context) ([]Feed, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	DeleteFeed(ctx context.Context, id string) error
}

type ArticleRepositoryInterface interface {
	ArticleExists(ctx context.Context, feedID, guid string) (bool, error)
	InsertArticle(ctx context.Context, article *Article) (bool, error)
	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error)
	FillContent(ctx context.Context, id, content string) (bool, error)
	UpdateFlags(ctx context.Context, id string, flags ArticleFlags) error
	CountByFeed(ctx context.Context, feedID string) (int, error)
	GetStatistics(ctx context.Context) (*Statistics, error)
}

var (
	_ FeedRepositoryInterface    = (*FeedRepository)(nil)
	_ ArticleRepositoryInterface = (*ArticleRepository)(nil)
)
