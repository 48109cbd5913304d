package api

import (
	"context"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/progress"
	"github.com/lysyi3m/rss-reader/app/registry"
)

type RegistryInterface interface {
	AddFeed(ctx context.Context, url string) (*database.Feed, error)
	AddFeedAsync(ctx context.Context, url string) (*database.Feed, error)
	RefreshFeed(ctx context.Context, feedID string) (string, error)
	RefreshFeedAsync(ctx context.Context, feedID string) (*database.Feed, error)
	DeleteFeed(ctx context.Context, feedID string) error
	ListFeeds(ctx context.Context) ([]database.Feed, error)
	ListArticles(ctx context.Context, filter database.ArticleFilter) ([]database.Article, error)
	GetArticleContent(ctx context.Context, articleID string) (*database.Article, error)
	UpdateArticleFlags(ctx context.Context, articleID string, flags database.ArticleFlags) error
	Statistics(ctx context.Context) (*database.Statistics, error)
	LastProgress(feedID string) (progress.Event, bool)
}

var _ RegistryInterface = (*registry.Registry)(nil)

type Subscriber interface {
	Subscribe(l progress.Listener) func()
}

type Handler struct {
	registry RegistryInterface
	events   Subscriber
	version  string
}

type AddFeedRequest struct {
	URL   string `json:"url" binding:"required"`
	Async bool   `json:"async"`
}

type UpdateArticleRequest struct {
	IsRead    *bool `json:"is_read"`
	IsStarred *bool `json:"is_starred"`
}

type RefreshResponse struct {
	Message string         `json:"message,omitempty"`
	Feed    *database.Feed `json:"feed,omitempty"`
}
