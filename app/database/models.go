package database

import (
	"time"
)

// Feed represents a subscribed feed
type Feed struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	WebsiteURL  string     `json:"website_url,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"` // nil until the first successful sync
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Article represents a persisted feed entry
type Article struct {
	ID          string     `json:"id"`
	FeedID      string     `json:"feed_id"`
	Title       string     `json:"title"`
	Link        string     `json:"link,omitempty"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content,omitempty"` // filled lazily when the feed carries no body
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	GUID        string     `json:"guid"` // natural key, unique per feed
	IsRead      bool       `json:"is_read"`
	IsStarred   bool       `json:"is_starred"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ArticleFilter struct {
	FeedID string
	Limit  int
	Offset int
}

const DefaultArticleLimit = 50

type ArticleFlags struct {
	IsRead    *bool `json:"is_read,omitempty"`
	IsStarred *bool `json:"is_starred,omitempty"`
}

func (f ArticleFlags) Empty() bool {
	return f.IsRead == nil && f.IsStarred == nil
}

type FeedUnreadCount struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	UnreadCount int    `json:"unread_count"`
}

type Statistics struct {
	TotalArticles   int               `json:"total_articles"`
	UnreadArticles  int               `json:"unread_articles"`
	StarredArticles int               `json:"starred_articles"`
	TotalFeeds      int               `json:"total_feeds"`
	FeedStats       []FeedUnreadCount `json:"feed_stats"`
}
