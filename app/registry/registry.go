package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/metrics"
	"github.com/lysyi3m/rss-reader/app/progress"
	"github.com/lysyi3m/rss-reader/app/tasks"
)

var ErrNoFlags = errors.New("at least one of is_read or is_starred is required")

// Registry manages feeds and orchestrates fetch, parse and ingestion
type Registry struct {
	feeds     FeedStore
	articles  ArticleStore
	fetcher   Fetcher
	parser    Parser
	extractor ContentExtractor
	ingestor  Ingestor
	reporter  *progress.Reporter
	scheduler Scheduler
	now       func() time.Time
}

type Option func(*Registry)

// WithScheduler enables the asynchronous add and refresh operations
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.scheduler = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(feeds FeedStore, articles ArticleStore, fetcher Fetcher, parser Parser,
	extractor ContentExtractor, ingestor Ingestor, reporter *progress.Reporter, opts ...Option) *Registry {
	r := &Registry{
		feeds:     feeds,
		articles:  articles,
		fetcher:   fetcher,
		parser:    parser,
		extractor: extractor,
		ingestor:  ingestor,
		reporter:  reporter,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AddFeed registers a feed and ingests its current entries before returning
func (r *Registry) AddFeed(ctx context.Context, rawURL string) (*database.Feed, error) {
	f, doc, err := r.createFeed(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if _, err := r.ingestWithProgress(ctx, f, func(run *progress.Run) (int, error) {
		return r.ingestDocument(ctx, f, doc, run)
	}); err != nil {
		return nil, err
	}

	return f, nil
}

// AddFeedAsync registers a feed and ingests its entries in the background.
// Progress is reported through the reporter.
func (r *Registry) AddFeedAsync(ctx context.Context, rawURL string) (*database.Feed, error) {
	if r.scheduler == nil {
		return nil, fmt.Errorf("background tasks are not enabled")
	}

	f, doc, err := r.createFeed(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	r.enqueueSync(f, &documentSync{Registry: r, doc: doc})
	return f, nil
}

// RefreshFeed fetches the feed again and ingests entries not seen before
func (r *Registry) RefreshFeed(ctx context.Context, feedID string) (string, error) {
	f, err := r.feeds.GetFeed(ctx, feedID)
	if err != nil {
		return "", err
	}

	newCount, err := r.SyncFeed(ctx, f)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Refreshed successfully. %d new articles added.", newCount), nil
}

// RefreshFeedAsync schedules a refresh and returns the feed immediately
func (r *Registry) RefreshFeedAsync(ctx context.Context, feedID string) (*database.Feed, error) {
	if r.scheduler == nil {
		return nil, fmt.Errorf("background tasks are not enabled")
	}

	f, err := r.feeds.GetFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}

	r.enqueueSync(f, r)
	return f, nil
}

// SyncFeed fetches, parses and ingests a stored feed under a progress run.
// It returns the number of new articles.
func (r *Registry) SyncFeed(ctx context.Context, f *database.Feed) (int, error) {
	return r.ingestWithProgress(ctx, f, func(run *progress.Run) (int, error) {
		doc, err := r.fetchDocument(ctx, f.URL)
		if err != nil {
			return 0, err
		}
		return r.ingestDocument(ctx, f, doc, run)
	})
}

// AbortSync reports a scheduled sync that will not run as failed
func (r *Registry) AbortSync(f *database.Feed, err error) {
	metrics.SyncsTotal.WithLabelValues("aborted").Inc()
	slog.Warn("Feed sync aborted", "feed", f.Title, "url", f.URL, "error", err)
	progress.NewRun(r.reporter, f.ID, f.Title).Fail(fmt.Errorf("sync aborted: %w", err))
}

func (r *Registry) DeleteFeed(ctx context.Context, feedID string) error {
	if err := r.feeds.DeleteFeed(ctx, feedID); err != nil {
		return err
	}

	if r.reporter != nil {
		r.reporter.Forget(feedID)
	}

	slog.Info("Feed deleted", "feed_id", feedID)
	return nil
}

func (r *Registry) ListFeeds(ctx context.Context) ([]database.Feed, error) {
	return r.feeds.ListFeeds(ctx)
}

func (r *Registry) GetFeed(ctx context.Context, feedID string) (*database.Feed, error) {
	return r.feeds.GetFeed(ctx, feedID)
}

func (r *Registry) ListArticles(ctx context.Context, filter database.ArticleFilter) ([]database.Article, error) {
	if filter.Limit <= 0 {
		filter.Limit = database.DefaultArticleLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return r.articles.ListArticles(ctx, filter)
}

// GetArticleContent returns an article, extracting and storing its body
// first when it has none. A stored body is never replaced.
func (r *Registry) GetArticleContent(ctx context.Context, articleID string) (*database.Article, error) {
	article, err := r.articles.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(article.Content) != "" || article.Link == "" || r.extractor == nil {
		return article, nil
	}

	content, ok := r.extractor.Extract(ctx, article.Link)
	if !ok {
		return article, nil
	}

	updated, err := r.articles.FillContent(ctx, article.ID, content)
	if err != nil {
		return nil, err
	}
	if updated {
		article.Content = content
		return article, nil
	}

	// Someone else filled it first
	return r.articles.GetArticle(ctx, articleID)
}

func (r *Registry) UpdateArticleFlags(ctx context.Context, articleID string, flags database.ArticleFlags) error {
	if flags.Empty() {
		return ErrNoFlags
	}
	return r.articles.UpdateFlags(ctx, articleID, flags)
}

func (r *Registry) Statistics(ctx context.Context) (*database.Statistics, error) {
	return r.articles.GetStatistics(ctx)
}

// LastProgress returns the latest progress event for a feed
func (r *Registry) LastProgress(feedID string) (progress.Event, bool) {
	if r.reporter == nil {
		return progress.Event{}, false
	}
	return r.reporter.Last(feedID)
}

func (r *Registry) createFeed(ctx context.Context, rawURL string) (*database.Feed, *feed.Document, error) {
	feedURL, err := validateURL(rawURL)
	if err != nil {
		return nil, nil, err
	}

	existing, err := r.feeds.GetFeedByURL(ctx, feedURL)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, fmt.Errorf("%w: %s", database.ErrFeedAlreadyExists, feedURL)
	}

	doc, err := r.fetchDocument(ctx, feedURL)
	if err != nil {
		return nil, nil, err
	}

	now := r.now().UTC()
	f := &database.Feed{
		ID:          uuid.NewString(),
		Title:       doc.Title,
		URL:         feedURL,
		Description: doc.Description,
		WebsiteURL:  doc.SiteURL(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.feeds.CreateFeed(ctx, f); err != nil {
		return nil, nil, err
	}

	slog.Info("Feed added", "feed", f.Title, "url", f.URL, "entries", len(doc.Entries))
	return f, doc, nil
}

func (r *Registry) fetchDocument(ctx context.Context, feedURL string) (*feed.Document, error) {
	data, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	return r.parser.Run(data)
}

// ingestWithProgress wraps fn in a progress run that always ends with
// exactly one terminal event, including on cancellation.
func (r *Registry) ingestWithProgress(ctx context.Context, f *database.Feed, fn func(*progress.Run) (int, error)) (newCount int, err error) {
	start := time.Now()
	run := progress.NewRun(r.reporter, f.ID, f.Title)
	run.Start()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("feed sync panicked: %v", p)
		}

		duration := time.Since(start)
		if err != nil {
			run.Fail(err)
			metrics.RecordSync("failed", newCount, duration.Seconds())
			slog.Error("Feed sync failed", "feed", f.Title, "url", f.URL, "new", newCount, "duration", duration, "error", err)
			return
		}

		run.Complete(newCount)
		metrics.RecordSync("completed", newCount, duration.Seconds())
		slog.Info("Feed synced", "feed", f.Title, "new", newCount, "duration", duration)
	}()

	return fn(run)
}

func (r *Registry) ingestDocument(ctx context.Context, f *database.Feed, doc *feed.Document, run *progress.Run) (int, error) {
	run.SetTotal(len(doc.Entries))

	now := r.now().UTC()
	newCount, err := r.ingestor.IngestEntries(ctx, f.ID, doc.Entries, now, run.Advance)
	if err != nil {
		return newCount, err
	}

	if err := r.feeds.MarkSynced(ctx, f.ID, now); err != nil {
		return newCount, err
	}
	f.LastUpdated = &now
	f.UpdatedAt = now

	return newCount, nil
}

// enqueueSync schedules a background sync on a private copy of f, which
// the caller keeps using after this returns.
func (r *Registry) enqueueSync(f *database.Feed, syncer tasks.FeedSyncer) {
	cp := *f
	task := tasks.NewSyncFeedTask(&cp, syncer)
	if err := r.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue feed sync", "feed", f.Title, "url", f.URL, "error", err)
		progress.NewRun(r.reporter, f.ID, f.Title).Fail(fmt.Errorf("failed to schedule sync: %w", err))
	}
}

// documentSync ingests a document that was already fetched and parsed,
// so a newly added feed is not requested twice.
type documentSync struct {
	*Registry
	doc *feed.Document
}

func (d *documentSync) SyncFeed(ctx context.Context, f *database.Feed) (int, error) {
	return d.ingestWithProgress(ctx, f, func(run *progress.Run) (int, error) {
		return d.ingestDocument(ctx, f, d.doc, run)
	})
}

func validateURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", feed.ErrInvalidURL, rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: %s: scheme must be http or https", feed.ErrInvalidURL, rawURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: %s: missing host", feed.ErrInvalidURL, rawURL)
	}

	return trimmed, nil
}
