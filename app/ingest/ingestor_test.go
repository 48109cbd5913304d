package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/database/dbtest"
	"github.com/lysyi3m/rss-reader/app/feed"
)

var now = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type stubExtractor struct {
	mu      sync.Mutex
	content string
	calls   []string
	onCall  func(n int)
}

func (s *stubExtractor) Extract(ctx context.Context, pageURL string) (string, bool) {
	s.mu.Lock()
	s.calls = append(s.calls, pageURL)
	n := len(s.calls)
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(n)
	}
	if s.content == "" {
		return "", false
	}
	return s.content, true
}

type failingStore struct {
	ArticleStore
	err error
}

func (f *failingStore) InsertArticle(ctx context.Context, article *database.Article) (bool, error) {
	return false, f.err
}

func setup(t *testing.T) (*database.ArticleRepository, string) {
	t.Helper()

	db := dbtest.New(t)
	feeds := database.NewFeedRepository(db)

	feedID := uuid.NewString()
	require.NoError(t, feeds.CreateFeed(context.Background(), &database.Feed{
		ID:        feedID,
		Title:     "Example",
		URL:       "https://example.com/rss",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	return database.NewArticleRepository(db), feedID
}

func entry(id, title, link, body string) feed.Entry {
	e := feed.Entry{ID: id, Title: title, Body: body}
	if link != "" {
		e.Links = []string{link}
	}
	return e
}

func TestIngestEntries_InsertsNewEntries(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 2)

	published := now.Add(-time.Hour)
	entries := []feed.Entry{
		entry("a", "First", "https://example.com/a", "<p>A</p>"),
		entry("b", "Second", "https://example.com/b", "<p>B</p>"),
	}
	entries[0].Summary = "summary a"
	entries[0].Authors = []string{"Jane"}
	entries[0].PublishedAt = &published

	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := articles.ListArticles(ctx, database.ArticleFilter{FeedID: feedID})
	require.NoError(t, err)
	require.Len(t, list, 2)

	var first database.Article
	for _, a := range list {
		if a.GUID == "a" {
			first = a
		}
	}
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "https://example.com/a", first.Link)
	assert.Equal(t, "summary a", first.Description)
	assert.Equal(t, "<p>A</p>", first.Content)
	assert.Equal(t, "Jane", first.Author)
	require.NotNil(t, first.PublishedAt)
	assert.True(t, published.Equal(*first.PublishedAt))
	assert.False(t, first.IsRead)
	assert.False(t, first.IsStarred)
	assert.True(t, now.Equal(first.CreatedAt))
}

func TestIngestEntries_Idempotent(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 4)

	entries := []feed.Entry{
		entry("a", "First", "", "body"),
		entry("b", "Second", "", "body"),
	}

	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = ingestor.IngestEntries(ctx, feedID, entries, now, nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	entries = append(entries, entry("c", "Third", "", "body"))
	count, err = ingestor.IngestEntries(ctx, feedID, entries, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := articles.CountByFeed(ctx, feedID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestIngestEntries_DuplicateWithinBatchFirstWins(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 4)

	entries := []feed.Entry{
		entry("dup", "Original", "", "first body"),
		entry("other", "Other", "", "body"),
		entry("dup", "Replacement", "", "second body"),
	}

	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := articles.ListArticles(ctx, database.ArticleFilter{FeedID: feedID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		if a.GUID == "dup" {
			assert.Equal(t, "Original", a.Title)
			assert.Equal(t, "first body", a.Content)
		}
	}
}

func TestIngestEntries_ExtractsOnlyMissingBodies(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	extractor := &stubExtractor{content: "extracted text"}
	ingestor := New(articles, extractor, 1)

	entries := []feed.Entry{
		entry("inline", "Inline", "https://example.com/inline", "<p>inline</p>"),
		entry("blank", "Blank", "https://example.com/blank", "  \n "),
		entry("nolink", "No link", "", ""),
	}

	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"https://example.com/blank"}, extractor.calls)

	contents := map[string]string{}
	list, err := articles.ListArticles(ctx, database.ArticleFilter{FeedID: feedID})
	require.NoError(t, err)
	for _, a := range list {
		contents[a.GUID] = a.Content
	}

	assert.Equal(t, "<p>inline</p>", contents["inline"])
	assert.Equal(t, "extracted text", contents["blank"])
	assert.Equal(t, "", contents["nolink"])
}

func TestIngestEntries_ExtractionFailureStillStores(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 2)

	count, err := ingestor.IngestEntries(ctx, feedID, []feed.Entry{
		entry("a", "A", "https://example.com/a", ""),
	}, now, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestEntries_ReportsProgress(t *testing.T) {
	ctx := context.Background()
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 3)

	entries := []feed.Entry{
		entry("a", "A", "", "x"),
		entry("b", "B", "", "x"),
		entry("c", "C", "", "x"),
		entry("d", "D", "", "x"),
	}

	var dones []int
	var totals []int
	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, func(done, total int, title string) {
		dones = append(dones, done)
		totals = append(totals, total)
	})

	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, []int{1, 2, 3, 4}, dones)
	assert.Equal(t, []int{4, 4, 4, 4}, totals)
}

func TestIngestEntries_NothingNew(t *testing.T) {
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 2)

	called := false
	count, err := ingestor.IngestEntries(context.Background(), feedID, nil, now, func(int, int, string) { called = true })

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.False(t, called)
}

func TestIngestEntries_CancellationKeepsPartialProgress(t *testing.T) {
	articles, feedID := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := &stubExtractor{content: "text", onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	ingestor := New(articles, extractor, 1)

	entries := []feed.Entry{
		entry("a", "A", "https://example.com/a", ""),
		entry("b", "B", "https://example.com/b", ""),
		entry("c", "C", "https://example.com/c", ""),
	}

	count, err := ingestor.IngestEntries(ctx, feedID, entries, now, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, count)

	stored, err := articles.CountByFeed(context.Background(), feedID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}

func TestIngestEntries_CancelledBeforeStart(t *testing.T) {
	articles, feedID := setup(t)
	ingestor := New(articles, &stubExtractor{}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := ingestor.IngestEntries(ctx, feedID, []feed.Entry{entry("a", "A", "", "x")}, now, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
}

func TestIngestEntries_StorageErrorAborts(t *testing.T) {
	articles, feedID := setup(t)
	storeErr := errors.New("disk full")
	ingestor := New(&failingStore{ArticleStore: articles, err: storeErr}, &stubExtractor{}, 2)

	_, err := ingestor.IngestEntries(context.Background(), feedID, []feed.Entry{entry("a", "A", "", "x")}, now, nil)

	assert.ErrorIs(t, err, storeErr)
}

func TestNew_DefaultWorkers(t *testing.T) {
	assert.Equal(t, DefaultWorkers, New(nil, nil, 0).workers)
	assert.Equal(t, 8, New(nil, nil, 8).workers)
}
