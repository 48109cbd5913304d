package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-reader/app/database"
	"github.com/lysyi3m/rss-reader/app/feed"
)

const DefaultWorkers = 4

// Ingestor turns parsed feed entries into stored articles
type Ingestor struct {
	store     ArticleStore
	extractor ContentExtractor
	workers   int
}

func New(store ArticleStore, extractor ContentExtractor, workers int) *Ingestor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Ingestor{
		store:     store,
		extractor: extractor,
		workers:   workers,
	}
}

// IngestEntries stores the entries not yet known for the feed and returns how
// many rows were inserted. Entries without an inline body get their content
// extracted from the linked page. On error or cancellation the articles
// already inserted are kept.
func (i *Ingestor) IngestEntries(ctx context.Context, feedID string, entries []feed.Entry, now time.Time, onEntry EntryFunc) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pending, err := i.pendingEntries(ctx, feedID, entries)
	if err != nil {
		return 0, err
	}

	total := len(pending)
	if total == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		done     int
		inserted int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for _, entry := range pending {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ok, err := i.ingestEntry(gctx, feedID, entry, now)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if ok {
				inserted++
			}
			done++
			if onEntry != nil {
				onEntry(done, total, entry.Title)
			}
			return nil
		})
	}

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	slog.Debug("Entries ingested", "feed_id", feedID, "total", len(entries), "pending", total, "new", inserted)
	return inserted, err
}

// pendingEntries drops duplicates within the batch (first wins) and entries
// that are already stored, preserving order.
func (i *Ingestor) pendingEntries(ctx context.Context, feedID string, entries []feed.Entry) ([]feed.Entry, error) {
	seen := make(map[string]struct{}, len(entries))
	pending := make([]feed.Entry, 0, len(entries))

	for _, entry := range entries {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		seen[entry.ID] = struct{}{}

		exists, err := i.store.ArticleExists(ctx, feedID, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check article %q: %w", entry.ID, err)
		}
		if exists {
			continue
		}

		pending = append(pending, entry)
	}

	return pending, nil
}

func (i *Ingestor) ingestEntry(ctx context.Context, feedID string, entry feed.Entry, now time.Time) (bool, error) {
	content := entry.Body
	if strings.TrimSpace(content) == "" && entry.Link() != "" && i.extractor != nil {
		if extracted, ok := i.extractor.Extract(ctx, entry.Link()); ok {
			content = extracted
		}
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	article := &database.Article{
		ID:          uuid.NewString(),
		FeedID:      feedID,
		Title:       entry.Title,
		Link:        entry.Link(),
		Description: entry.Summary,
		Content:     content,
		Author:      entry.Author(),
		PublishedAt: entry.PublishedAt,
		GUID:        entry.ID,
		CreatedAt:   now,
	}

	inserted, err := i.store.InsertArticle(ctx, article)
	if err != nil {
		return false, fmt.Errorf("failed to store article %q: %w", entry.ID, err)
	}

	return inserted, nil
}
