package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-reader/app/database"
)

type SyncFeedTask struct {
	Task
	Feed   *database.Feed
	syncer FeedSyncer
}

func NewSyncFeedTask(feed *database.Feed, syncer FeedSyncer) *SyncFeedTask {
	return &SyncFeedTask{
		Task:   NewTask(TaskTypeSyncFeed, feed.ID),
		Feed:   feed,
		syncer: syncer,
	}
}

func (t *SyncFeedTask) Execute(ctx context.Context) error {
	newCount, err := t.syncer.SyncFeed(ctx, t.Feed)
	if err != nil {
		return fmt.Errorf("failed to sync feed %s: %w", t.Feed.URL, err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"feed", t.Feed.Title,
		"duration", t.GetDuration(),
		"new", newCount)

	return nil
}

func (t *SyncFeedTask) Cancel(err error) {
	t.syncer.AbortSync(t.Feed, err)
}
