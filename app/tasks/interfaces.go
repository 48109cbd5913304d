package tasks

import (
	"context"

	"github.com/lysyi3m/rss-reader/app/database"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Tasks run once on a fixed pool of workers; failures are logged, not retried.
//
//	scheduler := NewScheduler(workerCount, taskTimeout)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSyncFeedTask(feed, registry))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedSyncer fetches a feed and ingests its new entries.
// AbortSync ends a sync that was scheduled but never started.
type FeedSyncer interface {
	SyncFeed(ctx context.Context, feed *database.Feed) (int, error)
	AbortSync(feed *database.Feed, err error)
}
