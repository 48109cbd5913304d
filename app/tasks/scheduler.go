package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-reader/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	DefaultWorkerCount = 2
	DefaultTaskTimeout = 5 * time.Minute
	queueSize          = 300
)

var (
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("task scheduler stopped")
)

type Scheduler struct {
	workerCount int
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// mu orders enqueues against Stop so no task is left behind in the queue
	mu sync.Mutex
}

func NewScheduler(workerCount int, taskTimeout time.Duration) *Scheduler {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		workerCount: workerCount,
		taskTimeout: taskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Debug("Task scheduler started", "workers", s.workerCount, "task_timeout", s.taskTimeout)
}

// Stop cancels running tasks and waits for workers to exit.
// Tasks still queued are cancelled without running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	dropped := 0
	for {
		select {
		case task := <-s.taskQueue:
			s.cancelTask(task)
			dropped++
		default:
			metrics.QueueDepth.Set(0)
			if dropped > 0 {
				slog.Warn("Task scheduler stopped with queued tasks", "dropped", dropped)
			}
			return
		}
	}
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return ErrStopped
	}

	select {
	case s.taskQueue <- task:
		metrics.QueueDepth.Set(float64(len(s.taskQueue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.taskQueue:
			metrics.QueueDepth.Set(float64(len(s.taskQueue)))
			if s.ctx.Err() != nil {
				s.cancelTask(task)
				continue
			}
			s.executeTask(id, task)
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		metrics.RecordTask(string(task.GetType()), "failed")
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"feed_id", task.GetFeedID(),
			"duration", task.GetDuration(),
			"error", err)
		return
	}

	metrics.RecordTask(string(task.GetType()), "completed")
}

func (s *Scheduler) cancelTask(task TaskInterface) {
	task.Cancel(ErrStopped)
	metrics.RecordTask(string(task.GetType()), "cancelled")
	slog.Debug("Task cancelled", "type", string(task.GetType()), "id", task.GetID(), "feed_id", task.GetFeedID())
}
