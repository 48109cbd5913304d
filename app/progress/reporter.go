package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further events follow for the run
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Event is a progress notification for one feed ingestion run
type Event struct {
	FeedID              string    `json:"feed_id"`
	FeedTitle           string    `json:"feed_title"`
	TotalArticles       int       `json:"total_articles"`
	FetchedArticles     int       `json:"fetched_articles"`
	CurrentArticleTitle string    `json:"current_article_title,omitempty"`
	NewArticles         int       `json:"new_articles"`
	Status              Status    `json:"status"`
	Error               string    `json:"error,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// Listener receives events on its own goroutine, in emission order.
// Returned errors are logged and ignored.
type Listener interface {
	OnEvent(Event) error
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Event) error

func (f ListenerFunc) OnEvent(e Event) error {
	return f(e)
}

// Events queued per listener before new ones are dropped
const subscriptionBuffer = 256

type subscription struct {
	listener Listener
	queue    chan Event
	done     chan struct{}
}

// Reporter fans progress events out to subscribed listeners and keeps
// the latest event per feed for late subscribers. Emit never waits on a
// listener: each subscription has a bounded queue drained by its own
// goroutine.
type Reporter struct {
	mu            sync.RWMutex
	nextID        int
	subscriptions map[int]*subscription
	last          map[string]Event
}

func NewReporter() *Reporter {
	return &Reporter{
		subscriptions: make(map[int]*subscription),
		last:          make(map[string]Event),
	}
}

// Subscribe registers a listener and returns a function that removes it.
// Events still queued when the listener is removed are discarded.
func (r *Reporter) Subscribe(l Listener) func() {
	sub := &subscription{
		listener: l,
		queue:    make(chan Event, subscriptionBuffer),
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subscriptions[id] = sub
	r.mu.Unlock()

	go r.serve(sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscriptions, id)
			r.mu.Unlock()
			close(sub.done)
		})
	}
}

// Emit records the event and queues it for every listener
func (r *Reporter) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last[e.FeedID] = e
	for _, sub := range r.subscriptions {
		select {
		case sub.queue <- e:
		default:
			slog.Warn("Progress listener is behind, event dropped", "feed_id", e.FeedID, "status", e.Status)
		}
	}
}

func (r *Reporter) serve(sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case e := <-sub.queue:
			select {
			case <-sub.done:
				return
			default:
			}
			r.deliver(sub.listener, e)
		}
	}
}

// Last returns the most recent event emitted for a feed
func (r *Reporter) Last(feedID string) (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.last[feedID]
	return e, ok
}

// Forget drops the buffered event for a feed
func (r *Reporter) Forget(feedID string) {
	r.mu.Lock()
	delete(r.last, feedID)
	r.mu.Unlock()
}

func (r *Reporter) deliver(l Listener, e Event) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Progress listener panicked", "feed_id", e.FeedID, "error", fmt.Sprint(p))
		}
	}()

	if err := l.OnEvent(e); err != nil {
		slog.Warn("Progress listener failed", "feed_id", e.FeedID, "status", e.Status, "error", err)
	}
}

// ChannelListener forwards events into a buffered channel.
// Events are dropped when the channel is full.
type ChannelListener struct {
	C chan Event
}

func NewChannelListener(size int) *ChannelListener {
	return &ChannelListener{C: make(chan Event, size)}
}

func (c *ChannelListener) OnEvent(e Event) error {
	select {
	case c.C <- e:
		return nil
	default:
		return fmt.Errorf("listener buffer full, dropped %s event for feed %s", e.Status, e.FeedID)
	}
}
