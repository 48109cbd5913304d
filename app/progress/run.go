package progress

import (
	"sync"
)

// Run tracks a single feed ingestion and reports its lifecycle.
// Exactly one terminal event is emitted: the first Complete or Fail wins,
// and nothing is emitted after it.
type Run struct {
	reporter *Reporter
	feedID   string
	title    string

	// mu is held while emitting so events leave in order
	mu       sync.Mutex
	total    int
	done     int
	finished bool
}

func NewRun(reporter *Reporter, feedID, title string) *Run {
	return &Run{reporter: reporter, feedID: feedID, title: title}
}

func (r *Run) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.finished {
		r.emit(Event{Status: StatusStarted})
	}
}

// SetTotal records the number of entries the run will process
func (r *Run) SetTotal(total int) {
	r.mu.Lock()
	r.total = total
	r.mu.Unlock()
}

// Advance reports that done of total entries have been processed
func (r *Run) Advance(done, total int, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	r.done = done
	r.total = total
	r.emit(Event{Status: StatusInProgress, CurrentArticleTitle: title})
}

// Complete ends the run successfully with the number of new articles.
// It returns false if the run had already ended.
func (r *Run) Complete(newArticles int) bool {
	return r.finish(Event{Status: StatusCompleted, NewArticles: newArticles})
}

// Fail ends the run with an error. It returns false if the run had already ended.
func (r *Run) Fail(err error) bool {
	e := Event{Status: StatusFailed}
	if err != nil {
		e.Error = err.Error()
	}
	return r.finish(e)
}

func (r *Run) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *Run) finish(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return false
	}
	r.finished = true
	r.emit(e)
	return true
}

// emit must be called with mu held
func (r *Run) emit(e Event) {
	if r.reporter == nil {
		return
	}

	e.FeedID = r.feedID
	e.FeedTitle = r.title
	e.TotalArticles = r.total
	e.FetchedArticles = r.done
	r.reporter.Emit(e)
}
