package queue

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"extrad/internal/logging"
)

// Kind says what sort of catalog item a request refers to.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Priority orders requests within the queue. High-priority requests are
// always served before normal ones.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// Request is one unit of work: fetch extras for a single catalog item.
type Request struct {
	ItemID     string
	Title      string
	TMDBID     int64
	Kind       Kind
	Path       string
	Priority   Priority
	EnqueuedAt time.Time
}

// Key identifies the item for dedup and suppression purposes.
func (r Request) Key() string {
	if r.ItemID != "" {
		return r.ItemID
	}
	return fmt.Sprintf("%s/%d", r.Kind, r.TMDBID)
}

// Queue is an in-memory two-tier FIFO with a suppression window. Items
// processed within the retention period are silently dropped on enqueue
// unless forced. Queue state does not survive a restart.
type Queue struct {
	mu        sync.Mutex
	high      []Request
	normal    []Request
	pending   map[string]struct{}
	processed map[string]time.Time
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a queue whose suppression window is retention. A zero or
// negative retention disables suppression entirely.
func New(retention time.Duration, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		pending:   make(map[string]struct{}),
		processed: make(map[string]time.Time),
		retention: retention,
		logger:    logger.With(logging.FieldComponent, "queue"),
		now:       time.Now,
	}
}

// Enqueue adds a request unless the item is already pending or was processed
// within the suppression window. It reports whether the request was accepted.
func (q *Queue) Enqueue(req Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := req.Key()
	if _, dup := q.pending[key]; dup {
		return false
	}
	if q.suppressedLocked(key) {
		q.logger.Debug("enqueue suppressed",
			logging.String("item", key),
			logging.String("title", req.Title))
		return false
	}
	q.pushLocked(req, key)
	return true
}

// EnqueueForced adds a request regardless of the suppression window, clearing
// any processed record for the item first. A request already pending is left
// in place.
func (q *Queue) EnqueueForced(req Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := req.Key()
	delete(q.processed, key)
	if _, dup := q.pending[key]; dup {
		return false
	}
	q.pushLocked(req, key)
	return true
}

func (q *Queue) pushLocked(req Request, key string) {
	req.EnqueuedAt = q.now()
	if req.Priority == PriorityHigh {
		q.high = append(q.high, req)
	} else {
		q.normal = append(q.normal, req)
	}
	q.pending[key] = struct{}{}
	q.logger.Debug("request enqueued",
		logging.String("item", key),
		logging.String("title", req.Title),
		logging.String("priority", req.Priority.String()))
}

// TryDequeue removes and returns the next request, high priority first and
// FIFO within each tier. It never blocks.
func (q *Queue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var req Request
	switch {
	case len(q.high) > 0:
		req = q.high[0]
		q.high = q.high[1:]
	case len(q.normal) > 0:
		req = q.normal[0]
		q.normal = q.normal[1:]
	default:
		return Request{}, false
	}
	delete(q.pending, req.Key())
	return req, true
}

// MarkProcessed records that the item finished processing, starting its
// suppression window. Expired records are evicted opportunistically.
func (q *Queue) MarkProcessed(req Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.processed[req.Key()] = now
	if q.retention <= 0 {
		return
	}
	for key, at := range q.processed {
		if now.Sub(at) > q.retention {
			delete(q.processed, key)
		}
	}
}

func (q *Queue) suppressedLocked(key string) bool {
	if q.retention <= 0 {
		return false
	}
	at, ok := q.processed[key]
	if !ok {
		return false
	}
	if q.now().Sub(at) > q.retention {
		delete(q.processed, key)
		return false
	}
	return true
}

// Count returns the number of pending requests across both tiers.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high) + len(q.normal)
}

// HasPendingItems reports whether any request is waiting.
func (q *Queue) HasPendingItems() bool {
	return q.Count() > 0
}

// Snapshot returns copies of the pending requests, high tier first, for
// status reporting.
func (q *Queue) Snapshot() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Request, 0, len(q.high)+len(q.normal))
	out = append(out, q.high...)
	out = append(out, q.normal...)
	return out
}
