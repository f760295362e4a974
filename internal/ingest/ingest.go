package ingest

import (
	"log/slog"

	"extrad/internal/logging"
	"extrad/internal/queue"
)

// Event types accepted from the library catalog.
const (
	EventAdded   = "added"
	EventUpdated = "updated"
)

// ReasonMetadataRefresh is the only update reason that triggers a re-scan;
// other update events (renames, playback state) are noise.
const ReasonMetadataRefresh = "metadata_refresh"

// Event is one catalog notification about a media item.
type Event struct {
	Type   string     `json:"type"`
	Reason string     `json:"reason,omitempty"`
	ItemID string     `json:"item_id"`
	Title  string     `json:"title"`
	TMDBID int64      `json:"tmdb_id"`
	Kind   queue.Kind `json:"kind"`
	Path   string     `json:"path"`
}

// Adapter translates catalog events into queue requests. Newly added items
// jump the line; metadata refreshes queue at normal priority.
type Adapter struct {
	queue  *queue.Queue
	logger *slog.Logger
}

// New builds an adapter feeding the given queue.
func New(q *queue.Queue, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{
		queue:  q,
		logger: logger.With(logging.FieldComponent, "ingest"),
	}
}

// Handle maps one event onto the queue. It reports whether a request was
// enqueued; malformed or irrelevant events are dropped with a debug log.
func (a *Adapter) Handle(event Event) bool {
	if event.TMDBID <= 0 || event.Path == "" {
		a.logger.Debug("event missing tmdb id or path",
			logging.String("item", event.ItemID),
			logging.String(logging.FieldEventType, event.Type))
		return false
	}
	if event.Kind != queue.KindMovie && event.Kind != queue.KindSeries {
		a.logger.Debug("event for unsupported kind",
			logging.String("item", event.ItemID),
			logging.String("kind", string(event.Kind)))
		return false
	}

	var priority queue.Priority
	switch event.Type {
	case EventAdded:
		priority = queue.PriorityHigh
	case EventUpdated:
		if event.Reason != ReasonMetadataRefresh {
			return false
		}
		priority = queue.PriorityNormal
	default:
		return false
	}

	accepted := a.queue.Enqueue(queue.Request{
		ItemID:   event.ItemID,
		Title:    event.Title,
		TMDBID:   event.TMDBID,
		Kind:     event.Kind,
		Path:     event.Path,
		Priority: priority,
	})
	if accepted {
		a.logger.Info("catalog event queued",
			logging.String("item", event.ItemID),
			logging.String("title", event.Title),
			logging.String(logging.FieldEventType, event.Type),
			logging.String("priority", priority.String()))
	}
	return accepted
}
