package repositories

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
)

// EventRecorder persists play attempts, failures and state changes published on a playback bus.
type EventRecorder struct {
	repo   models.Appender[*models.PlaybackEvent]
	logger *log.Logger

	mu       sync.Mutex
	item     *models.Item
	recorded int
}

func NewEventRecorder(repo models.Appender[*models.PlaybackEvent], logger *log.Logger) *EventRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &EventRecorder{repo: repo, logger: logger}
}

// Run records events until ctx is done or the channel is closed.
func (r *EventRecorder) Run(ctx context.Context, events <-chan playback.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := r.Record(e); err != nil {
				r.logger.Error("failed to record playback event", "kind", e.Kind, "error", err)
			}
		}
	}
}

// Record stores e if it is a kind worth keeping. It returns the stored event, or nil when e was
// only used to track the active item or was ignored.
func (r *EventRecorder) Record(e playback.Event) (*models.PlaybackEvent, error) {
	var kind models.PlaybackEventKind
	switch e.Kind {
	case playback.ItemChanged:
		r.mu.Lock()
		r.item = e.Item
		r.mu.Unlock()
		return nil, nil
	case playback.PlayAttempt:
		kind = models.EventKindPlayAttempt
	case playback.PlayAttemptFailed:
		kind = models.EventKindPlayAttemptFailed
	case playback.StateChanged:
		kind = models.EventKindStateChanged
	default:
		return nil, nil
	}

	item := e.Item
	if item == nil {
		r.mu.Lock()
		item = r.item
		r.mu.Unlock()
	}

	var title, source string
	if item != nil {
		title = item.Title
		if src, ok := item.FirstSource(); ok {
			source = src.File
		}
	}
	errText := ""
	if e.Err != nil {
		errText = e.Err.Error()
	}

	event := models.NewPlaybackEvent(kind, title, source, e.Reason, e.State, errText)
	if err := r.repo.Create(event); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.recorded++
	r.mu.Unlock()
	return event, nil
}

// Recorded returns how many events were stored.
func (r *EventRecorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded
}
