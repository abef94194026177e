package playback

import (
	"sync"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
)

// EventKind enumerates events published on the [Bus].
type EventKind int

const (
	PlayAttempt EventKind = iota
	PlayAttemptFailed
	StateChanged
	ItemChanged
	ProviderChanged
	Time
	Complete
)

func (k EventKind) String() string {
	switch k {
	case PlayAttempt:
		return "play_attempt"
	case PlayAttemptFailed:
		return "play_attempt_failed"
	case StateChanged:
		return "state_changed"
	case ItemChanged:
		return "item_changed"
	case ProviderChanged:
		return "provider_changed"
	case Time:
		return "time"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// Event is a typed notification from the playback core.
//
// Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind
	Item     *models.Item       // PlayAttempt, PlayAttemptFailed, ItemChanged
	Index    int                // ItemChanged
	Reason   models.PlayReason  // PlayAttempt, PlayAttemptFailed
	State    models.PlayerState // StateChanged
	Previous models.PlayerState // StateChanged
	Err      error              // PlayAttemptFailed
	Provider string             // ProviderChanged; empty when the provider was reset
	Position float64            // Time, Complete
	Duration float64            // Time, Complete
	At       time.Time
}

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	next   uint64
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer.
// The returned function unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers e to every subscriber without blocking.
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
