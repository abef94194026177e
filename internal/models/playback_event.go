package models

import (
	"fmt"
	"time"
)

// PlaybackEventKind names the kind of a recorded playback event.
type PlaybackEventKind string

const (
	EventKindPlayAttempt       PlaybackEventKind = "play_attempt"
	EventKindPlayAttemptFailed PlaybackEventKind = "play_attempt_failed"
	EventKindStateChanged      PlaybackEventKind = "state_changed"
)

// PlaybackEvent is a persisted record of something the playback core published.
type PlaybackEvent struct {
	id        string
	sequence  int
	kind      PlaybackEventKind
	itemTitle string
	source    string
	reason    PlayReason
	state     PlayerState
	errText   string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

var _ Model = (*PlaybackEvent)(nil)

// NewPlaybackEvent creates an unsaved event. The ID and sequence are assigned on insert.
func NewPlaybackEvent(kind PlaybackEventKind, itemTitle, source string, reason PlayReason, state PlayerState, errText string) *PlaybackEvent {
	now := time.Now()
	return &PlaybackEvent{
		kind:      kind,
		itemTitle: itemTitle,
		source:    source,
		reason:    reason,
		state:     state,
		errText:   errText,
		createdAt: now,
		updatedAt: now,
	}
}

// RestorePlaybackEvent rebuilds an event read from storage.
func RestorePlaybackEvent(id string, sequence int, kind PlaybackEventKind, itemTitle, source string, reason PlayReason, state PlayerState, errText string, createdAt, updatedAt time.Time) *PlaybackEvent {
	return &PlaybackEvent{
		id:        id,
		sequence:  sequence,
		kind:      kind,
		itemTitle: itemTitle,
		source:    source,
		reason:    reason,
		state:     state,
		errText:   errText,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e *PlaybackEvent) ID() string { return e.id }
func (e *PlaybackEvent) Sequence() int { return e.sequence }
func (e *PlaybackEvent) Kind() PlaybackEventKind { return e.kind }
func (e *PlaybackEvent) ItemTitle() string { return e.itemTitle }
func (e *PlaybackEvent) Source() string { return e.source }
func (e *PlaybackEvent) Reason() PlayReason { return e.reason }
func (e *PlaybackEvent) State() PlayerState { return e.state }
func (e *PlaybackEvent) Error() string { return e.errText }
func (e *PlaybackEvent) CreatedAt() time.Time { return e.createdAt }
func (e *PlaybackEvent) UpdatedAt() time.Time { return e.updatedAt }
func (e *PlaybackEvent) SetID(id string) { e.id = id }
func (e *PlaybackEvent) SetSequence(seq int) { e.sequence = seq }
func (e *PlaybackEvent) SetUpdatedAt(t time.Time) { e.updatedAt = t }
func (e *PlaybackEvent) DeletedAt() *time.Time { return e.deletedAt }
func (e *PlaybackEvent) SetDeletedAt(t *time.Time) { e.deletedAt = t }

// SetError records the error text of a failed attempt.
func (e *PlaybackEvent) SetError(text string) { e.errText = text }

// Validate checks the event has a known kind.
func (e *PlaybackEvent) Validate() error {
	switch e.kind {
	case EventKindPlayAttempt, EventKindPlayAttemptFailed, EventKindStateChanged:
	default:
		return fmt.Errorf("unknown event kind %q", e.kind)
	}
	if e.kind == EventKindStateChanged && e.state == "" {
		return fmt.Errorf("state change without state")
	}
	return nil
}
