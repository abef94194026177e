// package provider defines the playback engine contract consumed by the playback core,
// the selector that maps sources to engines, and the built-in engines.
package provider

import (
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
)

// Container is the surface a provider renders into.
type Container struct {
	ID string
}

// EventKind enumerates provider events.
type EventKind int

const (
	EventState EventKind = iota
	EventTime
	EventMeta
	EventComplete
	EventError
)

// Event is published by a provider to its listeners.
type Event struct {
	Kind     EventKind
	State    models.PlayerState
	Position float64
	Duration float64
	Err      error
}

// Listener receives provider events.
type Listener interface {
	HandleProviderEvent(p Provider, e Event)
}

// Provider is the capability contract every playback engine implements.
//
// Load and Play return nil when the operation completed synchronously, or a pending future
// when engine setup or the platform play attempt is asynchronous.
type Provider interface {
	Name() string

	Init(item *models.Item)
	Load(item *models.Item) *async.Future[async.Void]
	Play() *async.Future[async.Void]
	Pause()
	Stop()
	Preload(item *models.Item)
	Seek(position float64)
	SetState(state models.PlayerState)

	SetContainer(c *Container)
	Container() *Container
	Remove()

	CurrentAudioTrack() int
	AudioTracks() []models.Track
	SetCurrentAudioTrack(index int)

	CurrentQuality() int
	QualityLevels() []models.QualityLevel
	SetCurrentQuality(index int)

	CurrentSubtitlesTrack() int
	SubtitlesTracks() []models.Track

	SetControls(enabled bool)

	On(l Listener)
	Off(l Listener)
}

// SubtitlesSetter is implemented by providers that can switch subtitle tracks.
type SubtitlesSetter interface {
	SetSubtitlesTrack(index int)
}

// RateSetter is implemented by providers that support variable playback rates.
type RateSetter interface {
	SetPlaybackRate(rate float64)
}

// Element is the media element backing a provider.
type Element interface {
	Paused() bool
}

// ElementProvider is implemented by providers rendering through a media element.
type ElementProvider interface {
	Element() Element
}

// InstreamMarker is implemented by providers that can be flagged as an instream (ad or cast) engine.
type InstreamMarker interface {
	SetInstreamMode(enabled bool)
	InstreamMode() bool
}

// Config is handed to every provider constructor.
type Config struct {
	AutoplayBlocked bool    // Reject play attempts as a platform autoplay policy would
	Mute            bool    // Start muted
	Volume          int     // Initial volume (0-100)
	SetupDelay      float64 // Seconds the adaptive engine takes to construct itself
	StartLatency    float64 // Seconds between a play call and the playing state
	TickInterval    float64 // Seconds between time events
}

// Constructor builds a provider instance bound to one player.
type Constructor func(playerID string, cfg Config) Provider

// Selector maps sources to provider constructors.
type Selector interface {
	// Choose returns the constructor of an already loaded provider that can play src.
	Choose(src models.Source) (Constructor, bool)

	// LoadProviders loads every provider needed by the playlist.
	LoadProviders(playlist []models.Item) *async.Future[async.Void]

	// CanPlay reports whether p can play src.
	CanPlay(p Provider, src models.Source) bool
}

// ElementOf returns the media element behind p, or nil when p has none.
func ElementOf(p Provider) Element {
	if p == nil {
		return nil
	}
	if ep, ok := p.(ElementProvider); ok {
		return ep.Element()
	}
	return nil
}
