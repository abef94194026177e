package playback

import (
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/provider"
)

// Options configures a new [State].
type Options struct {
	PlayerID            string
	Autostart           bool
	DefaultPlaybackRate float64
	PlayReason          models.PlayReason
	Volume              int
	Mute                bool
	Bus                 *Bus        // Defaults to a new bus
	Logger              *log.Logger // Defaults to log.Default()
}

// MediaElement describes the element a click-to-play gesture is bound to.
//
// Replacing the element (see [State.ReplaceMediaElement]) releases a user-gesture lock held by
// the previous one.
type MediaElement struct {
	Serial int
	Volume int
	Muted  bool
	Loaded bool
}

// Load primes the element so a later play request is not treated as gesture-less.
func (e *MediaElement) Load() {
	e.Loaded = true
}

// State is the player-wide playback state.
//
// Every accessor is safe for concurrent use. Mutations that observers care about are published
// on the bus.
type State struct {
	mu     sync.Mutex
	id     string
	bus    *Bus
	logger *log.Logger

	playlist []models.Item
	index    int
	item     *models.Item
	position float64
	duration float64
	buffer   float64

	provider   provider.Provider
	mediaModel *MediaModel
	state      models.PlayerState

	rate         float64
	defaultRate  float64
	autostart    bool
	playReason   models.PlayReason
	playRejected bool

	container *provider.Container
	awaiting  provider.Provider
	element   MediaElement
}

var _ provider.Listener = (*State)(nil)

// NewState creates an idle state.
func NewState(opts Options) *State {
	rate := opts.DefaultPlaybackRate
	if rate <= 0 {
		rate = 1
	}
	bus := opts.Bus
	if bus == nil {
		bus = NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &State{
		id:          opts.PlayerID,
		bus:         bus,
		logger:      logger,
		state:       models.StateIdle,
		rate:        rate,
		defaultRate: rate,
		autostart:   opts.Autostart,
		playReason:  opts.PlayReason,
		element:     MediaElement{Serial: 1, Volume: opts.Volume, Muted: opts.Mute},
	}
}

func (s *State) ID() string { return s.id }

func (s *State) Bus() *Bus { return s.bus }

// Publish sends e on the state's bus.
func (s *State) Publish(e Event) {
	s.bus.Publish(e)
}

// Subscribe registers an observer on the state's bus.
func (s *State) Subscribe(buffer int) (<-chan Event, func()) {
	return s.bus.Subscribe(buffer)
}

// SetPlaylist replaces the playlist. The active item is left untouched.
func (s *State) SetPlaylist(items []models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlist = slices.Clone(items)
}

func (s *State) Playlist() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.playlist)
}

func (s *State) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// PlaylistItem returns the active item, or nil.
func (s *State) PlaylistItem() *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item
}

// PlaylistItemAt returns the playlist entry at i, or nil when i is out of range.
func (s *State) PlaylistItemAt(i int) *models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemAtLocked(i)
}

func (s *State) itemAtLocked(i int) *models.Item {
	if i < 0 || i >= len(s.playlist) {
		return nil
	}
	item := s.playlist[i]
	return &item
}

// SetActiveItem makes item the active item at index and publishes [ItemChanged].
func (s *State) SetActiveItem(item *models.Item, index int) {
	s.mu.Lock()
	s.item = item
	s.index = index
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: ItemChanged, Item: item, Index: index})
}

// SetPlaylistItem replaces the active item without notifying observers.
func (s *State) SetPlaylistItem(item *models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.item = item
}

// ResetItem rewinds the position and takes the duration from item.
func (s *State) ResetItem(item *models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = 0
	s.duration = item.DurationSeconds()
	s.buffer = 0
}

func (s *State) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *State) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// SetProvider installs p as the current provider, publishing [ProviderChanged] when it differs
// from the previous one.
func (s *State) SetProvider(p provider.Provider) {
	s.mu.Lock()
	changed := s.provider != p
	s.provider = p
	s.mu.Unlock()

	if !changed {
		return
	}
	name := ""
	if p != nil {
		name = p.Name()
	}
	s.bus.Publish(Event{Kind: ProviderChanged, Provider: name})
}

// ResetProvider clears the current provider.
func (s *State) ResetProvider() {
	s.mu.Lock()
	had := s.provider != nil
	s.provider = nil
	s.awaiting = nil
	s.mu.Unlock()

	if had {
		s.bus.Publish(Event{Kind: ProviderChanged})
	}
}

func (s *State) Provider() provider.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// ProviderName returns the current provider's name, or "" without one.
func (s *State) ProviderName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

func (s *State) SetMediaModel(mm *MediaModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaModel = mm
}

func (s *State) MediaModel() *MediaModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaModel
}

// SyncMediaModel copies mm's state to the player and republishes it.
// Nothing happens unless mm is the current media model.
func (s *State) SyncMediaModel(mm *MediaModel) {
	s.mu.Lock()
	if mm == nil || mm != s.mediaModel {
		s.mu.Unlock()
		return
	}
	state := mm.State()
	previous := s.state
	s.state = state
	s.mu.Unlock()

	s.bus.Publish(Event{Kind: StateChanged, State: state, Previous: previous})
}

// SetPlayerState updates the player state, publishing [StateChanged] when it changes.
func (s *State) SetPlayerState(state models.PlayerState) {
	s.mu.Lock()
	previous := s.state
	s.state = state
	s.mu.Unlock()

	if previous != state {
		s.bus.Publish(Event{Kind: StateChanged, State: state, Previous: previous})
	}
}

func (s *State) PlayerState() models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPlaybackRate stores rate and forwards it to the current provider when it supports rates.
func (s *State) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}
	s.mu.Lock()
	s.rate = rate
	p := s.provider
	s.mu.Unlock()

	if rs, ok := p.(provider.RateSetter); ok {
		rs.SetPlaybackRate(rate)
	}
}

func (s *State) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *State) DefaultPlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultRate
}

func (s *State) Autostart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autostart
}

func (s *State) SetAutostart(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autostart = v
}

func (s *State) PlayReason() models.PlayReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playReason
}

func (s *State) SetPlayReason(r models.PlayReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playReason = r
}

func (s *State) PlayRejected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playRejected
}

func (s *State) SetPlayRejected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playRejected = v
}

// SetMediaContainer sets the render container and hands it to a provider waiting for one.
func (s *State) SetMediaContainer(c *provider.Container) {
	s.mu.Lock()
	s.container = c
	waiting := s.awaiting
	if c != nil {
		s.awaiting = nil
	}
	s.mu.Unlock()

	if c != nil && waiting != nil {
		waiting.SetContainer(c)
	}
}

func (s *State) MediaContainer() *provider.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container
}

// AwaitContainer attaches the media container to p, now if one is set or as soon as one is.
// A provider previously waiting is forgotten.
func (s *State) AwaitContainer(p provider.Provider) {
	s.mu.Lock()
	s.awaiting = nil
	c := s.container
	if c == nil {
		s.awaiting = p
	}
	s.mu.Unlock()

	if c != nil {
		p.SetContainer(c)
	}
}

// MediaElement returns a copy of the current media element.
func (s *State) MediaElement() MediaElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.element
}

// ReplaceMediaElement swaps in a fresh element that keeps the old volume and mute settings
// and loads it.
func (s *State) ReplaceMediaElement() MediaElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.element
	next := MediaElement{Serial: last.Serial + 1, Volume: last.Volume, Muted: last.Muted}
	next.Load()
	s.element = next
	s.logger.Debug("media element replaced", "serial", next.Serial)
	return next
}

func (s *State) SetVolume(volume int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.element.Volume = min(max(volume, 0), 100)
}

func (s *State) SetMute(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.element.Muted = muted
}

// HandleProviderEvent folds provider events into the state.
// Events from anything but the current provider are dropped.
func (s *State) HandleProviderEvent(p provider.Provider, e provider.Event) {
	s.mu.Lock()
	if p == nil || p != s.provider {
		s.mu.Unlock()
		s.logger.Debug("dropping event from inactive provider", "kind", e.Kind)
		return
	}
	mm := s.mediaModel

	var events []Event
	switch e.Kind {
	case provider.EventState:
		if mm != nil {
			mm.SetState(e.State)
		}
		events = s.setStateLocked(e.State, events)
	case provider.EventTime:
		s.position = e.Position
		if e.Duration > 0 {
			s.duration = e.Duration
		}
		if mm != nil {
			mm.SetPosition(e.Position)
			if e.Duration > 0 {
				mm.SetDuration(e.Duration)
			}
		}
		events = append(events, Event{Kind: Time, Position: e.Position, Duration: s.duration})
	case provider.EventMeta:
		if e.Duration > 0 {
			s.duration = e.Duration
			if mm != nil {
				mm.SetDuration(e.Duration)
			}
		}
	case provider.EventComplete:
		if mm != nil {
			mm.SetState(models.StateComplete)
		}
		events = s.setStateLocked(models.StateComplete, events)
		events = append(events, Event{Kind: Complete, Position: e.Position, Duration: e.Duration})
	case provider.EventError:
		if mm != nil {
			mm.SetState(models.StateError)
		}
		s.logger.Warn("provider error", "provider", p.Name(), "error", e.Err)
		events = s.setStateLocked(models.StateError, events)
	}
	s.mu.Unlock()

	for _, ev := range events {
		s.bus.Publish(ev)
	}
}

func (s *State) setStateLocked(state models.PlayerState, events []Event) []Event {
	previous := s.state
	s.state = state
	if previous == state {
		return events
	}
	return append(events, Event{Kind: StateChanged, State: state, Previous: previous})
}
