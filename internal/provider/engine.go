package provider

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
)

// ErrPlayBlocked is returned by play attempts rejected by the autoplay policy.
var ErrPlayBlocked = errors.New("play() request was blocked by the autoplay policy")

// mediaElement is the simulated element an engine renders through.
type mediaElement struct {
	mu     sync.RWMutex
	paused bool
}

func (m *mediaElement) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

func (m *mediaElement) setPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

// engine is the simulated playback clock shared by the built-in providers.
//
// It does not decode anything: playing advances a position counter on a ticker and publishes
// the same state, time and complete events a real engine would.
type engine struct {
	mu        sync.Mutex
	self      Provider
	name      string
	playerID  string
	cfg       Config
	item      *models.Item
	state     models.PlayerState
	position  float64
	duration  float64
	rate      float64
	container *Container
	listeners []Listener
	element   *mediaElement
	controls  bool
	instream  bool

	audioTracks  []models.Track
	currentAudio int
	levels       []models.QualityLevel
	currentLevel int
	subtitles    []models.Track
	currentSubs  int

	// epoch invalidates timers and tickers started before the latest play/pause/stop.
	epoch    uint64
	stopTick chan struct{}
}

func newEngine(name, playerID string, cfg Config) *engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 0.25
	}
	return &engine{
		name:         name,
		playerID:     playerID,
		cfg:          cfg,
		state:        models.StateIdle,
		rate:         1,
		element:      &mediaElement{paused: true},
		currentAudio: -1,
		currentLevel: -1,
		currentSubs:  -1,
	}
}

func (e *engine) Name() string { return e.name }

func (e *engine) Init(item *models.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.item = item
}

// load resets the clock for item.
func (e *engine) load(item *models.Item) {
	e.mu.Lock()
	e.item = item
	e.position = item.StartSeconds()
	e.duration = item.DurationSeconds()
	e.epoch++
	e.stopClockLocked()
	duration := e.duration
	e.mu.Unlock()

	e.emit(Event{Kind: EventMeta, Duration: duration})
}

func (e *engine) Play() *async.Future[async.Void] {
	if e.cfg.AutoplayBlocked {
		e.element.setPaused(true)
		return async.Rejected[async.Void](ErrPlayBlocked)
	}

	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	e.element.setPaused(false)
	e.setState(models.StateBuffering)

	started := async.NewDeferred[async.Void]()
	time.AfterFunc(seconds(e.cfg.StartLatency), func() {
		e.mu.Lock()
		if e.epoch != epoch {
			e.mu.Unlock()
			started.Resolve(async.Void{})
			return
		}
		e.startClockLocked(epoch)
		e.mu.Unlock()

		e.setState(models.StatePlaying)
		started.Resolve(async.Void{})
	})
	return started.Future()
}

func (e *engine) Pause() {
	e.mu.Lock()
	e.epoch++
	e.stopClockLocked()
	e.mu.Unlock()

	e.element.setPaused(true)
	e.setState(models.StatePaused)
}

func (e *engine) Stop() {
	e.mu.Lock()
	e.epoch++
	e.stopClockLocked()
	e.position = 0
	e.mu.Unlock()

	e.element.setPaused(true)
	e.setState(models.StateIdle)
}

func (e *engine) Preload(item *models.Item) {
	e.load(item)
}

func (e *engine) Seek(position float64) {
	e.mu.Lock()
	if position < 0 {
		position = 0
	}
	if e.duration > 0 && position > e.duration {
		position = e.duration
	}
	e.position = position
	duration := e.duration
	e.mu.Unlock()

	e.emit(Event{Kind: EventTime, Position: position, Duration: duration})
}

func (e *engine) SetState(state models.PlayerState) {
	e.setState(state)
}

func (e *engine) setState(state models.PlayerState) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	e.emit(Event{Kind: EventState, State: state})
}

func (e *engine) SetContainer(c *Container) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.container = c
}

func (e *engine) Container() *Container {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.container
}

func (e *engine) Remove() {
	e.mu.Lock()
	e.epoch++
	e.stopClockLocked()
	e.container = nil
	e.mu.Unlock()
	e.element.setPaused(true)
}

func (e *engine) CurrentAudioTrack() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentAudio
}

func (e *engine) AudioTracks() []models.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.audioTracks)
}

func (e *engine) SetCurrentAudioTrack(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index >= 0 && index < len(e.audioTracks) {
		e.currentAudio = index
	}
}

func (e *engine) CurrentQuality() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLevel
}

func (e *engine) QualityLevels() []models.QualityLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.levels)
}

func (e *engine) SetCurrentQuality(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index >= 0 && index < len(e.levels) {
		e.currentLevel = index
	}
}

func (e *engine) CurrentSubtitlesTrack() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentSubs
}

func (e *engine) SubtitlesTracks() []models.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.subtitles)
}

func (e *engine) SetControls(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controls = enabled
}

func (e *engine) SetPlaybackRate(rate float64) {
	if rate <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
}

func (e *engine) Element() Element {
	return e.element
}

func (e *engine) SetInstreamMode(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instream = enabled
}

func (e *engine) InstreamMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instream
}

func (e *engine) On(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.listeners, l) {
		e.listeners = append(e.listeners, l)
	}
}

func (e *engine) Off(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = slices.DeleteFunc(e.listeners, func(x Listener) bool { return x == l })
}

// State returns the engine's own view of its state.
func (e *engine) State() models.PlayerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Position returns the current clock position in seconds.
func (e *engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *engine) emit(ev Event) {
	e.mu.Lock()
	listeners := slices.Clone(e.listeners)
	self := e.self
	e.mu.Unlock()

	for _, l := range listeners {
		l.HandleProviderEvent(self, ev)
	}
}

func (e *engine) startClockLocked(epoch uint64) {
	e.stopClockLocked()
	stop := make(chan struct{})
	e.stopTick = stop
	interval := seconds(e.cfg.TickInterval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if done := e.tick(epoch); done {
					return
				}
			}
		}
	}()
}

func (e *engine) stopClockLocked() {
	if e.stopTick != nil {
		close(e.stopTick)
		e.stopTick = nil
	}
}

// tick advances the clock and reports whether playback reached the end.
func (e *engine) tick(epoch uint64) bool {
	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		return true
	}
	e.position += e.cfg.TickInterval * e.rate
	complete := e.duration > 0 && e.position >= e.duration
	if complete {
		e.position = e.duration
		e.stopTick = nil
		e.state = models.StateComplete
	}
	position, duration := e.position, e.duration
	e.mu.Unlock()

	e.emit(Event{Kind: EventTime, Position: position, Duration: duration})
	if complete {
		e.element.setPaused(true)
		e.emit(Event{Kind: EventComplete, State: models.StateComplete, Position: position, Duration: duration})
		return true
	}
	return false
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
