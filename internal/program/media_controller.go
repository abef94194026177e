package program

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/provider"
)

// MediaController owns one provider and the media model of the item it is playing.
type MediaController struct {
	mu         sync.Mutex
	provider   provider.Provider
	state      *playback.State
	mediaModel *playback.MediaModel
	thenPlay   *async.Cancelable[async.Void]
	destroyed  bool
	logger     *log.Logger
}

// NewMediaController binds p to state. The controller does nothing until [MediaController.Init].
func NewMediaController(p provider.Provider, state *playback.State, logger *log.Logger) *MediaController {
	if logger == nil {
		logger = log.Default()
	}
	return &MediaController{
		provider: p,
		state:    state,
		thenPlay: async.Noop(),
		logger:   logger.WithPrefix("media"),
	}
}

// Provider returns the controlled provider, or nil once destroyed.
func (m *MediaController) Provider() provider.Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provider
}

// MediaModel returns the current media model, or nil before init or after a reset.
func (m *MediaController) MediaModel() *playback.MediaModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mediaModel
}

// Init prepares the provider for item with a fresh media model and installs both on the state.
// A nil item seeds position and duration with 0.
func (m *MediaController) Init(item *models.Item) {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.thenPlay.Cancel()
	p := m.provider
	mm := playback.NewMediaModel()
	mm.SrcReset()
	mm.SetPosition(item.StartSeconds())
	mm.SetDuration(item.DurationSeconds())
	m.mediaModel = mm
	m.mu.Unlock()

	p.Init(item)
	p.SetState(models.StateIdle)
	m.state.SetProvider(p)
	m.state.SetMediaModel(mm)
	m.logger.Debug("initialized", "provider", p.Name(), "generation", mm.Generation())
}

// Reset forgets the media model and drops a pending play-after-setup so plays already in flight
// cannot act on the next item. The provider is kept.
func (m *MediaController) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thenPlay.Cancel()
	m.mediaModel = nil
}

// Play starts or resumes playback of item.
//
// The first play of an item loads it and reports a play attempt; later plays only resume the
// provider. The returned future never rejects: a failed attempt is reported through the
// state's playRejected flag and a [playback.PlayAttemptFailed] event.
func (m *MediaController) Play(item *models.Item, reason models.PlayReason) *async.Future[async.Void] {
	m.mu.Lock()
	p, mm := m.provider, m.mediaModel
	destroyed := m.destroyed
	m.mu.Unlock()

	if destroyed || p == nil || mm == nil {
		return async.Resolved(async.Void{})
	}
	if reason == "" {
		reason = m.state.PlayReason()
	}

	m.state.SetPlayRejected(false)
	if mm.Setup() {
		return async.Recover(async.OrResolved(p.Play()))
	}

	playing := m.loadAndPlay(item, p)
	mm.SetSetup(true)
	if mm.Started() {
		return async.Recover(playing)
	}
	return m.playAttempt(playing, mm, item, reason, p)
}

func (m *MediaController) loadAndPlay(item *models.Item, p provider.Provider) *async.Future[async.Void] {
	setup := p.Load(item)
	if setup == nil {
		return async.OrResolved(p.Play())
	}

	task := async.NewCancelable(func() *async.Future[async.Void] {
		return async.OrResolved(p.Play())
	})
	m.mu.Lock()
	m.thenPlay.Cancel()
	m.thenPlay = task
	m.mu.Unlock()

	return async.ThenFuture(setup, func(async.Void) *async.Future[async.Void] {
		return task.Run()
	})
}

func (m *MediaController) playAttempt(playing *async.Future[async.Void], mm *playback.MediaModel, item *models.Item, reason models.PlayReason, p provider.Provider) *async.Future[async.Void] {
	if item == nil {
		item = m.state.PlaylistItem()
	}
	m.state.Publish(playback.Event{Kind: playback.PlayAttempt, Item: item, Reason: reason})

	element := provider.ElementOf(p)
	if element != nil && !element.Paused() {
		m.state.SetPlayerState(models.StateBuffering)
	}

	done := async.NewDeferred[async.Void]()
	go func() {
		defer done.Resolve(async.Void{})

		if _, err := playing.Wait(context.Background()); err != nil {
			m.state.SetPlayRejected(true)
			if element != nil && element.Paused() {
				mm.SetState(models.StatePaused)
				m.state.SyncMediaModel(mm)
			}
			m.logger.Warn("play attempt failed", "item", title(item), "reason", reason, "error", err)
			m.state.Publish(playback.Event{Kind: playback.PlayAttemptFailed, Item: item, Reason: reason, Err: err})
			return
		}

		if !mm.Setup() || !m.isCurrent(mm) {
			return
		}
		mm.SetStarted(true)
		m.state.SyncMediaModel(mm)
	}()
	return done.Future()
}

func (m *MediaController) isCurrent(mm *playback.MediaModel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.destroyed && m.mediaModel == mm
}

// Stop stops the provider and drops a pending play-after-setup.
func (m *MediaController) Stop() {
	m.mu.Lock()
	m.thenPlay.Cancel()
	p := m.provider
	m.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

func (m *MediaController) Pause() {
	if p := m.Provider(); p != nil {
		p.Pause()
	}
}

// Preload primes the provider with item once per media model.
// It does nothing once playback was set up.
func (m *MediaController) Preload(item *models.Item) {
	m.mu.Lock()
	p, mm := m.provider, m.mediaModel
	m.mu.Unlock()

	if p == nil || mm == nil || mm.Preloaded() || mm.Setup() {
		return
	}
	p.Preload(item)
	mm.SetPreloaded(true)
}

// Destroy detaches the provider from the state, removes it from its container and clears its
// instream marker. The controller is unusable afterwards.
func (m *MediaController) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.thenPlay.Cancel()
	p := m.provider
	m.provider = nil
	m.mediaModel = nil
	m.mu.Unlock()

	if p == nil {
		return
	}
	p.Off(m.state)
	if p.Container() != nil {
		p.Remove()
	}
	if im, ok := p.(provider.InstreamMarker); ok {
		im.SetInstreamMode(false)
	}
	m.logger.Debug("destroyed", "provider", p.Name())
}

func (m *MediaController) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// Setup reports whether playback began for the current media model.
func (m *MediaController) Setup() bool {
	return m.MediaModel().Setup()
}

// Preloaded reports whether the current item was preloaded.
func (m *MediaController) Preloaded() bool {
	mm := m.MediaModel()
	return mm != nil && mm.Preloaded()
}

func (m *MediaController) AudioTrack() int {
	if p := m.Provider(); p != nil {
		return p.CurrentAudioTrack()
	}
	return -1
}

func (m *MediaController) AudioTracks() []models.Track {
	if p := m.Provider(); p != nil {
		return p.AudioTracks()
	}
	return nil
}

func (m *MediaController) SetAudioTrack(index int) {
	if p := m.Provider(); p != nil {
		p.SetCurrentAudioTrack(index)
	}
}

func (m *MediaController) Quality() int {
	if p := m.Provider(); p != nil {
		return p.CurrentQuality()
	}
	return -1
}

func (m *MediaController) Qualities() []models.QualityLevel {
	if p := m.Provider(); p != nil {
		return p.QualityLevels()
	}
	return nil
}

func (m *MediaController) SetQuality(index int) {
	if p := m.Provider(); p != nil {
		p.SetCurrentQuality(index)
	}
}

func (m *MediaController) SubtitlesTrack() int {
	if p := m.Provider(); p != nil {
		return p.CurrentSubtitlesTrack()
	}
	return -1
}

func (m *MediaController) SubtitlesTracks() []models.Track {
	if p := m.Provider(); p != nil {
		return p.SubtitlesTracks()
	}
	return nil
}

// SetSubtitlesTrack selects a subtitle track on providers that support switching.
func (m *MediaController) SetSubtitlesTrack(index int) {
	if ss, ok := m.Provider().(provider.SubtitlesSetter); ok {
		ss.SetSubtitlesTrack(index)
	}
}

// SetPosition seeks the provider.
func (m *MediaController) SetPosition(position float64) {
	if p := m.Provider(); p != nil {
		p.Seek(position)
	}
}

func (m *MediaController) SetControls(enabled bool) {
	if p := m.Provider(); p != nil {
		p.SetControls(enabled)
	}
}

func title(item *models.Item) string {
	if item == nil {
		return ""
	}
	return item.Title
}
