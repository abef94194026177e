package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/provider"
	"github.com/desertthunder/ytplay/internal/shared"
)

// ProgramController is the entry point for playback. It owns at most one [MediaController].
//
// Every SetActiveItem and CastVideo call starts a new activation; continuations of older
// activations finish without effect.
type ProgramController struct {
	mu              sync.Mutex
	state           *playback.State
	selector        provider.Selector
	config          provider.Config
	logger          *log.Logger
	mediaController *MediaController
	thenPlay        *async.Cancelable[async.Void]
	providerFuture  *async.Future[*MediaController]
	activation      uint64
	casting         bool
}

// NewProgramController creates a controller without an active item.
func NewProgramController(state *playback.State, selector provider.Selector, cfg provider.Config, logger *log.Logger) *ProgramController {
	if logger == nil {
		logger = log.Default()
	}
	return &ProgramController{
		state:          state,
		selector:       selector,
		config:         cfg,
		logger:         logger,
		thenPlay:       async.Noop(),
		providerFuture: async.Resolved[*MediaController](nil),
	}
}

func (pc *ProgramController) State() *playback.State { return pc.state }

// Controller returns the active media controller, or nil.
func (pc *ProgramController) Controller() *MediaController {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.mediaController
}

// Casting reports whether a cast provider is active.
func (pc *ProgramController) Casting() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.casting
}

// SetPlaylist replaces the playlist. Call [ProgramController.SetActiveItem] to activate an entry.
func (pc *ProgramController) SetPlaylist(items []models.Item) error {
	if len(items) == 0 {
		return shared.ErrEmptyPlaylist
	}
	pc.state.SetPlaylist(items)
	return nil
}

// SetActiveItem makes item the active item at index and prepares a provider for it.
//
// It fails with [shared.ErrNoMedia] when item has no source. The returned future resolves to the
// active controller once the item is initialized, to nil when a newer activation superseded this
// one, or rejects with [shared.ErrNoProvider] when no provider can play the item.
func (pc *ProgramController) SetActiveItem(item *models.Item, index int) (*async.Future[*MediaController], error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.thenPlay.Cancel()
	pc.activation++
	token := pc.activation

	pc.state.SetActiveItem(item, index)
	pc.state.ResetItem(item)

	src, ok := item.FirstSource()
	if !ok {
		return nil, shared.ErrNoMedia
	}

	if mc := pc.mediaController; mc != nil {
		if !pc.selector.CanPlay(mc.Provider(), src) {
			pc.logger.Debug("provider cannot play source", "provider", mc.Provider().Name(), "kind", src.Kind())
			pc.destroyActiveMediaLocked()
		} else {
			mc.Reset()
		}
	}

	resolved := pc.loadProviderConstructor(src, item, token)
	pc.providerFuture = async.Then(resolved, func(ctor provider.Constructor) (*MediaController, error) {
		pc.mu.Lock()
		defer pc.mu.Unlock()

		if pc.activation != token {
			return nil, nil
		}
		if pc.mediaController == nil {
			pc.changeVideoProviderLocked(ctor(pc.state.ID(), pc.config))
		}
		pc.mediaController.Init(item)
		return pc.mediaController, nil
	})
	return pc.providerFuture, nil
}

// loadProviderConstructor finds a constructor for src, loading providers for the playlist when
// none is loaded yet. A failed lookup tears down the active media if token is still current.
func (pc *ProgramController) loadProviderConstructor(src models.Source, item *models.Item, token uint64) *async.Future[provider.Constructor] {
	if ctor, ok := pc.selector.Choose(src); ok {
		return async.Resolved(ctor)
	}

	playlist := pc.state.Playlist()
	if len(playlist) == 0 {
		playlist = []models.Item{*item}
	}
	loading := pc.selector.LoadProviders(playlist)

	result := async.NewDeferred[provider.Constructor]()
	go func() {
		_, loadErr := loading.Wait(context.Background())
		if loadErr != nil {
			pc.logger.Warn("failed to load providers", "error", loadErr)
		}
		if ctor, ok := pc.selector.Choose(src); ok {
			result.Resolve(ctor)
			return
		}

		pc.mu.Lock()
		if pc.activation == token {
			if pc.mediaController != nil {
				pc.mediaController.Destroy()
				pc.mediaController = nil
				pc.casting = false
			}
			pc.state.ResetProvider()
		}
		pc.mu.Unlock()

		err := fmt.Errorf("%w: %s", shared.ErrNoProvider, src.Kind())
		if loadErr != nil {
			err = fmt.Errorf("%w: %s: %w", shared.ErrNoProvider, src.Kind(), loadErr)
		}
		result.Reject(err)
	}()
	return result.Future()
}

func (pc *ProgramController) changeVideoProviderLocked(next provider.Provider) {
	pc.state.AwaitContainer(next)
	next.On(pc.state)
	pc.mediaController = NewMediaController(next, pc.state, pc.logger)
	pc.state.SetProvider(next)
	pc.state.SetPlaybackRate(pc.state.DefaultPlaybackRate())
	pc.logger.Debug("provider changed", "provider", next.Name())
}

func (pc *ProgramController) destroyActiveMediaLocked() {
	pc.mediaController.Destroy()
	pc.mediaController = nil
	pc.casting = false
	pc.state.ResetProvider()
	pc.state.SetPlayerState(models.StateBuffering)
	pc.state.ReplaceMediaElement()
}

// PlayVideo plays the active item. Before the item's provider is ready the play is deferred
// until activation completes; a newer activation or a stop drops it.
func (pc *ProgramController) PlayVideo(reason models.PlayReason) *async.Future[async.Void] {
	item := pc.state.PlaylistItem()
	if item == nil {
		return async.Resolved(async.Void{})
	}
	if reason == "" {
		reason = pc.state.PlayReason()
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if mc := pc.mediaController; mc != nil && mc.Setup() {
		return mc.Play(item, reason)
	}

	var next *MediaController
	task := async.NewCancelable(func() *async.Future[async.Void] {
		if next == nil {
			return nil
		}
		return next.Play(item, reason)
	})
	pc.thenPlay.Cancel()
	pc.thenPlay = task

	return async.ThenFuture(pc.providerFuture, func(mc *MediaController) *async.Future[async.Void] {
		next = mc
		return task.Run()
	})
}

// StopVideo stops playback and rewinds the active item to the playlist entry at the current index.
func (pc *ProgramController) StopVideo() {
	pc.mu.Lock()
	pc.thenPlay.Cancel()
	mc := pc.mediaController
	pc.mu.Unlock()

	item := pc.state.PlaylistItemAt(pc.state.Index())
	if item == nil {
		item = pc.state.PlaylistItem()
	}
	pc.state.SetPlaylistItem(item)
	pc.state.ResetItem(item)

	if mc != nil {
		mc.Stop()
		return
	}
	pc.state.SetPlayerState(models.StateIdle)
}

// PreloadVideo primes the active provider when nothing is playing and autostart is off.
func (pc *ProgramController) PreloadVideo() {
	mc := pc.Controller()
	if mc == nil {
		return
	}
	item := pc.state.PlaylistItem()
	if item == nil || item.Preload == models.PreloadNone {
		return
	}
	if pc.state.PlayerState() == models.StateIdle && !pc.state.Autostart() && !mc.Setup() {
		mc.Preload(item)
	}
}

func (pc *ProgramController) Pause() {
	if mc := pc.Controller(); mc != nil {
		mc.Pause()
	}
}

// CastVideo replaces the active provider with p and initializes it with item, bypassing
// provider selection. Pending activations are abandoned.
func (pc *ProgramController) CastVideo(p provider.Provider, item *models.Item) *MediaController {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.thenPlay.Cancel()
	pc.activation++
	if pc.mediaController != nil {
		pc.mediaController.Destroy()
		pc.mediaController = nil
	}
	if im, ok := p.(provider.InstreamMarker); ok {
		im.SetInstreamMode(true)
	}
	pc.changeVideoProviderLocked(p)
	pc.casting = true
	pc.mediaController.Init(item)
	pc.providerFuture = async.Resolved(pc.mediaController)
	pc.logger.Info("casting", "provider", p.Name(), "item", title(item))
	return pc.mediaController
}

// StopCast stops playback and drops the cast provider so the next activation selects a provider
// again.
func (pc *ProgramController) StopCast() {
	pc.StopVideo()

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.mediaController != nil {
		pc.mediaController.Destroy()
		pc.state.ResetProvider()
	}
	pc.mediaController = nil
	pc.casting = false
	pc.providerFuture = async.Resolved[*MediaController](nil)
}

// Next activates the playlist entry after the current one.
func (pc *ProgramController) Next() (*async.Future[*MediaController], error) {
	return pc.step(1)
}

// Previous activates the playlist entry before the current one.
func (pc *ProgramController) Previous() (*async.Future[*MediaController], error) {
	return pc.step(-1)
}

func (pc *ProgramController) step(delta int) (*async.Future[*MediaController], error) {
	index := pc.state.Index() + delta
	item := pc.state.PlaylistItemAt(index)
	if item == nil {
		return nil, fmt.Errorf("%w: %d", shared.ErrIndexOutOfRange, index)
	}
	return pc.SetActiveItem(item, index)
}

// AudioTrack returns the current audio track, or -1 without an active controller.
func (pc *ProgramController) AudioTrack() int {
	if mc := pc.Controller(); mc != nil {
		return mc.AudioTrack()
	}
	return -1
}

func (pc *ProgramController) AudioTracks() []models.Track {
	if mc := pc.Controller(); mc != nil {
		return mc.AudioTracks()
	}
	return nil
}

func (pc *ProgramController) SetAudioTrack(index int) {
	if mc := pc.Controller(); mc != nil {
		mc.SetAudioTrack(index)
	}
}

// Quality returns the current quality level, or -1 without an active controller.
func (pc *ProgramController) Quality() int {
	if mc := pc.Controller(); mc != nil {
		return mc.Quality()
	}
	return -1
}

func (pc *ProgramController) Qualities() []models.QualityLevel {
	if mc := pc.Controller(); mc != nil {
		return mc.Qualities()
	}
	return nil
}

func (pc *ProgramController) SetQuality(index int) {
	if mc := pc.Controller(); mc != nil {
		mc.SetQuality(index)
	}
}

// SubtitlesTrack returns the current subtitle track, or -1 without an active controller.
func (pc *ProgramController) SubtitlesTrack() int {
	if mc := pc.Controller(); mc != nil {
		return mc.SubtitlesTrack()
	}
	return -1
}

func (pc *ProgramController) SubtitlesTracks() []models.Track {
	if mc := pc.Controller(); mc != nil {
		return mc.SubtitlesTracks()
	}
	return nil
}

func (pc *ProgramController) SetSubtitlesTrack(index int) {
	if mc := pc.Controller(); mc != nil {
		mc.SetSubtitlesTrack(index)
	}
}

func (pc *ProgramController) SetPosition(position float64) {
	if mc := pc.Controller(); mc != nil {
		mc.SetPosition(position)
	}
}

func (pc *ProgramController) SetControls(enabled bool) {
	if mc := pc.Controller(); mc != nil {
		mc.SetControls(enabled)
	}
}
