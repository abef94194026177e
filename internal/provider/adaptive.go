package provider

import (
	"slices"
	"time"

	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
)

// AdaptiveName identifies the adaptive-streaming provider.
const AdaptiveName = "adaptive"

// AdaptiveKinds lists the manifest kinds the adaptive provider plays.
var AdaptiveKinds = []string{"hls", "dash"}

// Adaptive plays HLS and DASH manifests. Its streaming engine is constructed on the first load,
// so that load returns a pending setup future.
type Adaptive struct {
	*engine
	setup *async.Future[async.Void]
}

// NewAdaptive is the [Constructor] for [Adaptive].
func NewAdaptive(playerID string, cfg Config) Provider {
	p := &Adaptive{engine: newEngine(AdaptiveName, playerID, cfg)}
	p.self = p
	p.levels = []models.QualityLevel{
		{Label: "Auto"},
		{Label: "1080p", Bitrate: 6_000_000, Height: 1080},
		{Label: "720p", Bitrate: 3_000_000, Height: 720},
		{Label: "360p", Bitrate: 800_000, Height: 360},
	}
	p.currentLevel = 0
	p.audioTracks = []models.Track{{Name: "English", Language: "en"}, {Name: "Commentary", Language: "en"}}
	p.currentAudio = 0
	p.subtitles = []models.Track{{Name: "Off"}, {Name: "English", Language: "en"}}
	p.currentSubs = 0
	return p
}

// Load returns the engine setup future on the first call and nil once the engine exists.
func (p *Adaptive) Load(item *models.Item) *async.Future[async.Void] {
	p.load(item)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setup != nil && p.setup.Settled() {
		return nil
	}
	if p.setup == nil {
		ready := async.NewDeferred[async.Void]()
		time.AfterFunc(seconds(p.cfg.SetupDelay), func() { ready.Resolve(async.Void{}) })
		p.setup = ready.Future()
	}
	return p.setup
}

// SetSubtitlesTrack selects a subtitle track; index 0 turns subtitles off.
func (p *Adaptive) SetSubtitlesTrack(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.subtitles) {
		p.currentSubs = index
	}
}

// CanPlayAdaptive reports whether src is an adaptive manifest.
func CanPlayAdaptive(src models.Source) bool {
	return slices.Contains(AdaptiveKinds, src.Kind())
}
