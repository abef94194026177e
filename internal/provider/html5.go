package provider

import (
	"slices"

	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
)

// HTML5Name identifies the progressive-download provider.
const HTML5Name = "html5"

// HTML5Kinds lists the source kinds the progressive provider plays.
var HTML5Kinds = []string{"mp4", "m4v", "m4a", "mov", "webm", "mp3", "aac", "ogg", "oga", "wav", "flac"}

// HTML5 plays progressive files through a single media element. Loading is synchronous.
type HTML5 struct {
	*engine
}

// NewHTML5 is the [Constructor] for [HTML5].
func NewHTML5(playerID string, cfg Config) Provider {
	p := &HTML5{engine: newEngine(HTML5Name, playerID, cfg)}
	p.self = p
	p.audioTracks = []models.Track{{Name: "Default"}}
	p.currentAudio = 0
	return p
}

// Load primes the element with item and returns nil: the element is ready immediately.
func (p *HTML5) Load(item *models.Item) *async.Future[async.Void] {
	p.load(item)
	return nil
}

// CanPlayHTML5 reports whether src is a progressive format.
func CanPlayHTML5(src models.Source) bool {
	return slices.Contains(HTML5Kinds, src.Kind())
}
