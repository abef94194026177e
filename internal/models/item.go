package models

import (
	"math"
	"path"
	"strconv"
	"strings"
)

// PreloadPolicy controls how much of an item may be fetched before playback starts.
type PreloadPolicy string

const (
	PreloadAuto     PreloadPolicy = "auto"
	PreloadMetadata PreloadPolicy = "metadata"
	PreloadNone     PreloadPolicy = "none"
)

// PlayReason is the caller-supplied tag describing why playback started.
type PlayReason string

const (
	ReasonInteraction PlayReason = "interaction"
	ReasonAutostart   PlayReason = "autostart"
	ReasonPlaylist    PlayReason = "playlist"
	ReasonExternal    PlayReason = "external"
	ReasonRelatedAuto PlayReason = "related-auto"
)

// PlayerState is the player-wide playback state published to subscribers.
type PlayerState string

const (
	StateIdle      PlayerState = "idle"
	StateBuffering PlayerState = "buffering"
	StatePlaying   PlayerState = "playing"
	StatePaused    PlayerState = "paused"
	StateComplete  PlayerState = "complete"
	StateError     PlayerState = "error"
)

// Source is one playable representation of an [Item].
type Source struct {
	File    string `toml:"file" json:"file"`
	Type    string `toml:"type" json:"type,omitempty"`
	Label   string `toml:"label" json:"label,omitempty"`
	Default bool   `toml:"default" json:"default,omitempty"`
}

// Kind returns the source format used for provider matching.
//
// An explicit Type wins; otherwise the file extension is used ("m3u8" maps to "hls", "mpd" to "dash").
func (s Source) Kind() string {
	if s.Type != "" {
		return strings.ToLower(s.Type)
	}
	file := s.File
	if i := strings.IndexAny(file, "?#"); i >= 0 {
		file = file[:i]
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(file)), ".")
	switch ext {
	case "m3u8", "m3u":
		return "hls"
	case "mpd":
		return "dash"
	case "":
		return "mp4"
	default:
		return ext
	}
}

// Item is an immutable playlist entry. The playback core references items but never mutates them.
type Item struct {
	Title     string        `toml:"title" json:"title"`
	Image     string        `toml:"image" json:"image,omitempty"`
	Sources   []Source      `toml:"sources" json:"sources"`
	StartTime string        `toml:"starttime" json:"starttime,omitempty"`
	Duration  string        `toml:"duration" json:"duration,omitempty"`
	Preload   PreloadPolicy `toml:"preload" json:"preload,omitempty"`
}

// FirstSource returns the source playback starts from, if the item has any.
func (i *Item) FirstSource() (Source, bool) {
	if i == nil || len(i.Sources) == 0 {
		return Source{}, false
	}
	return i.Sources[0], true
}

// StartSeconds returns the configured start position, or 0 for a nil item.
func (i *Item) StartSeconds() float64 {
	if i == nil {
		return 0
	}
	return Seconds(i.StartTime)
}

// DurationSeconds returns the configured duration, or 0 for a nil item.
func (i *Item) DurationSeconds() float64 {
	if i == nil {
		return 0
	}
	return Seconds(i.Duration)
}

// Playlist is an ordered list of items.
type Playlist struct {
	Title string `toml:"title" json:"title"`
	Items []Item `toml:"items" json:"items"`
}

// Track describes an audio or subtitle track reported by a provider.
type Track struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// QualityLevel describes a rendition reported by a provider.
type QualityLevel struct {
	Label   string `json:"label"`
	Bitrate int    `json:"bitrate"`
	Height  int    `json:"height,omitempty"`
}

// Seconds converts a time string into seconds.
//
// Accepted forms: plain numbers ("90", "12.5"), unit suffixes ("90s", "1.5m", "2h") and clock
// notation ("1:30", "01:02:03.500"). Empty, malformed, negative or non-finite input yields 0.
func Seconds(value string) float64 {
	v := strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if v == "" {
		return 0
	}

	switch {
	case strings.HasSuffix(v, "ms"):
		return parseFloat(strings.TrimSuffix(v, "ms")) / 1000
	case strings.HasSuffix(v, "s"):
		return parseFloat(strings.TrimSuffix(v, "s"))
	case strings.HasSuffix(v, "m"):
		return parseFloat(strings.TrimSuffix(v, "m")) * 60
	case strings.HasSuffix(v, "h"):
		return parseFloat(strings.TrimSuffix(v, "h")) * 3600
	}

	if !strings.Contains(v, ":") {
		return parseFloat(v)
	}

	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0.0
	for _, part := range parts {
		n, ok := parseNonNegative(part)
		if !ok {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func parseFloat(s string) float64 {
	n, _ := parseNonNegative(s)
	return n
}

// parseNonNegative accepts finite numbers >= 0 only; "NaN", "Inf" and negatives fail.
func parseNonNegative(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0, false
	}
	return n, true
}
