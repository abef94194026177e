package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/ytplay/internal/models"
)

// LoadPlaylist reads a playlist file. Files ending in .json are parsed as JSON, everything else as TOML.
func LoadPlaylist(path string) (*models.Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParsePlaylistJSON(data)
	}
	return ParsePlaylist(data)
}

// ParsePlaylist decodes a TOML playlist:
//
//	title = "Evening"
//
//	[[items]]
//	title = "Intro"
//	starttime = "0:05"
//	duration = "3:35"
//
//	[[items.sources]]
//	file = "https://cdn.example.com/intro.m3u8"
func ParsePlaylist(data []byte) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := toml.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("%w: failed to parse playlist: %w", ErrInvalidInput, err)
	}
	return &playlist, validatePlaylist(&playlist)
}

// ParsePlaylistJSON decodes a JSON playlist with the same shape as [ParsePlaylist].
func ParsePlaylistJSON(data []byte) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("%w: failed to parse playlist: %w", ErrInvalidInput, err)
	}
	return &playlist, validatePlaylist(&playlist)
}

func validatePlaylist(p *models.Playlist) error {
	if len(p.Items) == 0 {
		return ErrEmptyPlaylist
	}
	for i, item := range p.Items {
		switch item.Preload {
		case "", models.PreloadAuto, models.PreloadMetadata, models.PreloadNone:
		default:
			return fmt.Errorf("%w: item %d has unknown preload policy %q", ErrInvalidInput, i, item.Preload)
		}
	}
	return nil
}
