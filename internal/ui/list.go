package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

var _ list.Item = playlistEntry{}

// playlistEntry wraps [models.Item] to implement [list.Item].
type playlistEntry struct {
	index int
	item  models.Item
}

func (i playlistEntry) FilterValue() string { return i.item.Title }
func (i playlistEntry) Title() string {
	if i.item.Title == "" {
		return fmt.Sprintf("Item %d", i.index+1)
	}
	return i.item.Title
}
func (i playlistEntry) Description() string {
	src, ok := i.item.FirstSource()
	if !ok {
		return "no media"
	}
	desc := src.Kind()
	if d := i.item.DurationSeconds(); d > 0 {
		desc = fmt.Sprintf("%s • %s", desc, shared.FormatDuration(d))
	}
	return desc
}

func playlistEntries(items []models.Item) []list.Item {
	entries := make([]list.Item, len(items))
	for i, item := range items {
		entries[i] = playlistEntry{index: i, item: item}
	}
	return entries
}
