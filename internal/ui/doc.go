// Package ui implements an interactive now-playing terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [PlaylistView] : Browse the playlist and pick an item to play
//  2. [NowPlayingView] : Position, state and provider of the active item with transport controls
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Playback events flow through a bus subscription, so the view only renders what the player publishes.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, space, s, n/p, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
