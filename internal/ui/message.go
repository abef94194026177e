package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaybackEvent MsgKind = iota
	MsgEventsClosed
	MsgActivated
	MsgPlayed
)

type activation struct {
	index  int
	reason models.PlayReason
	play   bool
	err    error
}

// playbackEventMsg is the constructor for [MsgPlaybackEvent]
func playbackEventMsg(e playback.Event) Msg {
	return Msg{kind: MsgPlaybackEvent, data: e}
}

// eventsClosedMsg is the constructor for [MsgEventsClosed]
func eventsClosedMsg() Msg {
	return Msg{kind: MsgEventsClosed}
}

// activatedMsg is the constructor for [MsgActivated]
func activatedMsg(index int, reason models.PlayReason, play bool, err error) Msg {
	return Msg{kind: MsgActivated, data: activation{index: index, reason: reason, play: play, err: err}}
}

// playedMsg is the constructor for [MsgPlayed]
func playedMsg(err error) Msg {
	return Msg{kind: MsgPlayed, data: err}
}
