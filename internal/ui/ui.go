package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistView ViewState = iota
	NowPlayingView
)

const barWidth = 30

// Player is the playback surface the TUI drives. [program.ProgramController] implements it.
type Player interface {
	State() *playback.State
	SetActiveItem(item *models.Item, index int) (*async.Future[*program.MediaController], error)
	PlayVideo(reason models.PlayReason) *async.Future[async.Void]
	Pause()
	StopVideo()
}

var _ Player = (*program.ProgramController)(nil)

// nowPlaying is the view's copy of the player, built from bus events.
type nowPlaying struct {
	index    int
	title    string
	state    models.PlayerState
	provider string
	position float64
	duration float64
	rejected bool
	err      error
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	player   Player
	events   <-chan playback.Event
	items    []models.Item
	advance  bool
	width    int
	height   int
	playlist list.Model
	status   nowPlaying
	help     help.Model
	keys     keyMap
}

// NewModel creates a TUI model over player. Events should come from a subscription on the
// player's state. With advance set, a completed item starts the next one.
func NewModel(ctx context.Context, player Player, events <-chan playback.Event, advance bool) *Model {
	items := player.State().Playlist()
	playlist := list.New(playlistEntries(items), list.NewDefaultDelegate(), 0, 0)
	playlist.Title = "Playlist"

	return &Model{
		ctx:      ctx,
		view:     PlaylistView,
		player:   player,
		events:   events,
		items:    items,
		advance:  advance,
		playlist: playlist,
		status:   nowPlaying{index: -1, state: player.State().PlayerState()},
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts listening for playback events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlist.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		case NowPlayingView:
			return m.handleNowPlayingKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.playlist, cmd = m.playlist.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaybackEvent:
		e := msg.data.(playback.Event)
		cmd := m.apply(e)
		return m, tea.Batch(m.waitForEvent(), cmd)

	case MsgEventsClosed:
		return m, nil

	case MsgActivated:
		a := msg.data.(activation)
		if a.err != nil {
			m.status.err = a.err
			return m, nil
		}
		m.status.err = nil
		if a.play {
			return m, m.play(a.reason)
		}
		return m, nil

	case MsgPlayed:
		if err, _ := msg.data.(error); err != nil {
			m.status.err = err
		}
		return m, nil
	}
	return m, nil
}

// apply folds e into the now-playing status and returns any follow-up command.
func (m *Model) apply(e playback.Event) tea.Cmd {
	switch e.Kind {
	case playback.ItemChanged:
		m.status.index = e.Index
		m.status.title = ""
		if e.Item != nil {
			m.status.title = e.Item.Title
			m.status.duration = e.Item.DurationSeconds()
		}
		m.status.position = 0
		if e.Index >= 0 && e.Index < len(m.items) {
			m.playlist.Select(e.Index)
		}
	case playback.ProviderChanged:
		m.status.provider = e.Provider
	case playback.StateChanged:
		m.status.state = e.State
	case playback.Time:
		m.status.position = e.Position
		m.status.duration = e.Duration
	case playback.PlayAttempt:
		m.status.rejected = false
	case playback.PlayAttemptFailed:
		m.status.rejected = true
		m.status.err = e.Err
	case playback.Complete:
		m.status.state = models.StateComplete
		m.status.position = e.Duration
		if m.advance && m.status.index+1 < len(m.items) {
			return m.activate(m.status.index+1, models.ReasonPlaylist, true)
		}
	}
	return nil
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlist.FilterState() != list.Filtering && key.Matches(msg, m.keys.enter) {
		if entry, ok := m.playlist.SelectedItem().(playlistEntry); ok {
			m.view = NowPlayingView
			return m, m.activate(entry.index, models.ReasonInteraction, true)
		}
	}

	var cmd tea.Cmd
	m.playlist, cmd = m.playlist.Update(msg)
	return m, cmd
}

func (m *Model) handleNowPlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistView
	case key.Matches(msg, m.keys.toggle):
		if m.status.state == models.StatePlaying || m.status.state == models.StateBuffering {
			m.player.Pause()
			return m, nil
		}
		return m, m.play(models.ReasonInteraction)
	case key.Matches(msg, m.keys.stop):
		m.player.StopVideo()
	case key.Matches(msg, m.keys.next):
		if m.status.index+1 < len(m.items) {
			return m, m.activate(m.status.index+1, models.ReasonInteraction, true)
		}
	case key.Matches(msg, m.keys.prev):
		if m.status.index > 0 {
			return m, m.activate(m.status.index-1, models.ReasonInteraction, true)
		}
	}
	return m, nil
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		if m.events == nil {
			return eventsClosedMsg()
		}
		select {
		case e, ok := <-m.events:
			if !ok {
				return eventsClosedMsg()
			}
			return playbackEventMsg(e)
		case <-m.ctx.Done():
			return eventsClosedMsg()
		}
	}
}

func (m *Model) activate(index int, reason models.PlayReason, play bool) tea.Cmd {
	if index < 0 || index >= len(m.items) {
		return nil
	}
	item := m.items[index]
	return func() tea.Msg {
		activated, err := m.player.SetActiveItem(&item, index)
		if err == nil {
			_, err = activated.Wait(m.ctx)
		}
		return activatedMsg(index, reason, play, err)
	}
}

func (m *Model) play(reason models.PlayReason) tea.Cmd {
	return func() tea.Msg {
		_, err := m.player.PlayVideo(reason).Wait(m.ctx)
		return playedMsg(err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case PlaylistView:
		return m.renderPlaylist()
	case NowPlayingView:
		return m.renderNowPlaying()
	default:
		return ""
	}
}

func (m *Model) renderPlaylist() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlist.View(), helpView)
}

func (m *Model) renderNowPlaying() string {
	title := styles.heading.Render("Now Playing")

	name := m.status.title
	if name == "" {
		name = "Loading..."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", name)
	if m.status.index >= 0 {
		fmt.Fprintf(&b, "Item %d of %d\n", m.status.index+1, len(m.items))
	}
	fmt.Fprintf(&b, "\n%s %s / %s\n", progressBar(m.status.position, m.status.duration),
		shared.FormatDuration(m.status.position), shared.FormatDuration(m.status.duration))
	fmt.Fprintf(&b, "\nState: %s", styles.State(m.status.state))
	if m.status.provider != "" {
		fmt.Fprintf(&b, "  Provider: %s", m.status.provider)
	}
	b.WriteString("\n")

	if m.status.rejected {
		b.WriteString("\n" + styles.caution.Render("Playback was blocked. Press space to retry."))
	}
	if m.status.err != nil && !m.status.rejected {
		b.WriteString("\n" + styles.bad.Render(fmt.Sprintf("Error: %v", m.status.err)))
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.stop, m.keys.next, m.keys.prev, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), helpView)
}

func progressBar(position, duration float64) string {
	filled := 0
	if duration > 0 {
		filled = int(position / duration * barWidth)
	}
	return styles.Bar(filled, barWidth)
}
