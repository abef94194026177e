package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/provider"
	tu "github.com/desertthunder/ytplay/internal/testing"
)

func newTestModel(t *testing.T, advance bool) (*Model, *tu.FakeFactory) {
	t.Helper()
	logger := log.New(io.Discard)
	state := playback.NewState(playback.Options{PlayerID: "tui", Logger: logger})
	factory := tu.NewFakeFactory("fake", nil)
	sel := tu.NewFakeSelector()
	sel.Register("mp4", "fake", factory.Constructor, false)

	ctl := program.NewProgramController(state, sel, provider.Config{}, logger)
	if err := ctl.SetPlaylist([]models.Item{
		{Title: "one", Sources: []models.Source{{File: "one.mp4"}}, Duration: "1:00"},
		{Title: "two", Sources: []models.Source{{File: "two.mp4"}}},
	}); err != nil {
		t.Fatalf("SetPlaylist failed: %v", err)
	}

	events, unsubscribe := state.Subscribe(64)
	t.Cleanup(unsubscribe)
	return NewModel(context.Background(), ctl, events, advance), factory
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive runs cmd and feeds its message back into the model until no command remains.
// Event subscriptions are not followed.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg, ok := cmd().(Msg)
		if !ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func TestModel(t *testing.T) {
	t.Run("Enter Plays Selected Item", func(t *testing.T) {
		m, factory := newTestModel(t, false)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != NowPlayingView {
			t.Fatalf("expected now playing view, got %v", m.view)
		}
		drive(t, m, cmd)

		last := factory.Last()
		if last == nil {
			t.Fatal("expected a provider to be built")
		}
		if got := last.Calls("Play"); got != 1 {
			t.Errorf("expected one play, got %d", got)
		}
		if m.status.err != nil {
			t.Errorf("unexpected error: %v", m.status.err)
		}
	})

	t.Run("Toggle Pauses While Playing", func(t *testing.T) {
		m, factory := newTestModel(t, false)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drive(t, m, cmd)

		m.Update(playbackEventMsg(playback.Event{Kind: playback.StateChanged, State: models.StatePlaying}))
		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace}); cmd != nil {
			t.Error("pause should not return a command")
		}
		if got := factory.Last().Calls("Pause"); got != 1 {
			t.Errorf("expected one pause, got %d", got)
		}
	})

	t.Run("Stop", func(t *testing.T) {
		m, factory := newTestModel(t, false)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drive(t, m, cmd)

		m.Update(runes("s"))
		if got := factory.Last().Calls("Stop"); got != 1 {
			t.Errorf("expected one stop, got %d", got)
		}
	})

	t.Run("Next And Previous Bounds", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.view = NowPlayingView
		m.status.index = 1
		if _, cmd := m.Update(runes("n")); cmd != nil {
			t.Error("next on the last item should do nothing")
		}
		m.status.index = 0
		if _, cmd := m.Update(runes("p")); cmd != nil {
			t.Error("previous on the first item should do nothing")
		}
		if _, cmd := m.Update(runes("n")); cmd == nil {
			t.Error("next should activate the following item")
		}
	})

	t.Run("Back", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.view = NowPlayingView
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != PlaylistView {
			t.Errorf("expected playlist view, got %v", m.view)
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})

	t.Run("Activation Error", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.Update(activatedMsg(0, models.ReasonInteraction, true, errors.New("no providers")))
		m.view = NowPlayingView
		if !strings.Contains(m.View(), "no providers") {
			t.Errorf("expected error in view, got:\n%s", m.View())
		}
	})
}

func TestApply(t *testing.T) {
	item := &models.Item{Title: "one", Duration: "1:00"}

	t.Run("Now Playing View", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.view = NowPlayingView

		for _, e := range []playback.Event{
			{Kind: playback.ItemChanged, Item: item, Index: 0},
			{Kind: playback.ProviderChanged, Provider: "html5"},
			{Kind: playback.StateChanged, State: models.StatePlaying},
			{Kind: playback.Time, Position: 30, Duration: 60},
		} {
			m.Update(playbackEventMsg(e))
		}

		view := m.View()
		for _, want := range []string{"Now Playing", "one", "Item 1 of 2", "0:30 / 1:00", "playing", "html5"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.view = NowPlayingView
		m.apply(playback.Event{Kind: playback.PlayAttemptFailed, Item: item, Err: errors.New("blocked")})
		if !m.status.rejected {
			t.Fatal("expected rejected status")
		}
		if !strings.Contains(m.View(), "Playback was blocked") {
			t.Errorf("expected blocked notice:\n%s", m.View())
		}

		m.apply(playback.Event{Kind: playback.PlayAttempt, Item: item})
		if m.status.rejected {
			t.Error("a new attempt should clear the rejection")
		}
	})

	t.Run("Complete Advances", func(t *testing.T) {
		m, _ := newTestModel(t, true)
		m.apply(playback.Event{Kind: playback.ItemChanged, Item: item, Index: 0})
		if cmd := m.apply(playback.Event{Kind: playback.Complete, Duration: 60}); cmd == nil {
			t.Error("expected completion to activate the next item")
		}
		if m.status.position != 60 || m.status.state != models.StateComplete {
			t.Errorf("unexpected status after complete: %+v", m.status)
		}

		m.apply(playback.Event{Kind: playback.ItemChanged, Item: item, Index: 1})
		if cmd := m.apply(playback.Event{Kind: playback.Complete}); cmd != nil {
			t.Error("the last item should not advance")
		}
	})

	t.Run("Complete Without Advance", func(t *testing.T) {
		m, _ := newTestModel(t, false)
		m.apply(playback.Event{Kind: playback.ItemChanged, Item: item, Index: 0})
		if cmd := m.apply(playback.Event{Kind: playback.Complete}); cmd != nil {
			t.Error("completion should not advance when disabled")
		}
	})
}

func TestWaitForEvent(t *testing.T) {
	m, _ := newTestModel(t, false)
	ch := make(chan playback.Event, 1)
	m.events = ch

	ch <- playback.Event{Kind: playback.Time, Position: 1}
	msg, ok := m.waitForEvent()().(Msg)
	if !ok || msg.kind != MsgPlaybackEvent {
		t.Fatalf("expected playback event message, got %+v", msg)
	}

	close(ch)
	msg, _ = m.waitForEvent()().(Msg)
	if msg.kind != MsgEventsClosed {
		t.Errorf("expected closed message, got %+v", msg)
	}
}

func TestProgressBar(t *testing.T) {
	tc := []struct {
		name     string
		position float64
		duration float64
		filled   int
	}{
		{name: "unknown duration", position: 10, duration: 0, filled: 0},
		{name: "half", position: 30, duration: 60, filled: barWidth / 2},
		{name: "overrun", position: 90, duration: 60, filled: barWidth},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			bar := progressBar(tt.position, tt.duration)
			if got := strings.Count(bar, "█"); got != tt.filled {
				t.Errorf("expected %d filled cells, got %d", tt.filled, got)
			}
			if got := strings.Count(bar, "░"); got != barWidth-tt.filled {
				t.Errorf("expected %d empty cells, got %d", barWidth-tt.filled, got)
			}
		})
	}
}
