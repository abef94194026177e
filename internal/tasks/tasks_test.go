package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/provider"
	"github.com/desertthunder/ytplay/internal/shared"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func clip(title, kind string) models.Item {
	return models.Item{
		Title:    title,
		Sources:  []models.Source{{File: title + "." + kind}},
		Duration: "0.05",
	}
}

func newController(t *testing.T, cfg provider.Config, items []models.Item) *program.ProgramController {
	t.Helper()
	state := playback.NewState(playback.Options{
		PlayerID:   "session",
		PlayReason: models.ReasonInteraction,
		Logger:     testLogger(),
	})
	ctl := program.NewProgramController(state, provider.NewDefaultRegistry(10*time.Millisecond, testLogger()), cfg, testLogger())
	if err := ctl.SetPlaylist(items); err != nil {
		t.Fatalf("SetPlaylist failed: %v", err)
	}
	return ctl
}

func fastConfig() provider.Config {
	return provider.Config{SetupDelay: 0.01, StartLatency: 0.01, TickInterval: 0.01}
}

func collect(progress <-chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-progress:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func TestPhaseString(t *testing.T) {
	tc := []struct {
		phase Phase
		want  string
	}{
		{PhaseActivate, "activate"},
		{PhasePlay, "play"},
		{PhasePosition, "position"},
		{PhaseComplete, "complete"},
		{PhaseSkip, "skip"},
		{Phase(99), ""},
	}
	for _, tt := range tc {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestSession_Run(t *testing.T) {
	t.Run("plays every item in order", func(t *testing.T) {
		items := []models.Item{clip("one", "mp4"), clip("two", "m3u8"), clip("three", "mp3")}
		ctl := newController(t, fastConfig(), items)

		attempts, unsubscribe := ctl.State().Subscribe(64)
		defer unsubscribe()

		progress := make(chan ProgressUpdate, 512)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := NewSession(ctl, SessionOpts{Logger: testLogger()}).Run(ctx, progress)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Completed != 3 || result.Total != 3 {
			t.Errorf("expected 3/3 completed, got %d/%d", result.Completed, result.Total)
		}
		for i, res := range result.Items {
			if res.Index != i || res.Outcome != OutcomeCompleted {
				t.Errorf("item %d: unexpected result %+v", i, res)
			}
		}

		var reasons []models.PlayReason
		for done := false; !done; {
			select {
			case e := <-attempts:
				if e.Kind == playback.PlayAttempt {
					reasons = append(reasons, e.Reason)
				}
			default:
				done = true
			}
		}
		want := []models.PlayReason{models.ReasonInteraction, models.ReasonPlaylist, models.ReasonPlaylist}
		if len(reasons) != len(want) {
			t.Fatalf("expected %d play attempts, got %v", len(want), reasons)
		}
		for i := range want {
			if reasons[i] != want[i] {
				t.Errorf("attempt %d: expected reason %q, got %q", i, want[i], reasons[i])
			}
		}

		updates := collect(progress)
		if len(updates) == 0 || updates[0].Phase != PhaseActivate {
			t.Fatalf("expected first update to be activate, got %+v", updates)
		}
		last := updates[len(updates)-1]
		if last.Phase != PhaseComplete || last.Step != 3 || last.Total != 3 {
			t.Errorf("expected final complete update 3/3, got %+v", last)
		}
	})

	t.Run("starts at offset", func(t *testing.T) {
		items := []models.Item{clip("one", "mp4"), clip("two", "mp4")}
		ctl := newController(t, fastConfig(), items)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := NewSession(ctl, SessionOpts{Start: 1, Preload: true, Logger: testLogger()}).Run(ctx, nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Total != 1 || len(result.Items) != 1 || result.Items[0].Title != "two" {
			t.Errorf("expected only the second item, got %+v", result)
		}
	})

	t.Run("skips items without media or provider", func(t *testing.T) {
		items := []models.Item{
			{Title: "empty"},
			clip("unknown", "xyz"),
			clip("ok", "mp4"),
		}
		ctl := newController(t, fastConfig(), items)

		progress := make(chan ProgressUpdate, 512)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := NewSession(ctl, SessionOpts{Logger: testLogger()}).Run(ctx, progress)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Skipped != 2 || result.Completed != 1 {
			t.Fatalf("expected 2 skipped and 1 completed, got %+v", result)
		}
		if !errors.Is(result.Items[0].Error, shared.ErrNoMedia) {
			t.Errorf("expected ErrNoMedia, got %v", result.Items[0].Error)
		}
		if !errors.Is(result.Items[1].Error, shared.ErrNoProvider) {
			t.Errorf("expected ErrNoProvider, got %v", result.Items[1].Error)
		}

		skips := 0
		for _, u := range collect(progress) {
			if u.Phase == PhaseSkip {
				skips++
			}
		}
		if skips != 2 {
			t.Errorf("expected 2 skip updates, got %d", skips)
		}
	})

	t.Run("rejected play ends the session", func(t *testing.T) {
		cfg := fastConfig()
		cfg.AutoplayBlocked = true
		ctl := newController(t, cfg, []models.Item{clip("one", "mp4"), clip("two", "mp4")})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := NewSession(ctl, SessionOpts{Logger: testLogger()}).Run(ctx, nil)
		if !errors.Is(err, shared.ErrPlayRejected) {
			t.Fatalf("expected ErrPlayRejected, got %v", err)
		}
		if len(result.Items) != 1 || result.Items[0].Outcome != OutcomeRejected {
			t.Errorf("expected a single rejected item, got %+v", result.Items)
		}
	})

	t.Run("position updates are throttled", func(t *testing.T) {
		item := clip("long", "mp4")
		item.Duration = "0.3"
		ctl := newController(t, fastConfig(), []models.Item{item})

		progress := make(chan ProgressUpdate, 512)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := NewSession(ctl, SessionOpts{UpdatesPerSecond: 5, Logger: testLogger()}).Run(ctx, progress); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		positions := 0
		for _, u := range collect(progress) {
			if u.Phase == PhasePosition {
				positions++
				if _, ok := u.Data.(Position); !ok {
					t.Errorf("expected Position data, got %T", u.Data)
				}
			}
		}
		// 30 time events over 0.3s at 5/s with a burst of 1
		if positions == 0 || positions > 4 {
			t.Errorf("expected between 1 and 4 position updates, got %d", positions)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		item := clip("endless", "mp4")
		item.Duration = "1h"
		ctl := newController(t, fastConfig(), []models.Item{item})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := NewSession(ctl, SessionOpts{Logger: testLogger()}).Run(ctx, nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("invalid start", func(t *testing.T) {
		ctl := newController(t, fastConfig(), []models.Item{clip("one", "mp4")})
		_, err := NewSession(ctl, SessionOpts{Start: 3}).Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}
	})
}
