package provider

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recorder is a Listener that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) HandleProviderEvent(p Provider, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) has(kind EventKind, state models.PlayerState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == kind && (state == "" || e.State == state) {
			return true
		}
	}
	return false
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

var fastConfig = Config{StartLatency: 0.01, TickInterval: 0.01, SetupDelay: 0.01}

func TestCanPlay(t *testing.T) {
	tc := []struct {
		file     string
		html5    bool
		adaptive bool
	}{
		{file: "a.mp4", html5: true},
		{file: "a.mp3", html5: true},
		{file: "a.flac", html5: true},
		{file: "a.m3u8", adaptive: true},
		{file: "a.mpd", adaptive: true},
		{file: "a.flv"},
	}

	for _, tt := range tc {
		t.Run(tt.file, func(t *testing.T) {
			src := models.Source{File: tt.file}
			if CanPlayHTML5(src) != tt.html5 {
				t.Errorf("CanPlayHTML5(%s) = %v", tt.file, !tt.html5)
			}
			if CanPlayAdaptive(src) != tt.adaptive {
				t.Errorf("CanPlayAdaptive(%s) = %v", tt.file, !tt.adaptive)
			}
		})
	}
}

func TestHTML5(t *testing.T) {
	t.Run("Plays To Completion", func(t *testing.T) {
		p := NewHTML5("player", fastConfig)
		rec := &recorder{}
		p.On(rec)
		p.On(rec)
		item := &models.Item{Title: "short", Duration: "0.05"}

		if f := p.Load(item); f != nil {
			t.Fatal("expected a synchronous load")
		}
		if !rec.has(EventMeta, "") {
			t.Error("expected a meta event on load")
		}

		if _, err := p.Play().Wait(waitCtx(t)); err != nil {
			t.Fatalf("expected play to start, got %v", err)
		}
		if ElementOf(p).Paused() {
			t.Error("expected the element to run")
		}
		eventually(t, func() bool { return rec.has(EventComplete, "") }, "complete event")

		if !ElementOf(p).Paused() {
			t.Error("expected the element to pause at the end")
		}
		if !rec.has(EventState, models.StateBuffering) || !rec.has(EventState, models.StatePlaying) {
			t.Error("expected buffering then playing")
		}
	})

	t.Run("Autoplay Blocked", func(t *testing.T) {
		p := NewHTML5("player", Config{AutoplayBlocked: true})

		_, err := p.Play().Wait(waitCtx(t))

		if !errors.Is(err, ErrPlayBlocked) {
			t.Errorf("expected ErrPlayBlocked, got %v", err)
		}
		if !ElementOf(p).Paused() {
			t.Error("expected the element to stay paused")
		}
	})

	t.Run("Pause And Stop", func(t *testing.T) {
		p := NewHTML5("player", fastConfig).(*HTML5)
		rec := &recorder{}
		p.On(rec)
		p.Load(&models.Item{Duration: "60"})

		p.Play().Wait(waitCtx(t))
		p.Pause()
		if p.State() != models.StatePaused {
			t.Errorf("expected paused, got %s", p.State())
		}
		p.Seek(30)
		p.Seek(90)
		if p.Position() != 60 {
			t.Errorf("expected seek to clamp to the duration, got %v", p.Position())
		}
		p.Stop()
		if p.State() != models.StateIdle || p.Position() != 0 {
			t.Error("expected stop to rewind to idle")
		}

		p.Off(rec)
		p.SetState(models.StateError)
		if rec.has(EventState, models.StateError) {
			t.Error("expected no events after Off")
		}
	})

	t.Run("Container", func(t *testing.T) {
		p := NewHTML5("player", fastConfig)
		c := &Container{ID: "main"}
		p.SetContainer(c)
		if p.Container() != c {
			t.Error("expected container")
		}
		p.Remove()
		if p.Container() != nil {
			t.Error("expected remove to detach the container")
		}
	})

	t.Run("Capabilities", func(t *testing.T) {
		p := NewHTML5("player", fastConfig)
		if _, ok := p.(SubtitlesSetter); ok {
			t.Error("expected html5 to lack subtitle switching")
		}
		im, ok := p.(InstreamMarker)
		if !ok {
			t.Fatal("expected instream marker")
		}
		im.SetInstreamMode(true)
		if !im.InstreamMode() {
			t.Error("expected instream mode")
		}
		p.(RateSetter).SetPlaybackRate(2)
		if p.CurrentAudioTrack() != 0 || len(p.AudioTracks()) != 1 {
			t.Error("expected a default audio track")
		}
		if p.CurrentQuality() != -1 || p.QualityLevels() != nil {
			t.Error("expected no quality levels")
		}
	})
}

func TestAdaptive(t *testing.T) {
	p := NewAdaptive("player", fastConfig)
	item := &models.Item{Title: "live", Sources: []models.Source{{File: "live.m3u8"}}}

	setup := p.Load(item)
	if setup == nil {
		t.Fatal("expected a pending setup on first load")
	}
	if again := p.Load(item); again != setup {
		t.Error("expected loads during setup to share the setup future")
	}
	if _, err := setup.Wait(waitCtx(t)); err != nil {
		t.Fatalf("expected setup to resolve, got %v", err)
	}
	if p.Load(item) != nil {
		t.Error("expected synchronous loads once set up")
	}

	if len(p.QualityLevels()) != 4 || p.CurrentQuality() != 0 {
		t.Error("expected quality levels with auto selected")
	}
	p.SetCurrentQuality(2)
	p.SetCurrentQuality(99)
	if p.CurrentQuality() != 2 {
		t.Errorf("expected quality 2, got %d", p.CurrentQuality())
	}
	p.SetCurrentAudioTrack(1)
	if p.CurrentAudioTrack() != 1 {
		t.Error("expected audio track 1")
	}
	p.(SubtitlesSetter).SetSubtitlesTrack(1)
	if p.CurrentSubtitlesTrack() != 1 || len(p.SubtitlesTracks()) != 2 {
		t.Error("expected subtitle track 1")
	}
}

func TestElementOf(t *testing.T) {
	if ElementOf(nil) != nil {
		t.Error("expected nil element for nil provider")
	}
	if ElementOf(NewHTML5("p", Config{})) == nil {
		t.Error("expected an element")
	}
}

func TestRegistry(t *testing.T) {
	logger := log.New(io.Discard)
	mp4 := models.Source{File: "a.mp4"}
	hls := models.Source{File: "a.m3u8"}
	playlist := []models.Item{{Sources: []models.Source{mp4}}, {Sources: []models.Source{hls}}}

	t.Run("Default Registry", func(t *testing.T) {
		r := NewDefaultRegistry(10*time.Millisecond, logger)

		if _, ok := r.Choose(mp4); !ok {
			t.Error("expected html5 to be available immediately")
		}
		if _, ok := r.Choose(hls); ok {
			t.Error("expected adaptive to need loading")
		}

		if _, err := r.LoadProviders(playlist).Wait(waitCtx(t)); err != nil {
			t.Fatalf("expected load to succeed, got %v", err)
		}
		ctor, ok := r.Choose(hls)
		if !ok || !r.Loaded(AdaptiveName) {
			t.Fatal("expected adaptive to be loaded")
		}
		p := ctor("player", Config{})
		if p.Name() != AdaptiveName || !r.CanPlay(p, hls) || r.CanPlay(p, mp4) {
			t.Error("expected CanPlay to match by provider name")
		}
		if r.CanPlay(nil, hls) {
			t.Error("expected CanPlay to reject a nil provider")
		}
		if r.Loaded("missing") {
			t.Error("expected unknown provider to be unloaded")
		}
	})

	t.Run("Only Needed Providers Load", func(t *testing.T) {
		r := NewRegistry(logger)
		calls := 0
		r.Register(Entry{
			Name:        AdaptiveName,
			Supports:    CanPlayAdaptive,
			Constructor: NewAdaptive,
			Loader:      func(ctx context.Context) error { calls++; return nil },
		})

		f := r.LoadProviders([]models.Item{{Sources: []models.Source{mp4}}})
		if !f.Settled() {
			t.Error("expected nothing to load")
		}
		if calls != 0 {
			t.Errorf("expected no loader calls, got %d", calls)
		}
	})

	t.Run("Concurrent Loads Are Shared", func(t *testing.T) {
		r := NewRegistry(logger)
		release := make(chan struct{})
		var mu sync.Mutex
		calls := 0
		r.Register(Entry{
			Name:        AdaptiveName,
			Supports:    CanPlayAdaptive,
			Constructor: NewAdaptive,
			Loader: func(ctx context.Context) error {
				mu.Lock()
				calls++
				mu.Unlock()
				<-release
				return nil
			},
		})

		a := r.LoadProviders(playlist)
		b := r.LoadProviders(playlist)
		close(release)

		for _, f := range []*async.Future[async.Void]{a, b} {
			if _, err := f.Wait(waitCtx(t)); err != nil {
				t.Fatalf("expected load to succeed, got %v", err)
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if calls != 1 {
			t.Errorf("expected one loader call, got %d", calls)
		}
	})

	t.Run("Load Failure", func(t *testing.T) {
		r := NewRegistry(logger)
		boom := errors.New("script unavailable")
		r.Register(Entry{
			Name:        AdaptiveName,
			Supports:    CanPlayAdaptive,
			Constructor: NewAdaptive,
			Loader:      func(ctx context.Context) error { return boom },
		})

		_, err := r.LoadProviders(playlist).Wait(waitCtx(t))

		if !errors.Is(err, shared.ErrProviderLoad) || !errors.Is(err, boom) {
			t.Errorf("expected wrapped load error, got %v", err)
		}
		if _, ok := r.Choose(hls); ok {
			t.Error("expected a failed provider to stay unavailable")
		}
	})
}
