package testing

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/provider"
)

// FakeElement is a media element whose paused flag tests control.
type FakeElement struct {
	mu     sync.Mutex
	paused bool
}

func (e *FakeElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *FakeElement) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

// FakeProvider is a test double for [provider.Provider] that records calls and lets tests
// decide how Load and Play settle.
type FakeProvider struct {
	mu        sync.Mutex
	name      string
	calls     map[string]int
	items     []*models.Item
	listeners []provider.Listener
	container *provider.Container
	state     models.PlayerState
	load      *async.Future[async.Void]
	play      *async.Future[async.Void]
	element   *FakeElement

	audioTrack int
	quality    int
	subtitles  int
	position   float64
	rate       float64
	controls   bool
	instream   bool
}

var (
	_ provider.Provider        = (*FakeProvider)(nil)
	_ provider.SubtitlesSetter = (*FakeProvider)(nil)
	_ provider.RateSetter      = (*FakeProvider)(nil)
	_ provider.ElementProvider = (*FakeProvider)(nil)
	_ provider.InstreamMarker  = (*FakeProvider)(nil)
)

// NewFakeProvider returns a provider whose Load and Play complete synchronously.
func NewFakeProvider(name string) *FakeProvider {
	return &FakeProvider{
		name:    name,
		calls:   make(map[string]int),
		state:   models.StateIdle,
		element: &FakeElement{paused: true},
		rate:    1,
	}
}

// SetLoadResult makes every later Load return f. A nil f means a synchronous load.
func (p *FakeProvider) SetLoadResult(f *async.Future[async.Void]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.load = f
}

// SetPlayResult makes every later Play return f. A nil f means play started immediately.
func (p *FakeProvider) SetPlayResult(f *async.Future[async.Void]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.play = f
}

// Calls returns how many times method was called.
func (p *FakeProvider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// Items returns the items passed to Init, Load and Preload, in call order.
func (p *FakeProvider) Items() []*models.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

func (p *FakeProvider) Listeners() []provider.Listener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.listeners)
}

func (p *FakeProvider) FakeElement() *FakeElement { return p.element }

func (p *FakeProvider) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

func (p *FakeProvider) Controls() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controls
}

func (p *FakeProvider) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Emit delivers e to every listener.
func (p *FakeProvider) Emit(e provider.Event) {
	for _, l := range p.Listeners() {
		l.HandleProviderEvent(p, e)
	}
}

func (p *FakeProvider) record(method string, item *models.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[method]++
	if item != nil {
		p.items = append(p.items, item)
	}
}

func (p *FakeProvider) Name() string { return p.name }

func (p *FakeProvider) Init(item *models.Item) { p.record("Init", item) }

func (p *FakeProvider) Load(item *models.Item) *async.Future[async.Void] {
	p.record("Load", item)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load
}

func (p *FakeProvider) Play() *async.Future[async.Void] {
	p.record("Play", nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.play
}

func (p *FakeProvider) Pause() { p.record("Pause", nil) }

func (p *FakeProvider) Stop() {
	p.record("Stop", nil)
	p.Emit(provider.Event{Kind: provider.EventState, State: models.StateIdle})
}

func (p *FakeProvider) Preload(item *models.Item) { p.record("Preload", item) }

func (p *FakeProvider) Seek(position float64) {
	p.record("Seek", nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
}

func (p *FakeProvider) SetState(state models.PlayerState) {
	p.record("SetState", nil)
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	p.Emit(provider.Event{Kind: provider.EventState, State: state})
}

func (p *FakeProvider) SetContainer(c *provider.Container) {
	p.record("SetContainer", nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.container = c
}

func (p *FakeProvider) Container() *provider.Container {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.container
}

func (p *FakeProvider) Remove() {
	p.record("Remove", nil)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.container = nil
}

func (p *FakeProvider) CurrentAudioTrack() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioTrack
}

func (p *FakeProvider) AudioTracks() []models.Track {
	return []models.Track{{Name: "Default"}, {Name: "Commentary"}}
}

func (p *FakeProvider) SetCurrentAudioTrack(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audioTrack = index
}

func (p *FakeProvider) CurrentQuality() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quality
}

func (p *FakeProvider) QualityLevels() []models.QualityLevel {
	return []models.QualityLevel{{Label: "Auto"}, {Label: "720p", Height: 720}}
}

func (p *FakeProvider) SetCurrentQuality(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quality = index
}

func (p *FakeProvider) CurrentSubtitlesTrack() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subtitles
}

func (p *FakeProvider) SubtitlesTracks() []models.Track {
	return []models.Track{{Name: "Off"}, {Name: "English", Language: "en"}}
}

func (p *FakeProvider) SetSubtitlesTrack(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subtitles = index
}

func (p *FakeProvider) SetControls(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.controls = enabled
}

func (p *FakeProvider) SetPlaybackRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
}

func (p *FakeProvider) Element() provider.Element { return p.element }

func (p *FakeProvider) SetInstreamMode(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instream = enabled
}

func (p *FakeProvider) InstreamMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instream
}

func (p *FakeProvider) On(l provider.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.listeners, l) {
		p.listeners = append(p.listeners, l)
	}
}

func (p *FakeProvider) Off(l provider.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = slices.DeleteFunc(p.listeners, func(x provider.Listener) bool { return x == l })
}

// FakeFactory builds [FakeProvider]s and remembers them.
type FakeFactory struct {
	mu        sync.Mutex
	name      string
	built     []*FakeProvider
	configure func(*FakeProvider)
}

// NewFakeFactory returns a factory for providers called name. configure, when non-nil, runs on
// every provider it builds.
func NewFakeFactory(name string, configure func(*FakeProvider)) *FakeFactory {
	return &FakeFactory{name: name, configure: configure}
}

func (f *FakeFactory) Constructor(playerID string, cfg provider.Config) provider.Provider {
	p := NewFakeProvider(f.name)
	if f.configure != nil {
		f.configure(p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built = append(f.built, p)
	return p
}

func (f *FakeFactory) Built() []*FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.built)
}

// Last returns the most recently built provider, or nil.
func (f *FakeFactory) Last() *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.built) == 0 {
		return nil
	}
	return f.built[len(f.built)-1]
}

type selectorEntry struct {
	name        string
	constructor provider.Constructor
	loaded      bool
}

// FakeSelector maps source kinds to constructors. Lazy entries only become choosable once a
// LoadProviders call settles.
type FakeSelector struct {
	mu        sync.Mutex
	entries   map[string]*selectorEntry
	load      *async.Future[async.Void]
	loadCalls int
}

var _ provider.Selector = (*FakeSelector)(nil)

func NewFakeSelector() *FakeSelector {
	return &FakeSelector{entries: make(map[string]*selectorEntry)}
}

// Register maps kind to a provider called name.
func (s *FakeSelector) Register(kind, name string, c provider.Constructor, lazy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[kind] = &selectorEntry{name: name, constructor: c, loaded: !lazy}
}

// SetLoadResult makes LoadProviders wait for f before marking lazy entries loaded.
// A rejected f leaves them unloaded.
func (s *FakeSelector) SetLoadResult(f *async.Future[async.Void]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load = f
}

func (s *FakeSelector) LoadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCalls
}

func (s *FakeSelector) Choose(src models.Source) (provider.Constructor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[src.Kind()]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.constructor, true
}

func (s *FakeSelector) LoadProviders(playlist []models.Item) *async.Future[async.Void] {
	s.mu.Lock()
	s.loadCalls++
	gate := s.load
	s.mu.Unlock()

	if gate == nil {
		gate = async.Resolved(async.Void{})
	}
	return async.Then(gate, func(v async.Void) (async.Void, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, e := range s.entries {
			e.loaded = true
		}
		return v, nil
	})
}

func (s *FakeSelector) CanPlay(p provider.Provider, src models.Source) bool {
	if p == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[src.Kind()]
	return ok && e.name == p.Name()
}

// MustSettle waits up to two seconds for f and returns its outcome.
func MustSettle[T any](t *testing.T, f *async.Future[T]) (T, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not settle")
	}
	return f.Wait(context.Background())
}

// Eventually polls cond until it holds or two seconds pass.
func Eventually(t *testing.T, cond func() bool, msg string) {
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

// Never checks cond stays false for d.
func Never(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatalf("unexpected condition: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
