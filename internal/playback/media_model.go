package playback

import (
	"sync"
	"sync/atomic"

	"github.com/desertthunder/ytplay/internal/models"
)

var generations atomic.Uint64

// MediaModel is the per-item media state created on every controller init.
//
// Each model carries a unique, increasing generation; continuations compare the model they
// captured against the current one instead of holding on to stale state.
type MediaModel struct {
	mu         sync.Mutex
	generation uint64
	setup      bool
	started    bool
	preloaded  bool
	position   float64
	duration   float64
	state      models.PlayerState
}

// NewMediaModel returns an idle model with a fresh generation.
func NewMediaModel() *MediaModel {
	return &MediaModel{generation: generations.Add(1), state: models.StateIdle}
}

// Generation returns the model's generation, or 0 for a nil model.
func (m *MediaModel) Generation() uint64 {
	if m == nil {
		return 0
	}
	return m.generation
}

// SrcReset clears everything learned about the previous source.
func (m *MediaModel) SrcReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setup = false
	m.started = false
	m.preloaded = false
	m.position = 0
	m.duration = 0
	m.state = models.StateIdle
}

func (m *MediaModel) Setup() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setup
}

func (m *MediaModel) SetSetup(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setup = v
}

func (m *MediaModel) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *MediaModel) SetStarted(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = v
}

func (m *MediaModel) Preloaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preloaded
}

func (m *MediaModel) SetPreloaded(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preloaded = v
}

func (m *MediaModel) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MediaModel) SetPosition(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = v
}

func (m *MediaModel) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MediaModel) SetDuration(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = v
}

func (m *MediaModel) State() models.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MediaModel) SetState(s models.PlayerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}
