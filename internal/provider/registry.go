package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Entry registers one provider type with a [Registry].
type Entry struct {
	Name        string
	Supports    func(src models.Source) bool
	Constructor Constructor
	// Loader fetches whatever the provider needs before it can be constructed.
	// A nil Loader means the provider is available immediately.
	Loader func(ctx context.Context) error
}

type registryEntry struct {
	Entry
	loaded  bool
	loading *async.Future[async.Void]
}

// Registry is the default [Selector]. Providers are consulted in registration order and only
// loaded providers are returned by [Registry.Choose].
type Registry struct {
	mu      sync.Mutex
	entries []*registryEntry
	logger  *log.Logger
}

var _ Selector = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{logger: logger}
}

// NewDefaultRegistry registers the built-in providers: [HTML5] is available immediately and
// [Adaptive] is loaded on demand after loadDelay.
func NewDefaultRegistry(loadDelay time.Duration, logger *log.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(Entry{Name: HTML5Name, Supports: CanPlayHTML5, Constructor: NewHTML5})
	r.Register(Entry{
		Name:        AdaptiveName,
		Supports:    CanPlayAdaptive,
		Constructor: NewAdaptive,
		Loader: func(ctx context.Context) error {
			select {
			case <-time.After(loadDelay):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return r
}

// Register appends a provider entry.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &registryEntry{Entry: e, loaded: e.Loader == nil})
}

// Choose returns the first loaded provider that supports src.
func (r *Registry) Choose(src models.Source) (Constructor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.loaded && e.Supports(src) {
			return e.Constructor, true
		}
	}
	return nil, false
}

// Loaded reports whether the named provider is ready to construct.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e.loaded
		}
	}
	return false
}

// CanPlay reports whether the registered entry matching p's name supports src.
func (r *Registry) CanPlay(p Provider, src models.Source) bool {
	if p == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Name == p.Name() {
			return e.Supports(src)
		}
	}
	return false
}

// LoadProviders loads, concurrently, every provider that supports a source in playlist.
//
// Loads already in flight are shared. The returned future rejects with the joined loader errors.
func (r *Registry) LoadProviders(playlist []models.Item) *async.Future[async.Void] {
	r.mu.Lock()
	var pending []*async.Future[async.Void]
	for _, e := range r.entries {
		if e.loaded || !r.neededLocked(e, playlist) {
			continue
		}
		if e.loading == nil {
			e.loading = r.startLoadLocked(e)
		}
		pending = append(pending, e.loading)
	}
	r.mu.Unlock()

	if len(pending) == 0 {
		return async.Resolved(async.Void{})
	}

	all := async.NewDeferred[async.Void]()
	go func() {
		var errs []error
		for _, f := range pending {
			if _, err := f.Wait(context.Background()); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			all.Reject(err)
			return
		}
		all.Resolve(async.Void{})
	}()
	return all.Future()
}

func (r *Registry) neededLocked(e *registryEntry, playlist []models.Item) bool {
	for _, item := range playlist {
		for _, src := range item.Sources {
			if e.Supports(src) {
				return true
			}
		}
	}
	return false
}

func (r *Registry) startLoadLocked(e *registryEntry) *async.Future[async.Void] {
	done := async.NewDeferred[async.Void]()
	loader := e.Loader
	name := e.Name
	r.logger.Debug("loading provider", "provider", name)

	go func() {
		start := time.Now()
		err := loader(context.Background())

		r.mu.Lock()
		if err == nil {
			e.loaded = true
		}
		e.loading = nil
		r.mu.Unlock()

		if err != nil {
			r.logger.Warn("provider failed to load", "provider", name, "error", err)
			done.Reject(fmt.Errorf("%w: %s: %w", shared.ErrProviderLoad, name, err))
			return
		}
		r.logger.Debug("provider loaded", "provider", name, "elapsed", time.Since(start))
		done.Resolve(async.Void{})
	}()
	return done.Future()
}
