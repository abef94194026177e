package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/provider"
)

// CastName identifies the cast provider.
const CastName = "cast"

const (
	defaultRequestTimeout = 10 * time.Second
	defaultPollInterval   = time.Second
)

// CastProvider plays through a remote [Receiver].
type CastProvider struct {
	mu           sync.Mutex
	receiver     Receiver
	logger       *log.Logger
	item         *models.Item
	state        models.PlayerState
	position     float64
	container    *provider.Container
	listeners    []provider.Listener
	controls     bool
	instream     bool
	timeout      time.Duration
	pollInterval time.Duration
	stopPoll     chan struct{}

	// epoch is bumped by every transport change; continuations of an older one are dropped.
	epoch uint64
	// tail settles when the last queued receiver call finished. Calls run in the order issued.
	tail *async.Future[async.Void]
}

var (
	_ provider.Provider       = (*CastProvider)(nil)
	_ provider.InstreamMarker = (*CastProvider)(nil)
)

// NewCastProvider creates a provider for receiver. A zero pollInterval uses one second.
func NewCastProvider(receiver Receiver, pollInterval time.Duration, logger *log.Logger) *CastProvider {
	if logger == nil {
		logger = log.Default()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &CastProvider{
		receiver:     receiver,
		logger:       logger.WithPrefix(CastName),
		state:        models.StateIdle,
		timeout:      defaultRequestTimeout,
		pollInterval: pollInterval,
	}
}

func (c *CastProvider) Name() string { return CastName }

func (c *CastProvider) Init(item *models.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.item = item
}

// Load sends item to the receiver. The returned future rejects when the receiver refuses it.
func (c *CastProvider) Load(item *models.Item) *async.Future[async.Void] {
	c.mu.Lock()
	c.item = item
	c.position = item.StartSeconds()
	c.mu.Unlock()

	req := LoadRequest{Title: item.Title, Start: item.StartSeconds(), Duration: item.DurationSeconds()}
	if src, ok := item.FirstSource(); ok {
		req.File = src.File
		req.Type = src.Kind()
	}

	return c.enqueue(func(ctx context.Context) error {
		return c.receiver.Load(ctx, req)
	})
}

// Play asks the receiver to start and begins polling its status once it accepts, unless a pause
// or stop was issued in the meantime.
func (c *CastProvider) Play() *async.Future[async.Void] {
	epoch := c.bump()
	c.setState(models.StateBuffering)
	started := c.enqueue(func(ctx context.Context) error {
		return c.receiver.Command(ctx, "play")
	})
	return async.Then(started, func(v async.Void) (async.Void, error) {
		if !c.current(epoch) {
			return v, nil
		}
		c.startPolling()
		c.setState(models.StatePlaying)
		return v, nil
	})
}

func (c *CastProvider) Pause() {
	c.bump()
	c.stopPolling()
	c.send("pause")
	c.setState(models.StatePaused)
}

func (c *CastProvider) Stop() {
	c.bump()
	c.stopPolling()
	c.send("stop")
	c.mu.Lock()
	c.position = 0
	c.mu.Unlock()
	c.setState(models.StateIdle)
}

// Preload hands the item to the receiver without starting it.
func (c *CastProvider) Preload(item *models.Item) {
	f := c.Load(item)
	go func() {
		if _, err := f.Wait(context.Background()); err != nil {
			c.logger.Warn("preload failed", "error", err)
		}
	}()
}

func (c *CastProvider) Seek(position float64) {
	c.mu.Lock()
	c.position = position
	c.mu.Unlock()

	seeked := c.enqueue(func(ctx context.Context) error {
		return c.receiver.Seek(ctx, position)
	})
	go func() {
		if _, err := seeked.Wait(context.Background()); err != nil {
			c.logger.Warn("seek failed", "position", position, "error", err)
		}
	}()
}

func (c *CastProvider) SetState(state models.PlayerState) {
	c.setState(state)
}

func (c *CastProvider) SetContainer(container *provider.Container) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.container = container
}

func (c *CastProvider) Container() *provider.Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.container
}

func (c *CastProvider) Remove() {
	c.stopPolling()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.container = nil
}

// Receivers expose no track or quality selection.
func (c *CastProvider) CurrentAudioTrack() int { return -1 }
func (c *CastProvider) AudioTracks() []models.Track { return nil }
func (c *CastProvider) SetCurrentAudioTrack(int) {}
func (c *CastProvider) CurrentQuality() int { return -1 }
func (c *CastProvider) QualityLevels() []models.QualityLevel { return nil }
func (c *CastProvider) SetCurrentQuality(int) {}
func (c *CastProvider) CurrentSubtitlesTrack() int { return -1 }
func (c *CastProvider) SubtitlesTracks() []models.Track { return nil }

func (c *CastProvider) SetControls(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = enabled
}

func (c *CastProvider) SetInstreamMode(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instream = enabled
}

func (c *CastProvider) InstreamMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instream
}

func (c *CastProvider) On(l provider.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.listeners, l) {
		c.listeners = append(c.listeners, l)
	}
}

func (c *CastProvider) Off(l provider.Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = slices.DeleteFunc(c.listeners, func(x provider.Listener) bool { return x == l })
}

// State returns the last state the provider published.
func (c *CastProvider) State() models.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Refresh fetches the receiver status and publishes it. A status that raced a pause or stop is
// dropped.
func (c *CastProvider) Refresh(ctx context.Context) error {
	epoch := c.snapshotEpoch()
	status, err := c.receiver.Status(ctx)
	if err != nil {
		return err
	}
	if !c.current(epoch) {
		return nil
	}

	c.mu.Lock()
	c.position = status.Position
	c.mu.Unlock()
	c.emit(provider.Event{Kind: provider.EventTime, Position: status.Position, Duration: status.Duration})

	switch state := models.PlayerState(status.State); state {
	case models.StateComplete:
		c.stopPolling()
		c.setStateQuiet(state)
		c.emit(provider.Event{Kind: provider.EventComplete, State: state, Position: status.Position, Duration: status.Duration})
	case models.StateBuffering, models.StatePlaying, models.StatePaused, models.StateIdle:
		if c.State() != state {
			c.setState(state)
		}
	}
	return nil
}

// enqueue runs call after every previously queued call has finished, so the receiver sees
// commands in the order they were issued.
func (c *CastProvider) enqueue(call func(ctx context.Context) error) *async.Future[async.Void] {
	done := async.NewDeferred[async.Void]()
	c.mu.Lock()
	prev := c.tail
	c.tail = done.Future()
	c.mu.Unlock()

	go func() {
		if prev != nil {
			<-prev.Done()
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := call(ctx); err != nil {
			done.Reject(err)
			return
		}
		done.Resolve(async.Void{})
	}()
	return done.Future()
}

func (c *CastProvider) send(command string) {
	sent := c.enqueue(func(ctx context.Context) error {
		return c.receiver.Command(ctx, command)
	})
	go func() {
		if _, err := sent.Wait(context.Background()); err != nil {
			c.logger.Warn("receiver command failed", "command", command, "error", err)
		}
	}()
}

func (c *CastProvider) bump() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	return c.epoch
}

func (c *CastProvider) snapshotEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *CastProvider) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

func (c *CastProvider) startPolling() {
	c.mu.Lock()
	if c.stopPoll != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.stopPoll = stop
	interval := c.pollInterval
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
				err := c.Refresh(ctx)
				cancel()
				if err != nil {
					c.logger.Debug("status poll failed", "error", err)
				}
			}
		}
	}()
}

func (c *CastProvider) stopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopPoll != nil {
		close(c.stopPoll)
		c.stopPoll = nil
	}
}

func (c *CastProvider) setState(state models.PlayerState) {
	c.setStateQuiet(state)
	c.emit(provider.Event{Kind: provider.EventState, State: state})
}

func (c *CastProvider) setStateQuiet(state models.PlayerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *CastProvider) emit(e provider.Event) {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.HandleProviderEvent(c, e)
	}
}
